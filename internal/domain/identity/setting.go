package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// SettingType names a configuration row.
type SettingType string

const (
	// SettingOrgEmailFormat is the organisation-wide email template used for
	// employee and parent usernames. It is not school-scoped.
	SettingOrgEmailFormat SettingType = "OEEmailFormat"
	// SettingSchoolEmailFormat is the per-school student email template.
	SettingSchoolEmailFormat SettingType = "SchoolEmailFormat"
)

// Setting is a configuration value, optionally scoped to one school.
type Setting struct {
	ID       uuid.UUID
	Type     SettingType
	SchoolID *uuid.UUID
	Value    string
}

// EmailFormat is a parsed email template such as
// "forename.surname@school.org".
type EmailFormat struct {
	// Prefix is the local part up to the first '.', e.g. "forename".
	Prefix string
	// Domain includes the '@', e.g. "@school.org".
	Domain string
}

// ForenameFirst reports whether the template puts the forename first.
func (f EmailFormat) ForenameFirst() bool {
	return f.Prefix == "forename"
}

// ParseEmailFormat extracts the domain and, when needPrefix is set, the
// first local-part token. A value without '@', or without '.' when the
// prefix is needed, is a configuration fault.
func ParseEmailFormat(t SettingType, value string, needPrefix bool) (EmailFormat, error) {
	at := strings.IndexByte(value, '@')
	if at < 0 {
		return EmailFormat{}, malformed(t, value, "missing '@'")
	}
	f := EmailFormat{Domain: value[at:]}
	if needPrefix {
		dot := strings.IndexByte(value, '.')
		if dot < 0 {
			return EmailFormat{}, malformed(t, value, "missing '.'")
		}
		f.Prefix = value[:dot]
	}
	return f, nil
}

func malformed(t SettingType, value, why string) error {
	return shared.WrapError("settings", "Parse", shared.ErrMisconfigured,
		fmt.Sprintf("%s value %q is malformed", t, value), errors.New(why))
}
