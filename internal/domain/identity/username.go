package identity

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// UsernameLookup is the read the resolver needs from the user store.
type UsernameLookup interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// SettingLookup is the read the resolver needs from the settings store.
type SettingLookup interface {
	Get(ctx context.Context, t SettingType, schoolID *uuid.UUID) (*Setting, error)
}

// GenerateUsernameParams are the inputs to UsernameResolver.Generate.
type GenerateUsernameParams struct {
	Forename string
	Surname  string
	UserType shared.UserType
	// Email, when set for an employee or parent, is used as the username.
	Email    *string
	SchoolID uuid.UUID
}

// UsernameResolver derives collision-free usernames.
type UsernameResolver struct {
	users    UsernameLookup
	settings SettingLookup
}

// NewUsernameResolver creates a new UsernameResolver.
func NewUsernameResolver(users UsernameLookup, settings SettingLookup) *UsernameResolver {
	return &UsernameResolver{users: users, settings: settings}
}

// Generate returns a username that was free at the time of the check.
//
// Employees and parents with an explicit email get that email back as is.
// Everyone else gets "forename.surname" decorated with the domain of the
// relevant email format, and on collision "forename.surname.N<domain>" for
// the first free N starting at 1. The suffixed form always starts with the
// forename, even when the school template puts the surname first.
//
// A missing or malformed email-format setting is returned as an error of
// kind shared.ErrMisconfigured.
func (r *UsernameResolver) Generate(ctx context.Context, p GenerateUsernameParams) (string, error) {
	forename := shared.NamePart(p.Forename)
	surname := shared.NamePart(p.Surname)
	if forename == "" || surname == "" {
		return "", shared.ErrEmptyName
	}
	base := forename + "." + surname

	var candidate, domain string

	switch {
	case p.UserType.IsStaffLike() && p.Email != nil && strings.TrimSpace(*p.Email) != "":
		// An explicit email is adopted whether or not someone already has it.
		return strings.TrimSpace(*p.Email), nil

	case p.UserType.IsStaffLike():
		format, err := r.emailFormat(ctx, SettingOrgEmailFormat, nil, false)
		if err != nil {
			return "", err
		}
		domain = format.Domain
		candidate = base + domain

	case p.UserType == shared.UserTypeStudent:
		schoolID := p.SchoolID
		format, err := r.emailFormat(ctx, SettingSchoolEmailFormat, &schoolID, true)
		if err != nil {
			return "", err
		}
		domain = format.Domain
		if format.ForenameFirst() {
			candidate = base + domain
		} else {
			candidate = surname + "." + forename + domain
		}

	default:
		candidate = base
	}

	for i := 1; ; i++ {
		taken, err := r.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", shared.WrapError("identity", "GenerateUsername", shared.ErrStorage, "failed to check username", err)
		}
		if !taken {
			return candidate, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate = base + "." + strconv.Itoa(i) + domain
	}
}

func (r *UsernameResolver) emailFormat(ctx context.Context, t SettingType, schoolID *uuid.UUID, needPrefix bool) (EmailFormat, error) {
	setting, err := r.settings.Get(ctx, t, schoolID)
	if err != nil {
		return EmailFormat{}, err
	}
	if setting == nil {
		return EmailFormat{}, shared.ErrSettingNotFound
	}
	return ParseEmailFormat(t, setting.Value, needPrefix)
}
