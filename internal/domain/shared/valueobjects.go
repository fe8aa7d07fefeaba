package shared

import (
	"strings"
	"time"
	"unicode"

	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// User Type
// ═══════════════════════════════════════════════════════════════════════════

// UserType tells which kind of principal a user stands for at a school.
type UserType int

const (
	UserTypeUnknown UserType = iota
	UserTypeEmployee
	UserTypeStudent
	UserTypeParent
)

var userTypeNames = map[UserType]string{
	UserTypeUnknown:  "Unknown",
	UserTypeEmployee: "Employee",
	UserTypeStudent:  "Student",
	UserTypeParent:   "Parent",
}

// String returns the string representation.
func (t UserType) String() string {
	if name, ok := userTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// IsValid reports whether t is one of the declared user types.
func (t UserType) IsValid() bool {
	return t >= UserTypeEmployee && t <= UserTypeParent
}

// IsStaffLike is true for user types whose usernames come from the
// organisation-wide email format (employees and parents).
func (t UserType) IsStaffLike() bool {
	return t == UserTypeEmployee || t == UserTypeParent
}

// ParseUserType parses a case-insensitive user type name.
func ParseUserType(s string) (UserType, error) {
	for t, name := range userTypeNames {
		if t != UserTypeUnknown && strings.EqualFold(name, strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return UserTypeUnknown, ErrInvalidUserType
}

// ═══════════════════════════════════════════════════════════════════════════
// Person Name
// ═══════════════════════════════════════════════════════════════════════════

// NamePart normalises one part of a person's name for use in identifiers:
// whitespace is dropped and letters are lower-cased.
func NamePart(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// ═══════════════════════════════════════════════════════════════════════════
// Date Range
// ═══════════════════════════════════════════════════════════════════════════

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange validates that to's calendar day in loc is not before
// from's. The time of day is ignored.
func NewDateRange(from, to time.Time, loc *time.Location) (DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return DateRange{}, NewDomainError("shared", "NewDateRange", ErrEmptyValue, "from and to are required")
	}
	if timeutil.DayKey(to, loc) < timeutil.DayKey(from, loc) {
		return DateRange{}, ErrInvalidDates
	}
	return DateRange{From: from, To: to}, nil
}

// Days returns the number of calendar days covered, counting both ends.
func (r DateRange) Days() int {
	from := time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(r.To.Year(), r.To.Month(), r.To.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours()/24) + 1
}

// ═══════════════════════════════════════════════════════════════════════════
// Contact Method
// ═══════════════════════════════════════════════════════════════════════════

// ContactMethod is how a user prefers to be reached.
type ContactMethod int

const (
	ContactMethodNone ContactMethod = iota
	ContactMethodEmail
	ContactMethodPhone
)

// String returns the string representation.
func (c ContactMethod) String() string {
	switch c {
	case ContactMethodEmail:
		return "Email"
	case ContactMethodPhone:
		return "Phone"
	default:
		return "None"
	}
}
