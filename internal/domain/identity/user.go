package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER
// ══════════════════════════════════════════════════════════════════════════════

// User is an authenticatable identity.
//
// Username, AssistantNickname, AssistantPassCode and PassCodeCreatedAt are
// fixed at construction. Login time, contact fields and the password hash
// change in place through the methods below. Users are never deleted.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string

	// Voice assistant identity.
	AssistantNickname  string
	AssistantPassCode  string
	PassCodeCreatedAt  time.Time
	LastAssistantUseAt *time.Time

	LastLoginAt *time.Time

	PreferredContact shared.ContactMethod
	Email            string
	Phone            string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserParams contains parameters for creating a new User.
type NewUserParams struct {
	ID                uuid.UUID // generated when nil
	Username          string
	PasswordHash      string
	AssistantNickname string
	AssistantPassCode string
	Now               time.Time
}

// NewUser creates a new User with validation.
func NewUser(p NewUserParams) (*User, error) {
	username := strings.TrimSpace(p.Username)
	if username == "" {
		return nil, shared.ErrEmptyUsername
	}
	if p.PasswordHash == "" {
		return nil, shared.ErrEmptyPassword
	}

	id := p.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	return &User{
		ID:                id,
		Username:          username,
		PasswordHash:      p.PasswordHash,
		AssistantNickname: p.AssistantNickname,
		AssistantPassCode: p.AssistantPassCode,
		PassCodeCreatedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// RecordLogin stamps the last-login time.
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.UpdatedAt = at
}

// SetContact replaces the user's email and phone.
func (u *User) SetContact(email, phone string) {
	u.Email = strings.TrimSpace(email)
	u.Phone = strings.TrimSpace(phone)
	switch {
	case u.Email != "":
		u.PreferredContact = shared.ContactMethodEmail
	case u.Phone != "":
		u.PreferredContact = shared.ContactMethodPhone
	default:
		u.PreferredContact = shared.ContactMethodNone
	}
}

// ChangePassword swaps the credential hash.
func (u *User) ChangePassword(hash string) error {
	if hash == "" {
		return shared.ErrEmptyPassword
	}
	u.PasswordHash = hash
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DEVICES & AUTHORIZATION ROLES
// ══════════════════════════════════════════════════════════════════════════════

// Device registers a voice-assistant device for a user.
type Device struct {
	DeviceID string
	UserID   uuid.UUID
}

// AuthorizationRole is an application-level permission grant, unrelated to
// the school job titles carried by employees.
type AuthorizationRole string

const (
	RoleAdministrator AuthorizationRole = "Administrator"
	RoleSchoolAdmin   AuthorizationRole = "SchoolAdmin"
	RoleTeacher       AuthorizationRole = "Teacher"
	RoleStudent       AuthorizationRole = "Student"
	RoleParent        AuthorizationRole = "Parent"
)

// IsValid reports whether r is a known role.
func (r AuthorizationRole) IsValid() bool {
	switch r {
	case RoleAdministrator, RoleSchoolAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}
