package identity

import (
	"context"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository persists users together with their devices and
// authorization role grants.
type UserRepository interface {
	// Create inserts a user. Returns shared.ErrUsernameTaken when the
	// username unique index rejects it.
	Create(ctx context.Context, user *User) error

	// Update writes mutable fields. Returns shared.ErrUserNotFound when no
	// row was touched.
	Update(ctx context.Context, user *User) error

	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByUsername returns shared.ErrUserNotFound when absent.
	GetByUsername(ctx context.Context, username string) (*User, error)

	UsernameExists(ctx context.Context, username string) (bool, error)

	// List returns every user ordered by username.
	List(ctx context.Context) ([]*User, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Devices
	// ─────────────────────────────────────────────────────────────────────────

	DeviceExists(ctx context.Context, deviceID string) (bool, error)
	ListByDevice(ctx context.Context, deviceID string) ([]*User, error)
	RegisterDevice(ctx context.Context, device Device) error

	// ─────────────────────────────────────────────────────────────────────────
	// Authorization
	// ─────────────────────────────────────────────────────────────────────────

	AddAuthorizationRoles(ctx context.Context, userID uuid.UUID, roles []AuthorizationRole) error
	ListAuthorizationRoles(ctx context.Context, userID uuid.UUID) ([]AuthorizationRole, error)
}

// MembershipRepository persists user-to-principal links.
type MembershipRepository interface {
	// ListByUser returns the user's memberships ordered by creation time,
	// then id.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error)

	// Create returns shared.ErrMembershipExists on a duplicate
	// (user, school, kind, principal) tuple.
	Create(ctx context.Context, m *Membership) error
}

// SettingRepository reads configuration rows.
type SettingRepository interface {
	// Get returns the setting of type t. A nil schoolID selects the
	// school-independent row. Returns shared.ErrSettingNotFound when absent.
	Get(ctx context.Context, t SettingType, schoolID *uuid.UUID) (*Setting, error)

	// Put inserts or replaces the value for (t, schoolID).
	Put(ctx context.Context, s *Setting) error
}
