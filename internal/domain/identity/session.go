package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// Session is what a signed-in user may act as: one SchoolView per
// membership, in membership order.
type Session struct {
	UserID      uuid.UUID    `json:"user_id"`
	Username    string       `json:"username"`
	LastLoginAt *time.Time   `json:"last_login_at,omitempty"`
	Schools     []SchoolView `json:"schools"`
}

// SchoolView is one resolved membership.
type SchoolView struct {
	UserID     uuid.UUID       `json:"user_id"`
	SchoolID   uuid.UUID       `json:"school_id"`
	UserType   shared.UserType `json:"user_type"`
	UserTypeID uuid.UUID       `json:"user_type_id"`
	// Roles are distinct ascending titles for employees and empty for
	// students. Never nil.
	Roles []string `json:"roles"`
}
