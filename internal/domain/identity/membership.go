package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// Membership links a user to one principal at one school.
type Membership struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	SchoolID   uuid.UUID
	UserType   shared.UserType
	UserTypeID uuid.UUID // employee or student id, depending on UserType
	CreatedAt  time.Time
}

// NewMembership validates and builds a membership. Only employees and
// students can be linked; parents have no school-side record.
func NewMembership(userID, schoolID uuid.UUID, userType shared.UserType, userTypeID uuid.UUID, now time.Time) (*Membership, error) {
	if userID == uuid.Nil || userTypeID == uuid.Nil {
		return nil, shared.NewDomainError("identity", "NewMembership", shared.ErrInvalidID, "user id and principal id are required")
	}
	if schoolID == uuid.Nil {
		return nil, shared.ErrEmptySchoolID
	}
	if userType != shared.UserTypeEmployee && userType != shared.UserTypeStudent {
		return nil, shared.ErrInvalidUserType
	}
	return &Membership{
		ID:         uuid.New(),
		UserID:     userID,
		SchoolID:   schoolID,
		UserType:   userType,
		UserTypeID: userTypeID,
		CreatedAt:  now,
	}, nil
}

// PartitionPrincipals splits membership principal ids by kind, keeping
// first-seen order and dropping duplicates.
func PartitionPrincipals(ms []Membership) (employeeIDs, studentIDs []uuid.UUID) {
	seen := make(map[uuid.UUID]struct{}, len(ms))
	for _, m := range ms {
		if _, dup := seen[m.UserTypeID]; dup {
			continue
		}
		seen[m.UserTypeID] = struct{}{}
		switch m.UserType {
		case shared.UserTypeEmployee:
			employeeIDs = append(employeeIDs, m.UserTypeID)
		case shared.UserTypeStudent:
			studentIDs = append(studentIDs, m.UserTypeID)
		}
	}
	return employeeIDs, studentIDs
}
