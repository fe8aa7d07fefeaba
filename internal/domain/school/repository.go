package school

import (
	"context"

	"github.com/google/uuid"
)

// SchoolRepository persists schools.
type SchoolRepository interface {
	Create(ctx context.Context, s *School) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// EmployeeRepository persists employees and their role links.
type EmployeeRepository interface {
	// Create inserts the employee and links its Roles, creating role rows
	// whose title is not yet known.
	Create(ctx context.Context, e *Employee) error

	// GetByID returns shared.ErrEmployeeNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Employee, error)

	// GetByIDs loads every listed employee with roles in one round trip.
	// Unknown ids are silently absent from the result.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Employee, error)

	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// StudentRepository persists students.
type StudentRepository interface {
	Create(ctx context.Context, s *Student) error
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Student, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ContactDetailsRepository persists employee contact details.
type ContactDetailsRepository interface {
	Create(ctx context.Context, cd *ContactDetails) error
	// GetByID returns shared.ErrContactDetailsGone when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*ContactDetails, error)
	Update(ctx context.Context, cd *ContactDetails) error
}

// StudentGroupRepository persists teaching groups.
type StudentGroupRepository interface {
	Create(ctx context.Context, g *StudentGroup) error
}
