package homework

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists homework and its student links.
type Repository interface {
	// Create returns shared.ErrHomeworkExists on a duplicate id.
	Create(ctx context.Context, h *Homework) error

	// Update rewrites the homework and replaces its student links.
	// Returns shared.ErrHomeworkNotFound when no row was touched.
	Update(ctx context.Context, h *Homework) error

	// Delete removes the homework and its links.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByID returns shared.ErrHomeworkNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Homework, error)

	// Find matches on id, school and lesson together.
	Find(ctx context.Context, id, schoolID, lessonID uuid.UUID) (*Homework, error)

	Exists(ctx context.Context, id, schoolID, lessonID uuid.UUID) (bool, error)

	ListByLesson(ctx context.Context, lessonID uuid.UUID) ([]*Homework, error)

	// AnyForEmployee reports whether the employee has set any homework at
	// the school.
	AnyForEmployee(ctx context.Context, schoolID, employeeID uuid.UUID) (bool, error)

	// ListPast returns homework of ended events matching the filter,
	// ordered by event start.
	ListPast(ctx context.Context, f PastFilter) ([]*Past, error)

	TemplateExists(ctx context.Context, id uuid.UUID) (bool, error)
}
