package timetable

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PeriodRepository persists periods.
type PeriodRepository interface {
	Create(ctx context.Context, p *Period) error

	// ListBetween returns the school's periods with Start >= from and
	// End <= to, ordered by Start ascending.
	ListBetween(ctx context.Context, schoolID uuid.UUID, from, to time.Time) ([]Period, error)

	// ListLinked returns the school's periods with a non-zero InstanceID.
	ListLinked(ctx context.Context, schoolID uuid.UUID) ([]Period, error)
}

// EventRepository persists events and their group links.
type EventRepository interface {
	// Create inserts the event and its Groups; link ids are assigned in
	// slice order.
	Create(ctx context.Context, e *Event) error

	// ListCovering returns the employee's events at the school with
	// Start <= startBy and End >= endFrom, ordered by Start then id, with
	// group links ordered by link id.
	ListCovering(ctx context.Context, schoolID, employeeID uuid.UUID, startBy, endFrom time.Time) ([]Event, error)
}

// LessonRepository persists lessons.
type LessonRepository interface {
	Create(ctx context.Context, l *Lesson) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
