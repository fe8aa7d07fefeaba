// Package homework holds homework set against lessons.
package homework

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// Status is the lifecycle state of a homework.
type Status int

const (
	StatusDraft Status = iota
	StatusSet
	StatusClosed
)

// String returns the string representation.
func (s Status) String() string {
	switch s {
	case StatusSet:
		return "Set"
	case StatusClosed:
		return "Closed"
	default:
		return "Draft"
	}
}

// ParseStatus parses a case-insensitive status name.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "draft":
		return StatusDraft, nil
	case "set":
		return StatusSet, nil
	case "closed":
		return StatusClosed, nil
	}
	return StatusDraft, shared.NewDomainError("homework", "ParseStatus", shared.ErrInvalidInput, "unknown status "+s)
}

// Homework is work set for the students of a lesson.
type Homework struct {
	ID          uuid.UUID
	SchoolID    uuid.UUID
	LessonID    uuid.UUID
	TemplateID  *uuid.UUID
	Title       string
	Description string
	Status      Status
	DueAt       time.Time
	SetAt       time.Time
	StudentIDs  []uuid.UUID
}

// Validate checks the fields that do not need the store.
func (h *Homework) Validate() error {
	if h.ID == uuid.Nil {
		return shared.NewDomainError("homework", "Validate", shared.ErrInvalidID, "homework id is required")
	}
	if h.SchoolID == uuid.Nil {
		return shared.ErrEmptySchoolID
	}
	if h.LessonID == uuid.Nil {
		return shared.NewDomainError("homework", "Validate", shared.ErrInvalidID, "lesson id is required")
	}
	if strings.TrimSpace(h.Title) == "" {
		return shared.ErrEmptyTitle
	}
	if !h.DueAt.IsZero() && !h.SetAt.IsZero() && h.DueAt.Before(h.SetAt) {
		return shared.NewDomainError("homework", "Validate", shared.ErrInvalidRange, "due date is before set date")
	}
	return nil
}

// HasTemplate reports whether a non-nil template id is attached.
func (h *Homework) HasTemplate() bool {
	return h.TemplateID != nil && *h.TemplateID != uuid.Nil
}

// Past is a homework with the bounds of the event its lesson belongs to.
type Past struct {
	Homework
	EventStart time.Time
	EventEnd   time.Time
}

// PastFilter selects homework whose event has ended.
type PastFilter struct {
	SchoolID       uuid.UUID
	EmployeeID     uuid.UUID
	SubjectID      uuid.UUID
	StudentGroupID uuid.UUID
	EndedBy        time.Time
}
