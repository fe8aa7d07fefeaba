// Package timetable holds scheduling periods, booked events and lessons,
// and the rule that labels a period with the group of the event booked
// into exactly the same slot.
package timetable

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERIOD
// ══════════════════════════════════════════════════════════════════════════════

// Period is a named slot in a school day.
type Period struct {
	ID       uuid.UUID
	SchoolID uuid.UUID
	Name     string
	Day      string // weekday label of Start in the school's zone

	// InstanceID links back to the upstream timetable feed; 0 means the
	// period was created locally.
	InstanceID int

	Start time.Time
	End   time.Time
}

// NewPeriodParams contains parameters for creating a new Period.
type NewPeriodParams struct {
	SchoolID   uuid.UUID
	Name       string
	Start      time.Time
	End        time.Time
	InstanceID int
	Location   *time.Location
}

// NewPeriod validates and builds a period, deriving Day from Start.
func NewPeriod(p NewPeriodParams) (*Period, error) {
	if p.SchoolID == uuid.Nil {
		return nil, shared.ErrEmptySchoolID
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, shared.ErrEmptyPeriodName
	}
	if p.Start.IsZero() || p.End.IsZero() || p.End.Before(p.Start) {
		return nil, shared.ErrInvalidDates
	}
	return &Period{
		ID:         uuid.New(),
		SchoolID:   p.SchoolID,
		Name:       name,
		Day:        timeutil.WeekdayLabel(p.Start, p.Location),
		InstanceID: p.InstanceID,
		Start:      p.Start,
		End:        p.End,
	}, nil
}

// ShortName is the label shown for the period before any event decoration.
func (p *Period) ShortName() string {
	return p.Name
}

// Coincides reports whether e is booked into exactly this period's bounds.
// Overlap is not enough.
func (p *Period) Coincides(e *Event) bool {
	return p.Start.Equal(e.Start) && p.End.Equal(e.End)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT
// ══════════════════════════════════════════════════════════════════════════════

// GroupLink attaches a student group to an event. ID increases in insertion
// order and decides which group labels the event.
type GroupLink struct {
	ID             int64
	StudentGroupID uuid.UUID
	GroupName      string
}

// Event is a booked calendar slot for one employee and subject.
type Event struct {
	ID         uuid.UUID
	SchoolID   uuid.UUID
	EmployeeID uuid.UUID
	SubjectID  uuid.UUID
	Start      time.Time
	End        time.Time
	Groups     []GroupLink
}

// FirstGroupName returns the name of the group linked first.
func (e *Event) FirstGroupName() (string, bool) {
	if len(e.Groups) == 0 {
		return "", false
	}
	first := e.Groups[0]
	for _, g := range e.Groups[1:] {
		if g.ID < first.ID {
			first = g
		}
	}
	return first.GroupName, true
}

// HasGroup reports whether the event is linked to the group.
func (e *Event) HasGroup(groupID uuid.UUID) bool {
	for _, g := range e.Groups {
		if g.StudentGroupID == groupID {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON
// ══════════════════════════════════════════════════════════════════════════════

// Lesson is a taught occurrence of an event. Homework hangs off lessons.
type Lesson struct {
	ID       uuid.UUID
	SchoolID uuid.UUID
	EventID  uuid.UUID
}
