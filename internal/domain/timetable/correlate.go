package timetable

import (
	"time"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// DisplayNameSeparator joins a period's name and the booked group's name.
const DisplayNameSeparator = " - "

// Window turns an inclusive day range into instant bounds for the period
// and event filters.
//
// Periods qualify when start day >= From day and end day <= To day.
// Events qualify when start day <= From day and end day >= To day, i.e.
// they cover the whole range.
type Window struct {
	PeriodStartFrom time.Time
	PeriodEndTo     time.Time
	EventStartBy    time.Time
	EventEndFrom    time.Time
}

// NewWindow computes the bounds of r in loc.
func NewWindow(r shared.DateRange, loc *time.Location) Window {
	return Window{
		PeriodStartFrom: timeutil.StartOfDay(r.From, loc),
		PeriodEndTo:     timeutil.EndOfDay(r.To, loc),
		EventStartBy:    timeutil.EndOfDay(r.From, loc),
		EventEndFrom:    timeutil.StartOfDay(r.To, loc),
	}
}

// Slot is a period with its display label.
type Slot struct {
	Period      Period
	DisplayName string
}

// Correlate labels each period. A period whose bounds exactly equal an
// event's gets " - <group>" appended, using the first event in the given
// order and that event's first-linked group. Periods keep their order.
func Correlate(periods []Period, events []Event) []Slot {
	slots := make([]Slot, 0, len(periods))
	for i := range periods {
		p := &periods[i]
		name := p.ShortName()
		for j := range events {
			if !p.Coincides(&events[j]) {
				continue
			}
			if group, ok := events[j].FirstGroupName(); ok {
				name += DisplayNameSeparator + group
			}
			break
		}
		slots = append(slots, Slot{Period: *p, DisplayName: name})
	}
	return slots
}

// MatchPeriod returns the linked period whose bounds equal start and end.
// Periods created locally (InstanceID 0) never match.
func MatchPeriod(periods []Period, start, end time.Time) (*Period, bool) {
	for i := range periods {
		p := &periods[i]
		if p.InstanceID != 0 && p.Start.Equal(start) && p.End.Equal(end) {
			return p, true
		}
	}
	return nil, false
}
