package query

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/domain/timetable"
	"github.com/schooldesk/schooldesk/pkg/logger"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PERIODS QUERY
// Lists a school's periods in a date range and labels each one with the
// group of the employee's event booked into exactly the same slot.
// ══════════════════════════════════════════════════════════════════════════════

// NoPeriodsMessage is the warning returned when nothing is in range.
const NoPeriodsMessage = "No Periods found."

// GetPeriodsQuery selects the periods to show an employee.
type GetPeriodsQuery struct {
	EmployeeID uuid.UUID
	SchoolID   uuid.UUID
	From       time.Time
	To         time.Time
}

// Validate validates the query. From and To are compared as calendar
// days in loc.
func (q GetPeriodsQuery) Validate(loc *time.Location) (shared.DateRange, error) {
	if q.SchoolID == uuid.Nil {
		return shared.DateRange{}, shared.ErrEmptySchoolID
	}
	if q.EmployeeID == uuid.Nil {
		return shared.DateRange{}, shared.ErrEmptyEmployeeID
	}
	return shared.NewDateRange(q.From, q.To, loc)
}

// PeriodDTO is a period with its display label.
type PeriodDTO struct {
	PeriodID    uuid.UUID `json:"period_id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Day         string    `json:"day"`
	InstanceID  int       `json:"instance_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// NewPeriodDTO maps a period and label to the DTO.
func NewPeriodDTO(p timetable.Period, displayName string) PeriodDTO {
	return PeriodDTO{
		PeriodID:    p.ID,
		Name:        p.Name,
		DisplayName: displayName,
		Day:         p.Day,
		InstanceID:  p.InstanceID,
		Start:       p.Start,
		End:         p.End,
	}
}

// GetPeriodsHandler handles GetPeriodsQuery.
type GetPeriodsHandler struct {
	periods  timetable.PeriodRepository
	events   timetable.EventRepository
	tx       SnapshotReader
	location *time.Location
	log      Logger
}

// NewGetPeriodsHandler creates a new GetPeriodsHandler. Day boundaries are
// taken in loc; nil means UTC.
func NewGetPeriodsHandler(
	periods timetable.PeriodRepository,
	events timetable.EventRepository,
	tx SnapshotReader,
	loc *time.Location,
	log Logger,
) *GetPeriodsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &GetPeriodsHandler{periods: periods, events: events, tx: tx, location: loc, log: log}
}

// Handle executes the query. An empty range is a warning result, not an
// error.
func (h *GetPeriodsHandler) Handle(ctx context.Context, q GetPeriodsQuery) (*shared.Result[[]PeriodDTO], error) {
	r, err := q.Validate(h.location)
	if err != nil {
		return nil, err
	}
	w := timetable.NewWindow(r, h.location)

	var (
		periods []timetable.Period
		events  []timetable.Event
	)
	err = readSnapshot(ctx, h.tx, func(ctx context.Context) error {
		var err error
		if periods, err = h.periods.ListBetween(ctx, q.SchoolID, w.PeriodStartFrom, w.PeriodEndTo); err != nil {
			return err
		}
		events, err = h.events.ListCovering(ctx, q.SchoolID, q.EmployeeID, w.EventStartBy, w.EventEndFrom)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(periods) == 0 {
		h.log.Info("no periods in range",
			logger.SchoolID(q.SchoolID.String()),
			logger.String("from", timeutil.FormatDate(q.From, h.location)),
			logger.String("to", timeutil.FormatDate(q.To, h.location)))
		return shared.Warning[[]PeriodDTO](NoPeriodsMessage), nil
	}

	slots := timetable.Correlate(periods, events)
	dtos := make([]PeriodDTO, 0, len(slots))
	for _, s := range slots {
		dtos = append(dtos, NewPeriodDTO(s.Period, s.DisplayName))
	}
	return shared.Success(dtos), nil
}
