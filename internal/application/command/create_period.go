package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/domain/timetable"
	"github.com/schooldesk/schooldesk/pkg/logger"
)

// CreatePeriodCommand describes a period. With Save unset the period is only
// built and returned, letting callers preview the derived weekday.
type CreatePeriodCommand struct {
	Save       bool
	SchoolID   uuid.UUID
	Name       string
	Start      time.Time
	End        time.Time
	InstanceID int
}

// PeriodView is the period as built, with its derived weekday label.
type PeriodView struct {
	PeriodID   uuid.UUID `json:"period_id"`
	SchoolID   uuid.UUID `json:"school_id"`
	Name       string    `json:"name"`
	Day        string    `json:"day"`
	InstanceID int       `json:"instance_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Saved      bool      `json:"saved"`
}

// CreatePeriodHandler handles CreatePeriodCommand.
type CreatePeriodHandler struct {
	periods  timetable.PeriodRepository
	schools  SchoolChecker
	location *time.Location
	log      Logger
}

// SchoolChecker reports whether a school exists.
type SchoolChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// NewCreatePeriodHandler creates a new CreatePeriodHandler. The weekday is
// derived in loc; nil means UTC.
func NewCreatePeriodHandler(periods timetable.PeriodRepository, schools SchoolChecker, loc *time.Location, log Logger) *CreatePeriodHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CreatePeriodHandler{periods: periods, schools: schools, location: loc, log: log}
}

// Handle executes the command.
func (h *CreatePeriodHandler) Handle(ctx context.Context, cmd CreatePeriodCommand) (*shared.Result[PeriodView], error) {
	p, err := timetable.NewPeriod(timetable.NewPeriodParams{
		SchoolID:   cmd.SchoolID,
		Name:       cmd.Name,
		Start:      cmd.Start.UTC(),
		End:        cmd.End.UTC(),
		InstanceID: cmd.InstanceID,
		Location:   h.location,
	})
	if err != nil {
		return nil, err
	}

	view := PeriodView{
		PeriodID:   p.ID,
		SchoolID:   p.SchoolID,
		Name:       p.Name,
		Day:        p.Day,
		InstanceID: p.InstanceID,
		Start:      p.Start,
		End:        p.End,
	}
	if !cmd.Save {
		return shared.Success(view), nil
	}

	ok, err := h.schools.Exists(ctx, cmd.SchoolID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.ErrSchoolNotFound
	}

	if err := h.periods.Create(ctx, p); err != nil {
		return nil, err
	}
	view.Saved = true

	h.log.Info("period created",
		logger.SchoolID(p.SchoolID.String()),
		logger.String("period_id", p.ID.String()),
		logger.String("day", p.Day))
	return shared.Success(view), nil
}
