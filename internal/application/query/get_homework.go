package query

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/homework"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/domain/timetable"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// NoHomeworkMessage is the warning returned when nothing matches.
const NoHomeworkMessage = "No Homework found."

// HomeworkDTO is the read view of a homework.
type HomeworkDTO struct {
	HomeworkID  uuid.UUID   `json:"homework_id"`
	SchoolID    uuid.UUID   `json:"school_id"`
	LessonID    uuid.UUID   `json:"lesson_id"`
	TemplateID  *uuid.UUID  `json:"template_id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	DueAt       time.Time   `json:"due_at"`
	SetAt       time.Time   `json:"set_at"`
	StudentIDs  []uuid.UUID `json:"student_ids"`

	// Set only for past homework.
	EventStart *time.Time `json:"event_start,omitempty"`
	EventEnd   *time.Time `json:"event_end,omitempty"`
	PeriodID   *uuid.UUID `json:"period_id,omitempty"`
}

// NewHomeworkDTO maps a homework to the DTO.
func NewHomeworkDTO(h *homework.Homework) HomeworkDTO {
	students := h.StudentIDs
	if students == nil {
		students = []uuid.UUID{}
	}
	return HomeworkDTO{
		HomeworkID:  h.ID,
		SchoolID:    h.SchoolID,
		LessonID:    h.LessonID,
		TemplateID:  h.TemplateID,
		Title:       h.Title,
		Description: h.Description,
		Status:      h.Status.String(),
		DueAt:       h.DueAt,
		SetAt:       h.SetAt,
		StudentIDs:  students,
	}
}

// PastHomeworkQuery selects an employee's homework for ended lessons of
// one subject and group.
type PastHomeworkQuery struct {
	SchoolID       uuid.UUID
	EmployeeID     uuid.UUID
	SubjectID      uuid.UUID
	StudentGroupID uuid.UUID
}

// HomeworkQueryHandler serves homework reads.
type HomeworkQueryHandler struct {
	homework homework.Repository
	periods  timetable.PeriodRepository
	tx       SnapshotReader
	clock    timeutil.Clock
}

// NewHomeworkQueryHandler creates a new HomeworkQueryHandler.
func NewHomeworkQueryHandler(
	hw homework.Repository,
	periods timetable.PeriodRepository,
	tx SnapshotReader,
	clock timeutil.Clock,
) *HomeworkQueryHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &HomeworkQueryHandler{homework: hw, periods: periods, tx: tx, clock: clock}
}

// ForLesson lists the homework set for a lesson.
func (h *HomeworkQueryHandler) ForLesson(ctx context.Context, lessonID uuid.UUID) (*shared.Result[[]HomeworkDTO], error) {
	if lessonID == uuid.Nil {
		return nil, shared.NewDomainError("homework", "ForLesson", shared.ErrInvalidID, "lesson id is invalid")
	}

	items, err := h.homework.ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return shared.Warning[[]HomeworkDTO](NoHomeworkMessage), nil
	}

	dtos := make([]HomeworkDTO, 0, len(items))
	for _, hw := range items {
		dtos = append(dtos, NewHomeworkDTO(hw))
	}
	return shared.Success(dtos), nil
}

// Past lists homework of ended events, each tagged with the upstream
// period that has exactly the event's bounds, when there is one.
func (h *HomeworkQueryHandler) Past(ctx context.Context, q PastHomeworkQuery) (*shared.Result[[]HomeworkDTO], error) {
	if q.SchoolID == uuid.Nil {
		return nil, shared.ErrEmptySchoolID
	}
	if q.EmployeeID == uuid.Nil {
		return nil, shared.ErrEmptyEmployeeID
	}

	var (
		hasAny  bool
		items   []*homework.Past
		periods []timetable.Period
	)
	err := readSnapshot(ctx, h.tx, func(ctx context.Context) error {
		var err error
		if hasAny, err = h.homework.AnyForEmployee(ctx, q.SchoolID, q.EmployeeID); err != nil || !hasAny {
			return err
		}
		items, err = h.homework.ListPast(ctx, homework.PastFilter{
			SchoolID:       q.SchoolID,
			EmployeeID:     q.EmployeeID,
			SubjectID:      q.SubjectID,
			StudentGroupID: q.StudentGroupID,
			EndedBy:        h.clock.Now(),
		})
		if err != nil {
			return err
		}
		periods, err = h.periods.ListLinked(ctx, q.SchoolID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !hasAny {
		return shared.Warning[[]HomeworkDTO](NoHomeworkMessage), nil
	}

	dtos := make([]HomeworkDTO, 0, len(items))
	for _, past := range items {
		dto := NewHomeworkDTO(&past.Homework)
		start, end := past.EventStart, past.EventEnd
		dto.EventStart, dto.EventEnd = &start, &end
		if p, ok := timetable.MatchPeriod(periods, start, end); ok {
			id := p.ID
			dto.PeriodID = &id
		}
		dtos = append(dtos, dto)
	}
	return shared.Success(dtos), nil
}
