package command

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/homework"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/domain/timetable"
	"github.com/schooldesk/schooldesk/pkg/logger"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HOMEWORK COMMANDS
// Create, update and remove homework. Requests are checked against the
// school, the lesson and the optional template before anything is written.
// ══════════════════════════════════════════════════════════════════════════════

// HomeworkCommand carries the fields of a homework write.
type HomeworkCommand struct {
	ID          uuid.UUID
	SchoolID    uuid.UUID
	LessonID    uuid.UUID
	TemplateID  *uuid.UUID
	Title       string
	Description string
	Status      homework.Status
	DueAt       time.Time
	StudentIDs  []uuid.UUID
}

func (c HomeworkCommand) toHomework(setAt time.Time) *homework.Homework {
	return &homework.Homework{
		ID:          c.ID,
		SchoolID:    c.SchoolID,
		LessonID:    c.LessonID,
		TemplateID:  c.TemplateID,
		Title:       strings.TrimSpace(c.Title),
		Description: c.Description,
		Status:      c.Status,
		DueAt:       c.DueAt,
		SetAt:       setAt,
		StudentIDs:  dedupeIDs(c.StudentIDs),
	}
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// HomeworkHandler handles the homework write commands.
type HomeworkHandler struct {
	homework homework.Repository
	schools  SchoolChecker
	lessons  timetable.LessonRepository
	tx       Transactor
	clock    timeutil.Clock
	log      Logger
}

// NewHomeworkHandler creates a new HomeworkHandler.
func NewHomeworkHandler(
	hw homework.Repository,
	schools SchoolChecker,
	lessons timetable.LessonRepository,
	tx Transactor,
	clock timeutil.Clock,
	log Logger,
) *HomeworkHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &HomeworkHandler{homework: hw, schools: schools, lessons: lessons, tx: tx, clock: clock, log: log}
}

// validate runs the field checks, then the reference checks.
func (h *HomeworkHandler) validate(ctx context.Context, hw *homework.Homework) error {
	if err := hw.Validate(); err != nil {
		return err
	}

	ok, err := h.schools.Exists(ctx, hw.SchoolID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrSchoolNotFound
	}

	if ok, err = h.lessons.Exists(ctx, hw.LessonID); err != nil {
		return err
	}
	if !ok {
		return shared.ErrLessonNotFound
	}

	if hw.HasTemplate() {
		if ok, err = h.homework.TemplateExists(ctx, *hw.TemplateID); err != nil {
			return err
		}
		if !ok {
			return shared.ErrTemplateNotFound
		}
	}
	return nil
}

// Create inserts a new homework. A homework with the same id, school and
// lesson is a conflict.
func (h *HomeworkHandler) Create(ctx context.Context, cmd HomeworkCommand) (*shared.Result[*homework.Homework], error) {
	hw := cmd.toHomework(h.clock.Now().UTC())

	err := withTx(ctx, h.tx, func(ctx context.Context) error {
		if err := h.validate(ctx, hw); err != nil {
			return err
		}
		exists, err := h.homework.Exists(ctx, hw.ID, hw.SchoolID, hw.LessonID)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrHomeworkExists
		}
		return h.homework.Create(ctx, hw)
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("homework created",
		logger.String("homework_id", hw.ID.String()), logger.SchoolID(hw.SchoolID.String()))
	return shared.Success(hw), nil
}

// Update replaces a homework and its student links. The original set time
// is kept.
func (h *HomeworkHandler) Update(ctx context.Context, cmd HomeworkCommand) (*shared.Result[*homework.Homework], error) {
	var hw *homework.Homework

	err := withTx(ctx, h.tx, func(ctx context.Context) error {
		current, err := h.homework.Find(ctx, cmd.ID, cmd.SchoolID, cmd.LessonID)
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.ErrHomeworkNotFound
			}
			return err
		}

		hw = cmd.toHomework(current.SetAt)
		if err := h.validate(ctx, hw); err != nil {
			return err
		}
		return h.homework.Update(ctx, hw)
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("homework updated", logger.String("homework_id", hw.ID.String()))
	return shared.Success(hw), nil
}

// Remove deletes a homework and returns what was removed.
func (h *HomeworkHandler) Remove(ctx context.Context, id uuid.UUID) (*shared.Result[*homework.Homework], error) {
	if id == uuid.Nil {
		return nil, shared.NewDomainError("homework", "Remove", shared.ErrInvalidID, "homework id is invalid")
	}

	var hw *homework.Homework
	err := withTx(ctx, h.tx, func(ctx context.Context) error {
		var err error
		if hw, err = h.homework.GetByID(ctx, id); err != nil {
			return err
		}
		return h.homework.Delete(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("homework removed", logger.String("homework_id", id.String()))
	return shared.Success(hw), nil
}
