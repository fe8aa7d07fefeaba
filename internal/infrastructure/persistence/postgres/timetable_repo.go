package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schooldesk/schooldesk/internal/domain/timetable"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERIODS
// ══════════════════════════════════════════════════════════════════════════════

// PeriodRepository implements timetable.PeriodRepository.
type PeriodRepository struct {
	db *gorm.DB
}

// NewPeriodRepository creates a new PeriodRepository.
func NewPeriodRepository(db *gorm.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

func (r *PeriodRepository) Create(ctx context.Context, p *timetable.Period) error {
	return translate("timetable", "CreatePeriod", conn(ctx, r.db).Create(toPeriodRow(p)).Error, nil, nil)
}

// ListBetween returns periods lying wholly inside [from, to], earliest first.
func (r *PeriodRepository) ListBetween(ctx context.Context, schoolID uuid.UUID, from, to time.Time) ([]timetable.Period, error) {
	var rows []periodRow
	err := conn(ctx, r.db).
		Where("school_id = ? AND start_at >= ? AND end_at <= ?", schoolID, from.UTC(), to.UTC()).
		Order("start_at").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, storageError("timetable", "ListPeriods", err)
	}
	return periodsToDomain(rows), nil
}

// ListLinked returns periods imported from the upstream feed.
func (r *PeriodRepository) ListLinked(ctx context.Context, schoolID uuid.UUID) ([]timetable.Period, error) {
	var rows []periodRow
	err := conn(ctx, r.db).
		Where("school_id = ? AND instance_id <> 0", schoolID).
		Order("start_at").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, storageError("timetable", "ListLinkedPeriods", err)
	}
	return periodsToDomain(rows), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// EventRepository implements timetable.EventRepository.
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts the event, then its group links one by one so link ids
// follow slice order.
func (r *EventRepository) Create(ctx context.Context, e *timetable.Event) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		row := &eventRow{
			ID:         e.ID,
			SchoolID:   e.SchoolID,
			EmployeeID: e.EmployeeID,
			SubjectID:  e.SubjectID,
			StartAt:    e.Start.UTC(),
			EndAt:      e.End.UTC(),
		}
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		for i := range e.Groups {
			link := &eventGroupRow{EventID: e.ID, StudentGroupID: e.Groups[i].StudentGroupID}
			if err := tx.Create(link).Error; err != nil {
				return err
			}
			e.Groups[i].ID = link.ID
		}
		return nil
	})
	return translate("timetable", "CreateEvent", err, nil, nil)
}

type eventLink struct {
	ID             int64
	EventID        uuid.UUID
	StudentGroupID uuid.UUID
	GroupName      string
}

// ListCovering returns the employee's events that start no later than
// startBy and end no earlier than endFrom.
func (r *EventRepository) ListCovering(ctx context.Context, schoolID, employeeID uuid.UUID, startBy, endFrom time.Time) ([]timetable.Event, error) {
	db := conn(ctx, r.db)

	var rows []eventRow
	err := db.
		Where("school_id = ? AND employee_id = ?", schoolID, employeeID).
		Where("start_at <= ? AND end_at >= ?", startBy.UTC(), endFrom.UTC()).
		Order("start_at").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, storageError("timetable", "ListEvents", err)
	}
	if len(rows) == 0 {
		return []timetable.Event{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var links []eventLink
	err = db.Table("event_student_groups AS l").
		Select("l.id, l.event_id, l.student_group_id, g.group_name").
		Joins("JOIN student_groups g ON g.id = l.student_group_id").
		Where("l.event_id IN ?", ids).
		Order("l.id").
		Scan(&links).Error
	if err != nil {
		return nil, storageError("timetable", "ListEventGroups", err)
	}

	byEvent := make(map[uuid.UUID][]timetable.GroupLink, len(rows))
	for _, l := range links {
		byEvent[l.EventID] = append(byEvent[l.EventID], timetable.GroupLink{
			ID:             l.ID,
			StudentGroupID: l.StudentGroupID,
			GroupName:      l.GroupName,
		})
	}
	out := make([]timetable.Event, 0, len(rows))
	for i := range rows {
		e := rows[i].toDomain()
		e.Groups = byEvent[e.ID]
		out = append(out, e)
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSONS
// ══════════════════════════════════════════════════════════════════════════════

// LessonRepository implements timetable.LessonRepository.
type LessonRepository struct {
	db *gorm.DB
}

// NewLessonRepository creates a new LessonRepository.
func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

func (r *LessonRepository) Create(ctx context.Context, l *timetable.Lesson) error {
	row := &lessonRow{ID: l.ID, SchoolID: l.SchoolID, EventID: l.EventID}
	return translate("timetable", "CreateLesson", conn(ctx, r.db).Create(row).Error, nil, nil)
}

func (r *LessonRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := exists(ctx, r.db, &lessonRow{}, id)
	if err != nil {
		return false, storageError("timetable", "LessonExists", err)
	}
	return ok, nil
}
