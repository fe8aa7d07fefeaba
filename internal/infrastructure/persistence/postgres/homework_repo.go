package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schooldesk/schooldesk/internal/domain/homework"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HOMEWORK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// HomeworkRepository implements homework.Repository.
type HomeworkRepository struct {
	db *gorm.DB
}

// NewHomeworkRepository creates a new HomeworkRepository.
func NewHomeworkRepository(db *gorm.DB) *HomeworkRepository {
	return &HomeworkRepository{db: db}
}

func studentLinks(h *homework.Homework) []homeworkStudentRow {
	rows := make([]homeworkStudentRow, 0, len(h.StudentIDs))
	for _, id := range h.StudentIDs {
		rows = append(rows, homeworkStudentRow{HomeworkID: h.ID, StudentID: id})
	}
	return rows
}

// Create inserts the homework and its student links.
func (r *HomeworkRepository) Create(ctx context.Context, h *homework.Homework) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toHomeworkRow(h)).Error; err != nil {
			return err
		}
		if links := studentLinks(h); len(links) > 0 {
			return tx.Create(&links).Error
		}
		return nil
	})
	return translate("homework", "CreateHomework", err, nil, shared.ErrHomeworkExists)
}

// Update rewrites the row and replaces the student links.
func (r *HomeworkRepository) Update(ctx context.Context, h *homework.Homework) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&homeworkRow{ID: h.ID}).Select("*").Omit("id").Updates(toHomeworkRow(h))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return shared.ErrHomeworkNotFound
		}
		if err := tx.Where("homework_id = ?", h.ID).Delete(&homeworkStudentRow{}).Error; err != nil {
			return err
		}
		if links := studentLinks(h); len(links) > 0 {
			return tx.Create(&links).Error
		}
		return nil
	})
	return translate("homework", "UpdateHomework", err, nil, nil)
}

// Delete removes the homework and its links.
func (r *HomeworkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("homework_id = ?", id).Delete(&homeworkStudentRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&homeworkRow{}).Error
	})
	return translate("homework", "DeleteHomework", err, nil, nil)
}

func (r *HomeworkRepository) GetByID(ctx context.Context, id uuid.UUID) (*homework.Homework, error) {
	return r.first(ctx, "GetHomework", conn(ctx, r.db).Where("id = ?", id))
}

// Find matches on id, school and lesson together.
func (r *HomeworkRepository) Find(ctx context.Context, id, schoolID, lessonID uuid.UUID) (*homework.Homework, error) {
	q := conn(ctx, r.db).Where("id = ? AND school_id = ? AND lesson_id = ?", id, schoolID, lessonID)
	return r.first(ctx, "FindHomework", q)
}

func (r *HomeworkRepository) first(ctx context.Context, op string, q *gorm.DB) (*homework.Homework, error) {
	var row homeworkRow
	if err := q.First(&row).Error; err != nil {
		return nil, translate("homework", op, err, shared.ErrHomeworkNotFound, nil)
	}
	students, err := r.students(ctx, []uuid.UUID{row.ID})
	if err != nil {
		return nil, err
	}
	return row.toDomain(students[row.ID]), nil
}

// students loads the student links of every listed homework.
func (r *HomeworkRepository) students(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	out := make(map[uuid.UUID][]uuid.UUID, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []homeworkStudentRow
	if err := conn(ctx, r.db).Where("homework_id IN ?", ids).Order("student_id").Find(&rows).Error; err != nil {
		return nil, storageError("homework", "ListHomeworkStudents", err)
	}
	for _, row := range rows {
		out[row.HomeworkID] = append(out[row.HomeworkID], row.StudentID)
	}
	return out, nil
}

func (r *HomeworkRepository) Exists(ctx context.Context, id, schoolID, lessonID uuid.UUID) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&homeworkRow{}).
		Where("id = ? AND school_id = ? AND lesson_id = ?", id, schoolID, lessonID).
		Limit(1).Count(&n).Error
	if err != nil {
		return false, storageError("homework", "HomeworkExists", err)
	}
	return n > 0, nil
}

// ListByLesson returns the lesson's homework in the order it was set.
func (r *HomeworkRepository) ListByLesson(ctx context.Context, lessonID uuid.UUID) ([]*homework.Homework, error) {
	var rows []homeworkRow
	if err := conn(ctx, r.db).Where("lesson_id = ?", lessonID).Order("set_at").Order("id").Find(&rows).Error; err != nil {
		return nil, storageError("homework", "ListByLesson", err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	students, err := r.students(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*homework.Homework, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain(students[rows[i].ID]))
	}
	return out, nil
}

// AnyForEmployee reports whether the employee has homework on any of
// their events at the school.
func (r *HomeworkRepository) AnyForEmployee(ctx context.Context, schoolID, employeeID uuid.UUID) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&homeworkRow{}).
		Joins("JOIN lessons ON lessons.id = homework.lesson_id").
		Joins("JOIN events ON events.id = lessons.event_id").
		Where("homework.school_id = ? AND events.employee_id = ?", schoolID, employeeID).
		Limit(1).Count(&n).Error
	if err != nil {
		return false, storageError("homework", "AnyForEmployee", err)
	}
	return n > 0, nil
}

type pastRow struct {
	homeworkRow
	EventStart time.Time `gorm:"column:event_start"`
	EventEnd   time.Time `gorm:"column:event_end"`
}

// ListPast returns homework whose event ended by f.EndedBy and was taught
// to the group, earliest event first.
func (r *HomeworkRepository) ListPast(ctx context.Context, f homework.PastFilter) ([]*homework.Past, error) {
	var rows []pastRow
	err := conn(ctx, r.db).Model(&homeworkRow{}).
		Select("homework.*, events.start_at AS event_start, events.end_at AS event_end").
		Joins("JOIN lessons ON lessons.id = homework.lesson_id").
		Joins("JOIN events ON events.id = lessons.event_id").
		Where("homework.school_id = ? AND events.employee_id = ? AND events.subject_id = ?",
			f.SchoolID, f.EmployeeID, f.SubjectID).
		Where("events.end_at <= ?", f.EndedBy.UTC()).
		Where("EXISTS (SELECT 1 FROM event_student_groups l WHERE l.event_id = events.id AND l.student_group_id = ?)",
			f.StudentGroupID).
		Order("events.start_at").Order("homework.id").
		Scan(&rows).Error
	if err != nil {
		return nil, storageError("homework", "ListPast", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	students, err := r.students(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*homework.Past, 0, len(rows))
	for i := range rows {
		h := rows[i].homeworkRow.toDomain(students[rows[i].ID])
		out = append(out, &homework.Past{
			Homework:   *h,
			EventStart: rows[i].EventStart.UTC(),
			EventEnd:   rows[i].EventEnd.UTC(),
		})
	}
	return out, nil
}

func (r *HomeworkRepository) TemplateExists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := exists(ctx, r.db, &homeworkTemplateRow{}, id)
	if err != nil {
		return false, storageError("homework", "TemplateExists", err)
	}
	return ok, nil
}

// CreateTemplate inserts a homework template.
func (r *HomeworkRepository) CreateTemplate(ctx context.Context, id uuid.UUID, title string) error {
	err := conn(ctx, r.db).Create(&homeworkTemplateRow{ID: id, Title: title}).Error
	return translate("homework", "CreateTemplate", err, nil, nil)
}
