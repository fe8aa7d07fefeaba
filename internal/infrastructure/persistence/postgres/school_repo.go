package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schooldesk/schooldesk/internal/domain/school"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// exists reports whether a row of model matches id.
func exists(ctx context.Context, db *gorm.DB, model any, id uuid.UUID) (bool, error) {
	var n int64
	if err := conn(ctx, db).Model(model).Where("id = ?", id).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHOOLS
// ══════════════════════════════════════════════════════════════════════════════

// SchoolRepository implements school.SchoolRepository.
type SchoolRepository struct {
	db *gorm.DB
}

func NewSchoolRepository(db *gorm.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

func (r *SchoolRepository) Create(ctx context.Context, s *school.School) error {
	err := conn(ctx, r.db).Create(&schoolRow{ID: s.ID, Name: s.Name}).Error
	return translate("school", "CreateSchool", err, nil, nil)
}

func (r *SchoolRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := exists(ctx, r.db, &schoolRow{}, id)
	if err != nil {
		return false, storageError("school", "SchoolExists", err)
	}
	return ok, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMPLOYEES
// ══════════════════════════════════════════════════════════════════════════════

// EmployeeRepository implements school.EmployeeRepository.
type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create inserts the employee and links its roles by title. All writes
// share one transaction.
func (r *EmployeeRepository) Create(ctx context.Context, e *school.Employee) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		row := &employeeRow{
			ID:               e.ID,
			SchoolID:         e.SchoolID,
			Forename:         e.Forename,
			Surname:          e.Surname,
			ContactDetailsID: e.ContactDetailsID,
		}
		if err := tx.Omit("Roles").Create(row).Error; err != nil {
			return err
		}
		for i, role := range e.Roles {
			var rr roleRow
			err := tx.Where(roleRow{Title: role.Title}).
				Attrs(roleRow{ID: uuid.New()}).
				FirstOrCreate(&rr).Error
			if err != nil {
				return err
			}
			if err := tx.Create(&employeeRoleRow{EmployeeID: e.ID, RoleID: rr.ID}).Error; err != nil && !IsUniqueViolation(err) {
				return err
			}
			e.Roles[i].ID = rr.ID
		}
		return nil
	})
	return translate("school", "CreateEmployee", err, nil, nil)
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*school.Employee, error) {
	var row employeeRow
	if err := conn(ctx, r.db).Preload("Roles").Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate("school", "GetEmployee", err, shared.ErrEmployeeNotFound, nil)
	}
	return row.toDomain(), nil
}

// GetByIDs loads the listed employees and their roles. Unknown ids are
// skipped.
func (r *EmployeeRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*school.Employee, error) {
	if len(ids) == 0 {
		return []*school.Employee{}, nil
	}
	var rows []employeeRow
	if err := conn(ctx, r.db).Preload("Roles").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, storageError("school", "GetEmployees", err)
	}
	out := make([]*school.Employee, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *EmployeeRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := exists(ctx, r.db, &employeeRow{}, id)
	if err != nil {
		return false, storageError("school", "EmployeeExists", err)
	}
	return ok, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements school.StudentRepository.
type StudentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) Create(ctx context.Context, s *school.Student) error {
	row := &studentRow{ID: s.ID, SchoolID: s.SchoolID, Forename: s.Forename, Surname: s.Surname}
	return translate("school", "CreateStudent", conn(ctx, r.db).Create(row).Error, nil, nil)
}

func (r *StudentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*school.Student, error) {
	if len(ids) == 0 {
		return []*school.Student{}, nil
	}
	var rows []studentRow
	if err := conn(ctx, r.db).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, storageError("school", "GetStudents", err)
	}
	out := make([]*school.Student, 0, len(rows))
	for _, row := range rows {
		out = append(out, &school.Student{ID: row.ID, SchoolID: row.SchoolID, Forename: row.Forename, Surname: row.Surname})
	}
	return out, nil
}

func (r *StudentRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := exists(ctx, r.db, &studentRow{}, id)
	if err != nil {
		return false, storageError("school", "StudentExists", err)
	}
	return ok, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTACT DETAILS & GROUPS
// ══════════════════════════════════════════════════════════════════════════════

// ContactDetailsRepository implements school.ContactDetailsRepository.
type ContactDetailsRepository struct {
	db *gorm.DB
}

func NewContactDetailsRepository(db *gorm.DB) *ContactDetailsRepository {
	return &ContactDetailsRepository{db: db}
}

func (r *ContactDetailsRepository) Create(ctx context.Context, cd *school.ContactDetails) error {
	row := &contactDetailsRow{ID: cd.ID, PreferredEmail: cd.PreferredEmail, PreferredPhone: cd.PreferredPhone}
	return translate("school", "CreateContactDetails", conn(ctx, r.db).Create(row).Error, nil, nil)
}

func (r *ContactDetailsRepository) GetByID(ctx context.Context, id uuid.UUID) (*school.ContactDetails, error) {
	var row contactDetailsRow
	if err := conn(ctx, r.db).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate("school", "GetContactDetails", err, shared.ErrContactDetailsGone, nil)
	}
	return &school.ContactDetails{ID: row.ID, PreferredEmail: row.PreferredEmail, PreferredPhone: row.PreferredPhone}, nil
}

// Update overwrites both contact points, including with empty values.
func (r *ContactDetailsRepository) Update(ctx context.Context, cd *school.ContactDetails) error {
	res := conn(ctx, r.db).Model(&contactDetailsRow{ID: cd.ID}).Updates(map[string]any{
		"preferred_email": cd.PreferredEmail,
		"preferred_phone": cd.PreferredPhone,
	})
	if res.Error != nil {
		return storageError("school", "UpdateContactDetails", res.Error)
	}
	if res.RowsAffected == 0 {
		return shared.ErrContactDetailsGone
	}
	return nil
}

// StudentGroupRepository implements school.StudentGroupRepository.
type StudentGroupRepository struct {
	db *gorm.DB
}

func NewStudentGroupRepository(db *gorm.DB) *StudentGroupRepository {
	return &StudentGroupRepository{db: db}
}

func (r *StudentGroupRepository) Create(ctx context.Context, g *school.StudentGroup) error {
	row := &studentGroupRow{ID: g.ID, SchoolID: g.SchoolID, GroupName: g.GroupName}
	return translate("school", "CreateStudentGroup", conn(ctx, r.db).Create(row).Error, nil, nil)
}
