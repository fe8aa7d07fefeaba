package postgres

import (
	"time"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROW MODELS
// One struct per table. The PostgreSQL schema lives in migrations/; tests
// build the same tables on SQLite through AutoMigrate.
// ══════════════════════════════════════════════════════════════════════════════

type userRow struct {
	ID                 uuid.UUID `gorm:"primaryKey"`
	Username           string    `gorm:"uniqueIndex;not null"`
	PasswordHash       string    `gorm:"not null"`
	AssistantNickname  string
	AssistantPassCode  string
	PassCodeCreatedAt  time.Time
	LastAssistantUseAt *time.Time
	LastLoginAt        *time.Time
	PreferredContact   int
	Email              string
	Phone              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (userRow) TableName() string { return "users" }

type deviceRow struct {
	DeviceID string    `gorm:"primaryKey"`
	UserID   uuid.UUID `gorm:"primaryKey"`
}

func (deviceRow) TableName() string { return "devices" }

type userRoleRow struct {
	UserID uuid.UUID `gorm:"primaryKey"`
	Role   string    `gorm:"primaryKey"`
}

func (userRoleRow) TableName() string { return "user_authorization_roles" }

type membershipRow struct {
	ID         uuid.UUID `gorm:"primaryKey"`
	UserID     uuid.UUID `gorm:"uniqueIndex:ux_user_schools_link;index;not null"`
	SchoolID   uuid.UUID `gorm:"uniqueIndex:ux_user_schools_link;not null"`
	UserType   int       `gorm:"uniqueIndex:ux_user_schools_link;not null;check:valid_user_type,user_type IN (1, 2)"`
	UserTypeID uuid.UUID `gorm:"uniqueIndex:ux_user_schools_link;not null"`
	CreatedAt  time.Time
}

func (membershipRow) TableName() string { return "user_schools" }

type settingRow struct {
	ID          uuid.UUID  `gorm:"primaryKey"`
	SettingType string     `gorm:"index;not null"`
	SchoolID    *uuid.UUID `gorm:"index"`
	Value       string     `gorm:"not null"`
}

func (settingRow) TableName() string { return "settings" }

type schoolRow struct {
	ID   uuid.UUID `gorm:"primaryKey"`
	Name string    `gorm:"not null"`
}

func (schoolRow) TableName() string { return "schools" }

type roleRow struct {
	ID    uuid.UUID `gorm:"primaryKey"`
	Title string    `gorm:"uniqueIndex;not null"`
}

func (roleRow) TableName() string { return "roles" }

type employeeRow struct {
	ID               uuid.UUID `gorm:"primaryKey"`
	SchoolID         uuid.UUID `gorm:"index;not null"`
	Forename         string    `gorm:"not null"`
	Surname          string    `gorm:"not null"`
	ContactDetailsID *uuid.UUID
	Roles            []roleRow `gorm:"many2many:employee_roles;joinForeignKey:EmployeeID;joinReferences:RoleID"`
}

func (employeeRow) TableName() string { return "employees" }

type employeeRoleRow struct {
	EmployeeID uuid.UUID `gorm:"primaryKey"`
	RoleID     uuid.UUID `gorm:"primaryKey"`
}

func (employeeRoleRow) TableName() string { return "employee_roles" }

type studentRow struct {
	ID       uuid.UUID `gorm:"primaryKey"`
	SchoolID uuid.UUID `gorm:"index;not null"`
	Forename string    `gorm:"not null"`
	Surname  string    `gorm:"not null"`
}

func (studentRow) TableName() string { return "students" }

type contactDetailsRow struct {
	ID             uuid.UUID `gorm:"primaryKey"`
	PreferredEmail string
	PreferredPhone string
}

func (contactDetailsRow) TableName() string { return "contact_details" }

type studentGroupRow struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	SchoolID  uuid.UUID `gorm:"index;not null"`
	GroupName string    `gorm:"not null"`
}

func (studentGroupRow) TableName() string { return "student_groups" }

type periodRow struct {
	ID         uuid.UUID `gorm:"primaryKey"`
	SchoolID   uuid.UUID `gorm:"index:ix_periods_school_start;not null"`
	Name       string    `gorm:"not null"`
	Day        string    `gorm:"not null"`
	InstanceID int       `gorm:"not null;default:0"`
	StartAt    time.Time `gorm:"index:ix_periods_school_start;not null"`
	EndAt      time.Time `gorm:"not null"`
}

func (periodRow) TableName() string { return "periods" }

type eventRow struct {
	ID         uuid.UUID `gorm:"primaryKey"`
	SchoolID   uuid.UUID `gorm:"index:ix_events_school_employee;not null"`
	EmployeeID uuid.UUID `gorm:"index:ix_events_school_employee;not null"`
	SubjectID  uuid.UUID `gorm:"not null"`
	StartAt    time.Time `gorm:"not null"`
	EndAt      time.Time `gorm:"not null"`
}

func (eventRow) TableName() string { return "events" }

// eventGroupRow links an event to a student group. ID is the insertion
// order and decides which group labels the event.
type eventGroupRow struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	EventID        uuid.UUID `gorm:"index;not null"`
	StudentGroupID uuid.UUID `gorm:"not null"`
}

func (eventGroupRow) TableName() string { return "event_student_groups" }

type lessonRow struct {
	ID       uuid.UUID `gorm:"primaryKey"`
	SchoolID uuid.UUID `gorm:"index;not null"`
	EventID  uuid.UUID `gorm:"index;not null"`
}

func (lessonRow) TableName() string { return "lessons" }

type homeworkRow struct {
	ID          uuid.UUID  `gorm:"primaryKey"`
	SchoolID    uuid.UUID  `gorm:"index;not null"`
	LessonID    uuid.UUID  `gorm:"index;not null"`
	TemplateID  *uuid.UUID
	Title       string     `gorm:"not null"`
	Description string
	Status      string     `gorm:"not null"`
	DueAt       *time.Time
	SetAt       time.Time  `gorm:"not null"`
}

func (homeworkRow) TableName() string { return "homework" }

type homeworkStudentRow struct {
	HomeworkID uuid.UUID `gorm:"primaryKey"`
	StudentID  uuid.UUID `gorm:"primaryKey"`
}

func (homeworkStudentRow) TableName() string { return "homework_students" }

type homeworkTemplateRow struct {
	ID    uuid.UUID `gorm:"primaryKey"`
	Title string    `gorm:"not null"`
}

func (homeworkTemplateRow) TableName() string { return "homework_templates" }

// allModels lists every row model, in dependency order.
func allModels() []any {
	return []any{
		&userRow{}, &deviceRow{}, &userRoleRow{}, &membershipRow{}, &settingRow{},
		&schoolRow{}, &roleRow{}, &contactDetailsRow{}, &employeeRow{}, &employeeRoleRow{}, &studentRow{}, &studentGroupRow{},
		&periodRow{}, &eventRow{}, &eventGroupRow{}, &lessonRow{},
		&homeworkTemplateRow{}, &homeworkRow{}, &homeworkStudentRow{},
	}
}
