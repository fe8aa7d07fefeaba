package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/schooldesk/schooldesk/config"
	"github.com/schooldesk/schooldesk/internal/domain/homework"
	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/school"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/domain/timetable"
	"github.com/schooldesk/schooldesk/pkg/logger"
)

var t0 = time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schooldesk.db")
	db, err := gorm.Open(sqlite.Open(path), GormConfig(config.DatabaseConfig{}, logger.Nop()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, AutoMigrate(db))
	return db
}

func newTestUser(t *testing.T, username string) *identity.User {
	t.Helper()
	u, err := identity.NewUser(identity.NewUserParams{Username: username, PasswordHash: "hash", Now: t0})
	require.NoError(t, err)
	return u
}

// ══════════════════════════════════════════════════════════════════════════════
// Identity
// ══════════════════════════════════════════════════════════════════════════════

func TestUserRepository_CreateAndRead(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	u := newTestUser(t, "ada.lovelace@school.org")
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByUsername(ctx, "ada.lovelace@school.org")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.CreatedAt.Equal(t0))

	ok, err := repo.UsernameExists(ctx, "ada.lovelace@school.org")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UsernameExists(ctx, "ada.lovelace1@school.org")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	require.NoError(t, repo.Create(ctx, newTestUser(t, "jsmith")))
	err := repo.Create(ctx, newTestUser(t, "jsmith"))
	assert.ErrorIs(t, err, shared.ErrUsernameTaken)
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	u := newTestUser(t, "jsmith")
	require.NoError(t, repo.Create(ctx, u))

	u.SetContact("j@example.org", "")
	u.RecordLogin(t0.Add(time.Hour))
	require.NoError(t, repo.Update(ctx, u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "j@example.org", got.Email)
	assert.Equal(t, shared.ContactMethodEmail, got.PreferredContact)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.LastLoginAt.Equal(t0.Add(time.Hour)))

	missing := newTestUser(t, "ghost")
	assert.ErrorIs(t, repo.Update(ctx, missing), shared.ErrUserNotFound)
}

func TestUserRepository_DevicesAndRoles(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	b := newTestUser(t, "b.user")
	a := newTestUser(t, "a.user")
	require.NoError(t, repo.Create(ctx, b))
	require.NoError(t, repo.Create(ctx, a))

	require.NoError(t, repo.RegisterDevice(ctx, identity.Device{DeviceID: "dev-1", UserID: b.ID}))
	require.NoError(t, repo.RegisterDevice(ctx, identity.Device{DeviceID: "dev-1", UserID: a.ID}))
	require.NoError(t, repo.RegisterDevice(ctx, identity.Device{DeviceID: "dev-1", UserID: a.ID}))

	ok, err := repo.DeviceExists(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, ok)

	users, err := repo.ListByDevice(ctx, "dev-1")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a.user", users[0].Username)

	require.NoError(t, repo.AddAuthorizationRoles(ctx, a.ID, []identity.AuthorizationRole{identity.RoleTeacher}))
	require.NoError(t, repo.AddAuthorizationRoles(ctx, a.ID, []identity.AuthorizationRole{identity.RoleTeacher, identity.RoleSchoolAdmin}))
	roles, err := repo.ListAuthorizationRoles(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []identity.AuthorizationRole{identity.RoleTeacher, identity.RoleSchoolAdmin}, roles)
}

func TestMembershipRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewMembershipRepository(db)

	u := newTestUser(t, "jsmith")
	require.NoError(t, users.Create(ctx, u))

	schoolID, principal := uuid.New(), uuid.New()
	second, err := identity.NewMembership(u.ID, schoolID, shared.UserTypeStudent, uuid.New(), t0.Add(time.Minute))
	require.NoError(t, err)
	first, err := identity.NewMembership(u.ID, schoolID, shared.UserTypeEmployee, principal, t0)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	dup, err := identity.NewMembership(u.ID, schoolID, shared.UserTypeEmployee, principal, t0)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrMembershipExists)

	got, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, shared.UserTypeStudent, got[1].UserType)
}

func TestMembershipRepository_RejectsParentRows(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)
	repo := NewMembershipRepository(db)

	u := newTestUser(t, "ghopper")
	require.NoError(t, users.Create(ctx, u))

	// Built by hand: NewMembership refuses parents before the store sees them.
	m := &identity.Membership{
		ID: uuid.New(), UserID: u.ID, SchoolID: uuid.New(),
		UserType: shared.UserTypeParent, UserTypeID: uuid.New(), CreatedAt: t0,
	}
	assert.ErrorIs(t, repo.Create(ctx, m), shared.ErrIntegrity)

	got, err := repo.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSettingRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingRepository(openTestDB(t))
	schoolID := uuid.New()

	_, err := repo.Get(ctx, identity.SettingOrgEmailFormat, nil)
	assert.ErrorIs(t, err, shared.ErrSettingNotFound)
	assert.True(t, shared.IsFatal(err))

	require.NoError(t, repo.Put(ctx, &identity.Setting{Type: identity.SettingOrgEmailFormat, Value: "f.surname@org.com"}))
	require.NoError(t, repo.Put(ctx, &identity.Setting{Type: identity.SettingOrgEmailFormat, Value: "forename.surname@org.com"}))
	require.NoError(t, repo.Put(ctx, &identity.Setting{Type: identity.SettingSchoolEmailFormat, SchoolID: &schoolID, Value: "fs@school.org"}))

	got, err := repo.Get(ctx, identity.SettingOrgEmailFormat, nil)
	require.NoError(t, err)
	assert.Equal(t, "forename.surname@org.com", got.Value)
	assert.Nil(t, got.SchoolID)

	got, err = repo.Get(ctx, identity.SettingSchoolEmailFormat, &schoolID)
	require.NoError(t, err)
	assert.Equal(t, "fs@school.org", got.Value)

	_, err = repo.Get(ctx, identity.SettingSchoolEmailFormat, nil)
	assert.ErrorIs(t, err, shared.ErrSettingNotFound)
}

// ══════════════════════════════════════════════════════════════════════════════
// School
// ══════════════════════════════════════════════════════════════════════════════

func TestEmployeeRepository_RolesAndContacts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	schools := NewSchoolRepository(db)
	employees := NewEmployeeRepository(db)
	contacts := NewContactDetailsRepository(db)

	s := &school.School{ID: uuid.New(), Name: "Hillside"}
	require.NoError(t, schools.Create(ctx, s))

	cd := &school.ContactDetails{ID: uuid.New(), PreferredEmail: "old@hillside.org"}
	require.NoError(t, contacts.Create(ctx, cd))

	first := &school.Employee{ID: uuid.New(), SchoolID: s.ID, Forename: "Jo", Surname: "Smith", ContactDetailsID: &cd.ID,
		Roles: []school.Role{{Title: "Teacher"}, {Title: "Head of Year"}}}
	second := &school.Employee{ID: uuid.New(), SchoolID: s.ID, Forename: "Al", Surname: "Jones",
		Roles: []school.Role{{Title: "Teacher"}}}
	require.NoError(t, employees.Create(ctx, first))
	require.NoError(t, employees.Create(ctx, second))
	assert.Equal(t, first.Roles[0].ID, second.Roles[0].ID)

	got, err := employees.GetByIDs(ctx, []uuid.UUID{first.ID, second.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, got, 2)
	byID := school.IndexEmployees(got)
	assert.Equal(t, []string{"Head of Year", "Teacher"}, byID[first.ID].RoleTitles())
	require.NotNil(t, byID[first.ID].ContactDetailsID)

	cd.PreferredEmail = "new@hillside.org"
	cd.PreferredPhone = "021 555"
	require.NoError(t, contacts.Update(ctx, cd))
	gotCD, err := contacts.GetByID(ctx, cd.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@hillside.org", gotCD.PreferredEmail)

	_, err = contacts.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrContactDetailsGone)

	_, err = employees.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrEmployeeNotFound)

	ok, err := schools.Exists(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

// ══════════════════════════════════════════════════════════════════════════════
// Timetable
// ══════════════════════════════════════════════════════════════════════════════

type timetableFixture struct {
	schoolID   uuid.UUID
	employeeID uuid.UUID
	subjectID  uuid.UUID
	groups     []*school.StudentGroup
	events     *EventRepository
	periods    *PeriodRepository
	lessons    *LessonRepository
}

func newTimetableFixture(t *testing.T, db *gorm.DB) *timetableFixture {
	t.Helper()
	ctx := context.Background()
	f := &timetableFixture{
		schoolID:   uuid.New(),
		employeeID: uuid.New(),
		subjectID:  uuid.New(),
		events:     NewEventRepository(db),
		periods:    NewPeriodRepository(db),
		lessons:    NewLessonRepository(db),
	}
	require.NoError(t, NewSchoolRepository(db).Create(ctx, &school.School{ID: f.schoolID, Name: "Hillside"}))
	require.NoError(t, NewEmployeeRepository(db).Create(ctx, &school.Employee{
		ID: f.employeeID, SchoolID: f.schoolID, Forename: "Jo", Surname: "Smith",
	}))
	groups := NewStudentGroupRepository(db)
	for _, name := range []string{"9C Maths", "7B Maths"} {
		g := &school.StudentGroup{ID: uuid.New(), SchoolID: f.schoolID, GroupName: name}
		require.NoError(t, groups.Create(ctx, g))
		f.groups = append(f.groups, g)
	}
	return f
}

func (f *timetableFixture) event(t *testing.T, start, end time.Time, groups ...*school.StudentGroup) *timetable.Event {
	t.Helper()
	e := &timetable.Event{ID: uuid.New(), SchoolID: f.schoolID, EmployeeID: f.employeeID, SubjectID: f.subjectID, Start: start, End: end}
	for _, g := range groups {
		e.Groups = append(e.Groups, timetable.GroupLink{StudentGroupID: g.ID})
	}
	require.NoError(t, f.events.Create(context.Background(), e))
	return e
}

func TestPeriodRepository_ListBetween(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	f := newTimetableFixture(t, db)

	loc := time.UTC
	mk := func(name string, start time.Time) *timetable.Period {
		p, err := timetable.NewPeriod(timetable.NewPeriodParams{
			SchoolID: f.schoolID, Name: name, Start: start, End: start.Add(time.Hour), Location: loc,
		})
		require.NoError(t, err)
		require.NoError(t, f.periods.Create(ctx, p))
		return p
	}
	mk("P2", t0.Add(time.Hour))
	mk("P1", t0)
	mk("Late", t0.Add(10*time.Hour))
	mk("Linked", t0.Add(2*time.Hour))

	got, err := f.periods.ListBetween(ctx, f.schoolID, t0, t0.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "P1", got[0].Name)
	assert.Equal(t, "P2", got[1].Name)
	assert.Equal(t, "Monday", got[0].Day)

	got, err = f.periods.ListBetween(ctx, uuid.New(), t0, t0.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventRepository_ListCoveringOrdersLinks(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	f := newTimetableFixture(t, db)

	later := f.event(t, t0.Add(time.Hour), t0.Add(2*time.Hour), f.groups[1])
	first := f.event(t, t0, t0.Add(time.Hour), f.groups[1], f.groups[0])
	f.event(t, t0.Add(5*time.Hour), t0.Add(6*time.Hour), f.groups[0])

	require.Len(t, first.Groups, 2)
	assert.Less(t, first.Groups[0].ID, first.Groups[1].ID)

	got, err := f.events.ListCovering(ctx, f.schoolID, f.employeeID, t0.Add(3*time.Hour), t0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)

	name, ok := got[0].FirstGroupName()
	require.True(t, ok)
	assert.Equal(t, "7B Maths", name)
	assert.Equal(t, "7B Maths", got[0].Groups[0].GroupName)

	got, err = f.events.ListCovering(ctx, f.schoolID, uuid.New(), t0.Add(3*time.Hour), t0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// ══════════════════════════════════════════════════════════════════════════════
// Homework
// ══════════════════════════════════════════════════════════════════════════════

func TestHomeworkRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	f := newTimetableFixture(t, db)
	repo := NewHomeworkRepository(db)
	students := NewStudentRepository(db)

	ev := f.event(t, t0, t0.Add(time.Hour), f.groups[1])
	lesson := &timetable.Lesson{ID: uuid.New(), SchoolID: f.schoolID, EventID: ev.ID}
	require.NoError(t, f.lessons.Create(ctx, lesson))

	st := &school.Student{ID: uuid.New(), SchoolID: f.schoolID, Forename: "Ada", Surname: "Lovelace"}
	require.NoError(t, students.Create(ctx, st))

	h := &homework.Homework{
		ID: uuid.New(), SchoolID: f.schoolID, LessonID: lesson.ID, Title: "Fractions",
		Status: homework.StatusSet, SetAt: t0, DueAt: t0.Add(48 * time.Hour), StudentIDs: []uuid.UUID{st.ID},
	}
	require.NoError(t, repo.Create(ctx, h))
	assert.ErrorIs(t, repo.Create(ctx, h), shared.ErrHomeworkExists)

	got, err := repo.Find(ctx, h.ID, f.schoolID, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fractions", got.Title)
	assert.Equal(t, homework.StatusSet, got.Status)
	assert.Equal(t, []uuid.UUID{st.ID}, got.StudentIDs)
	assert.True(t, got.DueAt.Equal(t0.Add(48*time.Hour)))

	_, err = repo.Find(ctx, h.ID, uuid.New(), lesson.ID)
	assert.ErrorIs(t, err, shared.ErrHomeworkNotFound)

	h.Title = "Fractions II"
	h.StudentIDs = nil
	require.NoError(t, repo.Update(ctx, h))
	got, err = repo.GetByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fractions II", got.Title)
	assert.Empty(t, got.StudentIDs)

	list, err := repo.ListByLesson(ctx, lesson.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, h.ID))
	_, err = repo.GetByID(ctx, h.ID)
	assert.ErrorIs(t, err, shared.ErrHomeworkNotFound)

	missing := *h
	missing.ID = uuid.New()
	assert.ErrorIs(t, repo.Update(ctx, &missing), shared.ErrHomeworkNotFound)
}

func TestHomeworkRepository_ListPast(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	f := newTimetableFixture(t, db)
	repo := NewHomeworkRepository(db)

	add := func(e *timetable.Event, title string) {
		l := &timetable.Lesson{ID: uuid.New(), SchoolID: f.schoolID, EventID: e.ID}
		require.NoError(t, f.lessons.Create(ctx, l))
		require.NoError(t, repo.Create(ctx, &homework.Homework{
			ID: uuid.New(), SchoolID: f.schoolID, LessonID: l.ID, Title: title, SetAt: e.Start,
		}))
	}
	day := 24 * time.Hour
	add(f.event(t, t0.Add(-day), t0.Add(-day+time.Hour), f.groups[1]), "yesterday")
	add(f.event(t, t0.Add(-2*day), t0.Add(-2*day+time.Hour), f.groups[1]), "two days ago")
	add(f.event(t, t0.Add(-day), t0.Add(-day+time.Hour), f.groups[0]), "other group")
	add(f.event(t, t0.Add(day), t0.Add(day+time.Hour), f.groups[1]), "tomorrow")

	hasAny, err := repo.AnyForEmployee(ctx, f.schoolID, f.employeeID)
	require.NoError(t, err)
	assert.True(t, hasAny)

	hasAny, err = repo.AnyForEmployee(ctx, f.schoolID, uuid.New())
	require.NoError(t, err)
	assert.False(t, hasAny)

	past, err := repo.ListPast(ctx, homework.PastFilter{
		SchoolID: f.schoolID, EmployeeID: f.employeeID, SubjectID: f.subjectID,
		StudentGroupID: f.groups[1].ID, EndedBy: t0,
	})
	require.NoError(t, err)
	require.Len(t, past, 2)
	assert.Equal(t, "two days ago", past[0].Title)
	assert.Equal(t, "yesterday", past[1].Title)
	assert.True(t, past[1].EventStart.Equal(t0.Add(-day)))
}

// ══════════════════════════════════════════════════════════════════════════════
// Transactions
// ══════════════════════════════════════════════════════════════════════════════

func TestTxManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	tx := NewTxManager(db)
	users := NewUserRepository(db)

	u := newTestUser(t, "rolled.back")
	boom := errors.New("boom")
	err := tx.WithTx(ctx, func(ctx context.Context) error {
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		// Nested calls join the outer transaction.
		return tx.WithTx(ctx, func(ctx context.Context) error {
			ok, err := users.UsernameExists(ctx, "rolled.back")
			require.NoError(t, err)
			assert.True(t, ok)
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	_, err = users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, shared.ErrUserNotFound)

	require.NoError(t, tx.WithTx(ctx, func(ctx context.Context) error { return users.Create(ctx, u) }))
	require.NoError(t, tx.ReadSnapshot(ctx, func(ctx context.Context) error {
		_, err := users.GetByID(ctx, u.ID)
		return err
	}))
}
