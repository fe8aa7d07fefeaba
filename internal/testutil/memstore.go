// Package testutil provides in-memory repositories for application tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/homework"
	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/school"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/internal/domain/timetable"
	"github.com/schooldesk/schooldesk/pkg/logger"
)

// Store keeps every aggregate in maps behind one mutex. Each accessor
// method returns a view implementing one repository interface.
type Store struct {
	mu sync.Mutex

	users       map[uuid.UUID]*identity.User
	devices     []identity.Device
	authRoles   map[uuid.UUID][]identity.AuthorizationRole
	memberships []identity.Membership
	settings    []identity.Setting

	schools   map[uuid.UUID]*school.School
	employees map[uuid.UUID]*school.Employee
	students  map[uuid.UUID]*school.Student
	contacts  map[uuid.UUID]*school.ContactDetails
	groups    map[uuid.UUID]*school.StudentGroup

	periods   []timetable.Period
	events    []timetable.Event
	lessons   map[uuid.UUID]*timetable.Lesson
	nextLink  int64
	homework  map[uuid.UUID]*homework.Homework
	templates map[uuid.UUID]bool

	// Fail, when set, is returned by the named operation, e.g. "users.Create".
	Fail map[string]error
	// Calls counts operations by name.
	Calls map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:     map[uuid.UUID]*identity.User{},
		authRoles: map[uuid.UUID][]identity.AuthorizationRole{},
		schools:   map[uuid.UUID]*school.School{},
		employees: map[uuid.UUID]*school.Employee{},
		students:  map[uuid.UUID]*school.Student{},
		contacts:  map[uuid.UUID]*school.ContactDetails{},
		groups:    map[uuid.UUID]*school.StudentGroup{},
		lessons:   map[uuid.UUID]*timetable.Lesson{},
		homework:  map[uuid.UUID]*homework.Homework{},
		templates: map[uuid.UUID]bool{},
		Fail:      map[string]error{},
		Calls:     map[string]int{},
	}
}

func (s *Store) enter(op string) error {
	s.Calls[op]++
	return s.Fail[op]
}

// ReadSnapshot runs fn directly.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	s.Calls["tx.ReadSnapshot"]++
	s.mu.Unlock()
	return fn(ctx)
}

// WithTx runs fn directly.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	s.Calls["tx.WithTx"]++
	s.mu.Unlock()
	return fn(ctx)
}

// CallCount returns how often op ran.
func (s *Store) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[op]
}

// ═══════════════════════════════════════════════════════════════════════════
// Seeding helpers
// ═══════════════════════════════════════════════════════════════════════════

// AddTemplate registers a homework template id.
func (s *Store) AddTemplate(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[id] = true
}

// PutSetting stores a setting.
func (s *Store) PutSetting(t identity.SettingType, schoolID *uuid.UUID, value string) {
	_ = s.Settings().Put(context.Background(), &identity.Setting{ID: uuid.New(), Type: t, SchoolID: schoolID, Value: value})
}

// DeleteStudent removes a student, leaving memberships dangling.
func (s *Store) DeleteStudent(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.students, id)
}

// ═══════════════════════════════════════════════════════════════════════════
// Users
// ═══════════════════════════════════════════════════════════════════════════

// Users returns the user repository view.
func (s *Store) Users() identity.UserRepository { return userRepo{s} }

type userRepo struct{ s *Store }

func cloneUser(u *identity.User) *identity.User {
	c := *u
	return &c
}

func (r userRepo) Create(_ context.Context, u *identity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("users.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return shared.ErrUsernameTaken
		}
	}
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r userRepo) Update(_ context.Context, u *identity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("users.Update"); err != nil {
		return err
	}
	if _, ok := r.s.users[u.ID]; !ok {
		return shared.ErrUserNotFound
	}
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r userRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r userRepo) GetByUsername(_ context.Context, username string) (*identity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("users.GetByUsername"); err != nil {
		return nil, err
	}
	for _, u := range r.s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (r userRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("users.UsernameExists"); err != nil {
		return false, err
	}
	for _, u := range r.s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r userRepo) List(_ context.Context) ([]*identity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*identity.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r userRepo) DeviceExists(_ context.Context, deviceID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.devices {
		if d.DeviceID == deviceID {
			return true, nil
		}
	}
	return false, nil
}

func (r userRepo) ListByDevice(_ context.Context, deviceID string) ([]*identity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*identity.User
	for _, d := range r.s.devices {
		if u, ok := r.s.users[d.UserID]; ok && d.DeviceID == deviceID {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

// RegisterDevice accepts devices for unknown users so tests can model a
// device whose users were never created.
func (r userRepo) RegisterDevice(_ context.Context, d identity.Device) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.devices = append(r.s.devices, d)
	return nil
}

func (r userRepo) AddAuthorizationRoles(_ context.Context, userID uuid.UUID, roles []identity.AuthorizationRole) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("users.AddAuthorizationRoles"); err != nil {
		return err
	}
	r.s.authRoles[userID] = append(r.s.authRoles[userID], roles...)
	return nil
}

func (r userRepo) ListAuthorizationRoles(_ context.Context, userID uuid.UUID) ([]identity.AuthorizationRole, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]identity.AuthorizationRole(nil), r.s.authRoles[userID]...), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Memberships & Settings
// ═══════════════════════════════════════════════════════════════════════════

// Memberships returns the membership repository view.
func (s *Store) Memberships() identity.MembershipRepository { return membershipRepo{s} }

type membershipRepo struct{ s *Store }

func (r membershipRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]identity.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("memberships.ListByUser"); err != nil {
		return nil, err
	}
	var out []identity.Membership
	for _, m := range r.s.memberships {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r membershipRepo) Create(_ context.Context, m *identity.Membership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.memberships {
		if existing.UserID == m.UserID && existing.SchoolID == m.SchoolID &&
			existing.UserType == m.UserType && existing.UserTypeID == m.UserTypeID {
			return shared.ErrMembershipExists
		}
	}
	r.s.memberships = append(r.s.memberships, *m)
	return nil
}

// Settings returns the setting repository view.
func (s *Store) Settings() identity.SettingRepository { return settingRepo{s} }

type settingRepo struct{ s *Store }

func sameSchool(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r settingRepo) Get(_ context.Context, t identity.SettingType, schoolID *uuid.UUID) (*identity.Setting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.settings {
		if st.Type == t && sameSchool(st.SchoolID, schoolID) {
			c := st
			return &c, nil
		}
	}
	return nil, shared.ErrSettingNotFound
}

func (r settingRepo) Put(_ context.Context, st *identity.Setting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.settings {
		if existing.Type == st.Type && sameSchool(existing.SchoolID, st.SchoolID) {
			r.s.settings[i].Value = st.Value
			return nil
		}
	}
	r.s.settings = append(r.s.settings, *st)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// School
// ═══════════════════════════════════════════════════════════════════════════

// Schools returns the school repository view.
func (s *Store) Schools() school.SchoolRepository { return schoolRepo{s} }

type schoolRepo struct{ s *Store }

func (r schoolRepo) Create(_ context.Context, sc *school.School) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *sc
	r.s.schools[sc.ID] = &c
	return nil
}

func (r schoolRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.schools[id]
	return ok, nil
}

// Employees returns the employee repository view.
func (s *Store) Employees() school.EmployeeRepository { return employeeRepo{s} }

type employeeRepo struct{ s *Store }

func cloneEmployee(e *school.Employee) *school.Employee {
	c := *e
	c.Roles = append([]school.Role(nil), e.Roles...)
	return &c
}

func (r employeeRepo) Create(_ context.Context, e *school.Employee) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.employees[e.ID] = cloneEmployee(e)
	return nil
}

func (r employeeRepo) GetByID(_ context.Context, id uuid.UUID) (*school.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.employees[id]
	if !ok {
		return nil, shared.ErrEmployeeNotFound
	}
	return cloneEmployee(e), nil
}

func (r employeeRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*school.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("employees.GetByIDs"); err != nil {
		return nil, err
	}
	var out []*school.Employee
	for _, id := range ids {
		if e, ok := r.s.employees[id]; ok {
			out = append(out, cloneEmployee(e))
		}
	}
	return out, nil
}

func (r employeeRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.employees[id]
	return ok, nil
}

// Students returns the student repository view.
func (s *Store) Students() school.StudentRepository { return studentRepo{s} }

type studentRepo struct{ s *Store }

func (r studentRepo) Create(_ context.Context, st *school.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *st
	r.s.students[st.ID] = &c
	return nil
}

func (r studentRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*school.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("students.GetByIDs"); err != nil {
		return nil, err
	}
	var out []*school.Student
	for _, id := range ids {
		if st, ok := r.s.students[id]; ok {
			c := *st
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r studentRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.students[id]
	return ok, nil
}

// ContactDetails returns the contact details repository view.
func (s *Store) ContactDetails() school.ContactDetailsRepository { return contactRepo{s} }

type contactRepo struct{ s *Store }

func (r contactRepo) Create(_ context.Context, cd *school.ContactDetails) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *cd
	r.s.contacts[cd.ID] = &c
	return nil
}

func (r contactRepo) GetByID(_ context.Context, id uuid.UUID) (*school.ContactDetails, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cd, ok := r.s.contacts[id]
	if !ok {
		return nil, shared.ErrContactDetailsGone
	}
	c := *cd
	return &c, nil
}

func (r contactRepo) Update(_ context.Context, cd *school.ContactDetails) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contacts[cd.ID]; !ok {
		return shared.ErrContactDetailsGone
	}
	c := *cd
	r.s.contacts[cd.ID] = &c
	return nil
}

// Groups returns the student group repository view.
func (s *Store) Groups() school.StudentGroupRepository { return groupRepo{s} }

type groupRepo struct{ s *Store }

func (r groupRepo) Create(_ context.Context, g *school.StudentGroup) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *g
	r.s.groups[g.ID] = &c
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Timetable
// ═══════════════════════════════════════════════════════════════════════════

// Periods returns the period repository view.
func (s *Store) Periods() timetable.PeriodRepository { return periodRepo{s} }

type periodRepo struct{ s *Store }

func (r periodRepo) Create(_ context.Context, p *timetable.Period) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("periods.Create"); err != nil {
		return err
	}
	r.s.periods = append(r.s.periods, *p)
	return nil
}

func (r periodRepo) ListBetween(_ context.Context, schoolID uuid.UUID, from, to time.Time) ([]timetable.Period, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("periods.ListBetween"); err != nil {
		return nil, err
	}
	var out []timetable.Period
	for _, p := range r.s.periods {
		if p.SchoolID == schoolID && !p.Start.Before(from) && !p.End.After(to) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r periodRepo) ListLinked(_ context.Context, schoolID uuid.UUID) ([]timetable.Period, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []timetable.Period
	for _, p := range r.s.periods {
		if p.SchoolID == schoolID && p.InstanceID != 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

// Events returns the event repository view.
func (s *Store) Events() timetable.EventRepository { return eventRepo{s} }

type eventRepo struct{ s *Store }

func (r eventRepo) Create(_ context.Context, e *timetable.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *e
	c.Groups = make([]timetable.GroupLink, len(e.Groups))
	for i, g := range e.Groups {
		r.s.nextLink++
		g.ID = r.s.nextLink
		if grp, ok := r.s.groups[g.StudentGroupID]; ok && g.GroupName == "" {
			g.GroupName = grp.GroupName
		}
		c.Groups[i] = g
		e.Groups[i].ID = g.ID
	}
	r.s.events = append(r.s.events, c)
	return nil
}

func (r eventRepo) ListCovering(_ context.Context, schoolID, employeeID uuid.UUID, startBy, endFrom time.Time) ([]timetable.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter("events.ListCovering"); err != nil {
		return nil, err
	}
	var out []timetable.Event
	for _, e := range r.s.events {
		if e.SchoolID == schoolID && e.EmployeeID == employeeID &&
			!e.Start.After(startBy) && !e.End.Before(endFrom) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Lessons returns the lesson repository view.
func (s *Store) Lessons() timetable.LessonRepository { return lessonRepo{s} }

type lessonRepo struct{ s *Store }

func (r lessonRepo) Create(_ context.Context, l *timetable.Lesson) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *l
	r.s.lessons[l.ID] = &c
	return nil
}

func (r lessonRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.lessons[id]
	return ok, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Homework
// ═══════════════════════════════════════════════════════════════════════════

// Homework returns the homework repository view.
func (s *Store) Homework() homework.Repository { return homeworkRepo{s} }

type homeworkRepo struct{ s *Store }

func cloneHomework(h *homework.Homework) *homework.Homework {
	c := *h
	c.StudentIDs = append([]uuid.UUID(nil), h.StudentIDs...)
	return &c
}

func (r homeworkRepo) Create(_ context.Context, h *homework.Homework) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.homework[h.ID]; ok {
		return shared.ErrHomeworkExists
	}
	r.s.homework[h.ID] = cloneHomework(h)
	return nil
}

func (r homeworkRepo) Update(_ context.Context, h *homework.Homework) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.homework[h.ID]; !ok {
		return shared.ErrHomeworkNotFound
	}
	r.s.homework[h.ID] = cloneHomework(h)
	return nil
}

func (r homeworkRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.homework[id]; !ok {
		return shared.ErrHomeworkNotFound
	}
	delete(r.s.homework, id)
	return nil
}

func (r homeworkRepo) GetByID(_ context.Context, id uuid.UUID) (*homework.Homework, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.homework[id]
	if !ok {
		return nil, shared.ErrHomeworkNotFound
	}
	return cloneHomework(h), nil
}

func (r homeworkRepo) Find(ctx context.Context, id, schoolID, lessonID uuid.UUID) (*homework.Homework, error) {
	h, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.SchoolID != schoolID || h.LessonID != lessonID {
		return nil, shared.ErrHomeworkNotFound
	}
	return h, nil
}

func (r homeworkRepo) Exists(ctx context.Context, id, schoolID, lessonID uuid.UUID) (bool, error) {
	_, err := r.Find(ctx, id, schoolID, lessonID)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r homeworkRepo) ListByLesson(_ context.Context, lessonID uuid.UUID) ([]*homework.Homework, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*homework.Homework
	for _, h := range r.s.homework {
		if h.LessonID == lessonID {
			out = append(out, cloneHomework(h))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SetAt.Before(out[j].SetAt) })
	return out, nil
}

func (r homeworkRepo) eventOf(h *homework.Homework) (*timetable.Event, bool) {
	l, ok := r.s.lessons[h.LessonID]
	if !ok {
		return nil, false
	}
	for i := range r.s.events {
		if r.s.events[i].ID == l.EventID {
			return &r.s.events[i], true
		}
	}
	return nil, false
}

func (r homeworkRepo) AnyForEmployee(_ context.Context, schoolID, employeeID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, h := range r.s.homework {
		if e, ok := r.eventOf(h); ok && h.SchoolID == schoolID && e.EmployeeID == employeeID {
			return true, nil
		}
	}
	return false, nil
}

func (r homeworkRepo) ListPast(_ context.Context, f homework.PastFilter) ([]*homework.Past, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*homework.Past
	for _, h := range r.s.homework {
		e, ok := r.eventOf(h)
		if !ok || h.SchoolID != f.SchoolID || e.EmployeeID != f.EmployeeID || e.SubjectID != f.SubjectID {
			continue
		}
		if e.End.After(f.EndedBy) || !e.HasGroup(f.StudentGroupID) {
			continue
		}
		out = append(out, &homework.Past{Homework: *cloneHomework(h), EventStart: e.Start, EventEnd: e.End})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventStart.Before(out[j].EventStart) })
	return out, nil
}

func (r homeworkRepo) TemplateExists(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.templates[id], nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Logging
// ═══════════════════════════════════════════════════════════════════════════

// Entry is one captured log line.
type Entry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// RecordingLogger captures Info and Warn calls.
type RecordingLogger struct {
	mu      sync.Mutex
	Entries []Entry
}

func (l *RecordingLogger) record(level, msg string, fields []logger.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.Entries = append(l.Entries, Entry{Level: level, Msg: msg, Fields: m})
}

// Info records an info entry.
func (l *RecordingLogger) Info(msg string, fields ...logger.Field) { l.record("info", msg, fields) }

// Warn records a warn entry.
func (l *RecordingLogger) Warn(msg string, fields ...logger.Field) { l.record("warn", msg, fields) }

// Warnings returns the warn-level entries.
func (l *RecordingLogger) Warnings() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.Entries {
		if e.Level == "warn" {
			out = append(out, e)
		}
	}
	return out
}
