package query

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/school"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER SESSION QUERY
// Resolves every membership of a user into a per-school view. A membership
// that points at a missing employee or student fails the whole session.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserSessionQuery identifies the signed-in user.
type GetUserSessionQuery struct {
	Username string
}

// Validate validates the query.
func (q GetUserSessionQuery) Validate() error {
	if strings.TrimSpace(q.Username) == "" {
		return shared.ErrEmptyUsername
	}
	return nil
}

// GetUserSessionHandler handles GetUserSessionQuery.
type GetUserSessionHandler struct {
	users       identity.UserRepository
	memberships identity.MembershipRepository
	employees   school.EmployeeRepository
	students    school.StudentRepository
	tx          SnapshotReader
	cache       SessionCache // optional
	log         Logger
}

// NewGetUserSessionHandler creates a new GetUserSessionHandler. tx and
// cache may be nil.
func NewGetUserSessionHandler(
	users identity.UserRepository,
	memberships identity.MembershipRepository,
	employees school.EmployeeRepository,
	students school.StudentRepository,
	tx SnapshotReader,
	cache SessionCache,
	log Logger,
) *GetUserSessionHandler {
	return &GetUserSessionHandler{
		users:       users,
		memberships: memberships,
		employees:   employees,
		students:    students,
		tx:          tx,
		cache:       cache,
		log:         log,
	}
}

// Handle executes the query. It returns shared.ErrUserNotFound for an
// unknown username and shared.ErrUserInvalid when any membership dangles.
func (h *GetUserSessionHandler) Handle(ctx context.Context, q GetUserSessionQuery) (*identity.Session, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		cached, err := h.cache.GetSession(ctx, q.Username)
		if err != nil {
			h.log.Warn("session cache read failed", logger.Username(q.Username), logger.Err(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	var session *identity.Session
	err := readSnapshot(ctx, h.tx, func(ctx context.Context) error {
		var err error
		session, err = h.resolve(ctx, q.Username)
		return err
	})
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.SetSession(ctx, session); err != nil {
			h.log.Warn("session cache write failed", logger.Username(q.Username), logger.Err(err))
		}
	}

	return session, nil
}

func (h *GetUserSessionHandler) resolve(ctx context.Context, username string) (*identity.Session, error) {
	user, err := h.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	memberships, err := h.memberships.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	// One bulk load per principal kind, joined in memory below.
	employeeIDs, studentIDs := identity.PartitionPrincipals(memberships)

	employees := map[uuid.UUID]*school.Employee{}
	if len(employeeIDs) > 0 {
		loaded, err := h.employees.GetByIDs(ctx, employeeIDs)
		if err != nil {
			return nil, err
		}
		employees = school.IndexEmployees(loaded)
	}

	students := map[uuid.UUID]*school.Student{}
	if len(studentIDs) > 0 {
		loaded, err := h.students.GetByIDs(ctx, studentIDs)
		if err != nil {
			return nil, err
		}
		students = school.IndexStudents(loaded)
	}

	session := &identity.Session{
		UserID:      user.ID,
		Username:    user.Username,
		LastLoginAt: user.LastLoginAt,
		Schools:     make([]identity.SchoolView, 0, len(memberships)),
	}

	for _, m := range memberships {
		view := identity.SchoolView{
			UserID:     user.ID,
			SchoolID:   m.SchoolID,
			UserType:   m.UserType,
			UserTypeID: m.UserTypeID,
		}

		switch m.UserType {
		case shared.UserTypeEmployee:
			emp, ok := employees[m.UserTypeID]
			if !ok {
				h.log.Warn("employee membership has no employee attached",
					logger.UserID(user.ID.String()), logger.EmployeeID(m.UserTypeID.String()))
				return nil, shared.ErrUserInvalid
			}
			view.Roles = emp.RoleTitles()

		case shared.UserTypeStudent:
			if _, ok := students[m.UserTypeID]; !ok {
				h.log.Warn("student membership has no student attached",
					logger.UserID(user.ID.String()), logger.String("student_id", m.UserTypeID.String()))
				return nil, shared.ErrUserInvalid
			}
			view.Roles = []string{}

		default:
			h.log.Warn("membership has unknown user type",
				logger.UserID(user.ID.String()), logger.String("user_type", m.UserType.String()))
			return nil, shared.ErrUserInvalid
		}

		session.Schools = append(session.Schools, view)
	}

	return session, nil
}
