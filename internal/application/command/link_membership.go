package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/school"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/pkg/logger"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// LinkMembershipCommand attaches a user to an employee or student record.
type LinkMembershipCommand struct {
	UserID     uuid.UUID
	SchoolID   uuid.UUID
	UserType   shared.UserType
	UserTypeID uuid.UUID
}

// LinkMembershipHandler handles LinkMembershipCommand. It refuses links to
// principals that do not exist, so sessions never meet a dangling one
// through this path.
type LinkMembershipHandler struct {
	users       identity.UserRepository
	memberships identity.MembershipRepository
	employees   school.EmployeeRepository
	students    school.StudentRepository
	tx          Transactor
	sessions    SessionInvalidator // optional
	clock       timeutil.Clock
	log         Logger
}

// NewLinkMembershipHandler creates a new LinkMembershipHandler.
func NewLinkMembershipHandler(
	users identity.UserRepository,
	memberships identity.MembershipRepository,
	employees school.EmployeeRepository,
	students school.StudentRepository,
	tx Transactor,
	sessions SessionInvalidator,
	clock timeutil.Clock,
	log Logger,
) *LinkMembershipHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &LinkMembershipHandler{
		users:       users,
		memberships: memberships,
		employees:   employees,
		students:    students,
		tx:          tx,
		sessions:    sessions,
		clock:       clock,
		log:         log,
	}
}

// Handle executes the command and returns the membership id.
func (h *LinkMembershipHandler) Handle(ctx context.Context, cmd LinkMembershipCommand) (*shared.Result[uuid.UUID], error) {
	m, err := identity.NewMembership(cmd.UserID, cmd.SchoolID, cmd.UserType, cmd.UserTypeID, h.clock.Now().UTC())
	if err != nil {
		return nil, err
	}

	var username string
	err = withTx(ctx, h.tx, func(ctx context.Context) error {
		user, err := h.users.GetByID(ctx, cmd.UserID)
		if err != nil {
			return err
		}
		username = user.Username

		var exists bool
		switch cmd.UserType {
		case shared.UserTypeEmployee:
			exists, err = h.employees.Exists(ctx, cmd.UserTypeID)
		case shared.UserTypeStudent:
			exists, err = h.students.Exists(ctx, cmd.UserTypeID)
		}
		if err != nil {
			return err
		}
		if !exists {
			return shared.ErrPrincipalNotFound
		}
		return h.memberships.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	if h.sessions != nil {
		if err := h.sessions.Invalidate(ctx, username); err != nil {
			h.log.Warn("session invalidation failed", logger.Username(username), logger.Err(err))
		}
	}

	h.log.Info("membership linked",
		logger.UserID(cmd.UserID.String()),
		logger.SchoolID(cmd.SchoolID.String()),
		logger.String("user_type", cmd.UserType.String()))
	return shared.Success(m.ID), nil
}
