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

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE USER COMMAND
// Replaces a user's password and contact points. Employee contact details
// at every school the user works at are rewritten in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateUserCommand contains the new credentials and contact points.
type UpdateUserCommand struct {
	UserID         uuid.UUID
	Password       string
	PreferredEmail string
	PreferredPhone string
}

// Validate validates the command.
func (c UpdateUserCommand) Validate() error {
	if c.UserID == uuid.Nil {
		return shared.NewDomainError("identity", "UpdateUser", shared.ErrInvalidID, "user id is required")
	}
	if c.Password == "" {
		return shared.ErrEmptyPassword
	}
	return nil
}

// UpdateUserHandler handles UpdateUserCommand.
type UpdateUserHandler struct {
	users       identity.UserRepository
	memberships identity.MembershipRepository
	employees   school.EmployeeRepository
	contacts    school.ContactDetailsRepository
	hasher      PasswordHasher
	tx          Transactor
	sessions    SessionInvalidator // optional
	clock       timeutil.Clock
	log         Logger
}

// NewUpdateUserHandler creates a new UpdateUserHandler. tx and sessions may
// be nil.
func NewUpdateUserHandler(
	users identity.UserRepository,
	memberships identity.MembershipRepository,
	employees school.EmployeeRepository,
	contacts school.ContactDetailsRepository,
	hasher PasswordHasher,
	tx Transactor,
	sessions SessionInvalidator,
	clock timeutil.Clock,
	log Logger,
) *UpdateUserHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &UpdateUserHandler{
		users:       users,
		memberships: memberships,
		employees:   employees,
		contacts:    contacts,
		hasher:      hasher,
		tx:          tx,
		sessions:    sessions,
		clock:       clock,
		log:         log,
	}
}

// Handle executes the command and returns the user id.
func (h *UpdateUserHandler) Handle(ctx context.Context, cmd UpdateUserCommand) (*shared.Result[uuid.UUID], error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, shared.WrapError("identity", "UpdateUser", shared.ErrInvalidInput, "failed to hash password", err)
	}

	var username string
	err = withTx(ctx, h.tx, func(ctx context.Context) error {
		user, err := h.users.GetByID(ctx, cmd.UserID)
		if err != nil {
			return err
		}
		username = user.Username

		memberships, err := h.memberships.ListByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		for _, m := range memberships {
			if m.UserType != shared.UserTypeEmployee {
				continue
			}
			if err := h.updateEmployeeContact(ctx, user.ID, m.UserTypeID, cmd); err != nil {
				return err
			}
		}

		if err := user.ChangePassword(hash); err != nil {
			return err
		}
		user.SetContact(cmd.PreferredEmail, cmd.PreferredPhone)
		user.RecordLogin(h.clock.Now().UTC())
		return h.users.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	if h.sessions != nil {
		if err := h.sessions.Invalidate(ctx, username); err != nil {
			h.log.Warn("session invalidation failed", logger.Username(username), logger.Err(err))
		}
	}

	h.log.Info("user updated", logger.UserID(cmd.UserID.String()))
	return shared.Success(cmd.UserID), nil
}

func (h *UpdateUserHandler) updateEmployeeContact(ctx context.Context, userID, employeeID uuid.UUID, cmd UpdateUserCommand) error {
	emp, err := h.employees.GetByID(ctx, employeeID)
	if err != nil {
		if shared.IsNotFound(err) {
			h.log.Warn("employee membership has no employee attached",
				logger.UserID(userID.String()), logger.EmployeeID(employeeID.String()))
			return shared.ErrUserInvalid
		}
		return err
	}
	if emp.ContactDetailsID == nil {
		return shared.ErrContactDetailsGone
	}

	cd, err := h.contacts.GetByID(ctx, *emp.ContactDetailsID)
	if err != nil {
		return err
	}
	cd.PreferredEmail = cmd.PreferredEmail
	cd.PreferredPhone = cmd.PreferredPhone
	return h.contacts.Update(ctx, cd)
}
