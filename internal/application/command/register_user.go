package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/pkg/logger"
	"github.com/schooldesk/schooldesk/pkg/retry"
	"github.com/schooldesk/schooldesk/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Creates a login for a person. The username is generated, then reserved by
// the insert itself; losing the race to another writer regenerates it.
// ══════════════════════════════════════════════════════════════════════════════

// RolesNotAddedMessage prefixes the warning returned when the user was
// created but role grants failed.
const RolesNotAddedMessage = "Failed to add user roles for user id"

// RegisterUserCommand contains the data to create a user.
type RegisterUserCommand struct {
	Forename string
	Surname  string
	Password string
	UserType shared.UserType

	// Email is adopted as the username for employees and parents.
	Email *string

	// SchoolID selects the student email format.
	SchoolID uuid.UUID

	Roles []identity.AuthorizationRole
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	if strings.TrimSpace(c.Forename) == "" || strings.TrimSpace(c.Surname) == "" {
		return shared.ErrEmptyName
	}
	if c.Password == "" {
		return shared.ErrEmptyPassword
	}
	if !c.UserType.IsValid() {
		return shared.ErrInvalidUserType
	}
	if c.UserType == shared.UserTypeStudent && c.SchoolID == uuid.Nil {
		return shared.ErrEmptySchoolID
	}
	for _, r := range c.Roles {
		if !r.IsValid() {
			return shared.NewDomainError("identity", "RegisterUser", shared.ErrInvalidInput,
				fmt.Sprintf("unknown authorization role %q", r))
		}
	}
	return nil
}

func (c RegisterUserCommand) explicitEmail() bool {
	return c.UserType.IsStaffLike() && c.Email != nil && strings.TrimSpace(*c.Email) != ""
}

// RegisterUserHandler handles RegisterUserCommand.
type RegisterUserHandler struct {
	users     identity.UserRepository
	resolver  *identity.UsernameResolver
	hasher    PasswordHasher
	passCodes PassCodeGenerator
	retrier   *retry.Retrier
	clock     timeutil.Clock
	log       Logger
}

// NewRegisterUserHandler creates a new RegisterUserHandler. A nil retrier
// gets the default username reservation policy.
func NewRegisterUserHandler(
	users identity.UserRepository,
	settings identity.SettingRepository,
	hasher PasswordHasher,
	passCodes PassCodeGenerator,
	retrier *retry.Retrier,
	clock timeutil.Clock,
	log Logger,
) *RegisterUserHandler {
	if retrier == nil {
		retrier = retry.UsernameReservationRetrier(0)
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &RegisterUserHandler{
		users:     users,
		resolver:  identity.NewUsernameResolver(users, settings),
		hasher:    hasher,
		passCodes: passCodes,
		retrier:   retrier,
		clock:     clock,
		log:       log,
	}
}

// Handle executes the command and returns the new user id.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*shared.Result[uuid.UUID], error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, shared.WrapError("identity", "RegisterUser", shared.ErrInvalidInput, "failed to hash password", err)
	}

	user, err := retry.DoValue(ctx, h.retrier, func(ctx context.Context) (*identity.User, error) {
		return h.reserve(ctx, cmd, hash)
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			h.log.Warn("username reservation exhausted",
				logger.Int("attempts", exhausted.Attempts), logger.Err(exhausted.Err))
			return nil, exhausted.Err
		}
		return nil, err
	}

	h.log.Info("user registered", logger.UserID(user.ID.String()), logger.Username(user.Username))

	if len(cmd.Roles) > 0 {
		if err := h.users.AddAuthorizationRoles(ctx, user.ID, cmd.Roles); err != nil {
			h.log.Warn("failed to grant roles", logger.UserID(user.ID.String()), logger.Err(err))
			return shared.Warning[uuid.UUID](fmt.Sprintf("%s %s", RolesNotAddedMessage, user.ID)), nil
		}
	}

	return shared.Success(user.ID), nil
}

// reserve runs one generate-then-insert attempt.
func (h *RegisterUserHandler) reserve(ctx context.Context, cmd RegisterUserCommand, hash string) (*identity.User, error) {
	username, err := h.resolver.Generate(ctx, identity.GenerateUsernameParams{
		Forename: cmd.Forename,
		Surname:  cmd.Surname,
		UserType: cmd.UserType,
		Email:    cmd.Email,
		SchoolID: cmd.SchoolID,
	})
	if err != nil {
		return nil, retry.Permanent(err)
	}

	passCode, err := h.passCodes.Generate()
	if err != nil {
		return nil, retry.Permanent(err)
	}

	user, err := identity.NewUser(identity.NewUserParams{
		Username:          username,
		PasswordHash:      hash,
		AssistantNickname: strings.TrimSpace(cmd.Forename),
		AssistantPassCode: passCode,
		Now:               h.clock.Now().UTC().Truncate(time.Microsecond),
	})
	if err != nil {
		return nil, retry.Permanent(err)
	}

	if err := h.users.Create(ctx, user); err != nil {
		// An adopted email never changes, so retrying cannot help.
		if errors.Is(err, shared.ErrUsernameTaken) && !cmd.explicitEmail() {
			return nil, retry.Retryable(err)
		}
		return nil, retry.Permanent(err)
	}
	return user, nil
}
