package query

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
	"github.com/schooldesk/schooldesk/pkg/logger"
)

// Warnings returned by the device query.
const (
	DeviceNotRegisteredMessage = "This device is not registered on the system."
	DeviceHasNoUsersMessage    = "This device is recognised but is not currently associated to any users."
)

// AssistantUserDTO is what the voice assistant needs to address a user.
type AssistantUserDTO struct {
	UserID             uuid.UUID  `json:"user_id"`
	Username           string     `json:"username"`
	Nickname           string     `json:"nickname"`
	PassCode           string     `json:"pass_code"`
	PassCodeCreatedAt  time.Time  `json:"pass_code_created_at"`
	LastAssistantUseAt *time.Time `json:"last_assistant_use_at,omitempty"`
}

// NewAssistantUserDTO maps a user to the DTO.
func NewAssistantUserDTO(u *identity.User) AssistantUserDTO {
	return AssistantUserDTO{
		UserID:             u.ID,
		Username:           u.Username,
		Nickname:           u.AssistantNickname,
		PassCode:           u.AssistantPassCode,
		PassCodeCreatedAt:  u.PassCodeCreatedAt,
		LastAssistantUseAt: u.LastAssistantUseAt,
	}
}

// UserDTO is the list view of a user.
type UserDTO struct {
	UserID      uuid.UUID  `json:"user_id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// AssistantUsersHandler serves the voice-assistant lookups and the user list.
type AssistantUsersHandler struct {
	users identity.UserRepository
	log   Logger
}

// NewAssistantUsersHandler creates a new AssistantUsersHandler.
func NewAssistantUsersHandler(users identity.UserRepository, log Logger) *AssistantUsersHandler {
	return &AssistantUsersHandler{users: users, log: log}
}

// ForDevice lists the users registered on a device. An unknown device, or
// a device nobody uses, is a warning result.
func (h *AssistantUsersHandler) ForDevice(ctx context.Context, deviceID string) (*shared.Result[[]AssistantUserDTO], error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, shared.ErrEmptyDeviceID
	}

	known, err := h.users.DeviceExists(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !known {
		h.log.Info("lookup for unregistered device", logger.String("device_id", deviceID))
		return shared.Warning[[]AssistantUserDTO](DeviceNotRegisteredMessage), nil
	}

	users, err := h.users.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return shared.Warning[[]AssistantUserDTO](DeviceHasNoUsersMessage), nil
	}

	dtos := make([]AssistantUserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, NewAssistantUserDTO(u))
	}
	return shared.Success(dtos), nil
}

// ForUsername returns the assistant view of one user.
func (h *AssistantUsersHandler) ForUsername(ctx context.Context, username string) (*AssistantUserDTO, error) {
	if strings.TrimSpace(username) == "" {
		return nil, shared.ErrEmptyUsername
	}
	u, err := h.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	dto := NewAssistantUserDTO(u)
	return &dto, nil
}

// All lists every user ordered by username.
func (h *AssistantUsersHandler) All(ctx context.Context) ([]UserDTO, error) {
	users, err := h.users.List(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]UserDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, UserDTO{
			UserID:      u.ID,
			Username:    u.Username,
			Email:       u.Email,
			Phone:       u.Phone,
			LastLoginAt: u.LastLoginAt,
		})
	}
	return dtos, nil
}
