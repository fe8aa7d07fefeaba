package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements identity.UserRepository.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. The username unique index decides races.
func (r *UserRepository) Create(ctx context.Context, u *identity.User) error {
	err := conn(ctx, r.db).Create(toUserRow(u)).Error
	return translate("identity", "CreateUser", err, nil, shared.ErrUsernameTaken)
}

// Update writes every mutable column.
func (r *UserRepository) Update(ctx context.Context, u *identity.User) error {
	row := toUserRow(u)
	res := conn(ctx, r.db).Model(&userRow{ID: u.ID}).Select("*").Omit("id", "created_at").Updates(row)
	if res.Error != nil {
		return translate("identity", "UpdateUser", res.Error, nil, shared.ErrUsernameTaken)
	}
	if res.RowsAffected == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// GetByID returns a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var row userRow
	if err := conn(ctx, r.db).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate("identity", "GetUser", err, shared.ErrUserNotFound, nil)
	}
	return row.toDomain(), nil
}

// GetByUsername returns a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*identity.User, error) {
	var row userRow
	if err := conn(ctx, r.db).Where("username = ?", username).First(&row).Error; err != nil {
		return nil, translate("identity", "GetUserByUsername", err, shared.ErrUserNotFound, nil)
	}
	return row.toDomain(), nil
}

// UsernameExists reports whether any user holds username.
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&userRow{}).Where("username = ?", username).Limit(1).Count(&n).Error
	if err != nil {
		return false, storageError("identity", "UsernameExists", err)
	}
	return n > 0, nil
}

// List returns every user ordered by username.
func (r *UserRepository) List(ctx context.Context) ([]*identity.User, error) {
	var rows []userRow
	if err := conn(ctx, r.db).Order("username").Find(&rows).Error; err != nil {
		return nil, storageError("identity", "ListUsers", err)
	}
	out := make([]*identity.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Devices
// ─────────────────────────────────────────────────────────────────────────────

// DeviceExists reports whether the device was ever registered.
func (r *UserRepository) DeviceExists(ctx context.Context, deviceID string) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&deviceRow{}).Where("device_id = ?", deviceID).Limit(1).Count(&n).Error
	if err != nil {
		return false, storageError("identity", "DeviceExists", err)
	}
	return n > 0, nil
}

// ListByDevice returns the users registered on a device, by username.
func (r *UserRepository) ListByDevice(ctx context.Context, deviceID string) ([]*identity.User, error) {
	var rows []userRow
	err := conn(ctx, r.db).
		Joins("JOIN devices ON devices.user_id = users.id").
		Where("devices.device_id = ?", deviceID).
		Order("users.username").
		Find(&rows).Error
	if err != nil {
		return nil, storageError("identity", "ListByDevice", err)
	}
	out := make([]*identity.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// RegisterDevice links a device to a user. Registering twice is a no-op.
func (r *UserRepository) RegisterDevice(ctx context.Context, d identity.Device) error {
	err := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&deviceRow{DeviceID: d.DeviceID, UserID: d.UserID}).Error
	return translate("identity", "RegisterDevice", err, nil, nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Authorization
// ─────────────────────────────────────────────────────────────────────────────

// AddAuthorizationRoles grants roles; grants already held are kept.
func (r *UserRepository) AddAuthorizationRoles(ctx context.Context, userID uuid.UUID, roles []identity.AuthorizationRole) error {
	if len(roles) == 0 {
		return nil
	}
	rows := make([]userRoleRow, 0, len(roles))
	for _, role := range roles {
		rows = append(rows, userRoleRow{UserID: userID, Role: string(role)})
	}
	err := conn(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	return translate("identity", "AddAuthorizationRoles", err, nil, nil)
}

// ListAuthorizationRoles returns the user's grants in name order.
func (r *UserRepository) ListAuthorizationRoles(ctx context.Context, userID uuid.UUID) ([]identity.AuthorizationRole, error) {
	var names []string
	err := conn(ctx, r.db).Model(&userRoleRow{}).Where("user_id = ?", userID).Order("role").Pluck("role", &names).Error
	if err != nil {
		return nil, storageError("identity", "ListAuthorizationRoles", err)
	}
	out := make([]identity.AuthorizationRole, 0, len(names))
	for _, n := range names {
		out = append(out, identity.AuthorizationRole(n))
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MEMBERSHIP REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MembershipRepository implements identity.MembershipRepository.
type MembershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// ListByUser returns memberships by creation time, then id.
func (r *MembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]identity.Membership, error) {
	var rows []membershipRow
	err := conn(ctx, r.db).Where("user_id = ?", userID).Order("created_at").Order("id").Find(&rows).Error
	if err != nil {
		return nil, storageError("identity", "ListMemberships", err)
	}
	out := make([]identity.Membership, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// Create inserts a membership.
func (r *MembershipRepository) Create(ctx context.Context, m *identity.Membership) error {
	err := conn(ctx, r.db).Create(toMembershipRow(m)).Error
	return translate("identity", "CreateMembership", err, nil, shared.ErrMembershipExists)
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTING REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SettingRepository implements identity.SettingRepository.
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new SettingRepository.
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func settingScope(t identity.SettingType, schoolID *uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("setting_type = ?", string(t))
		if schoolID == nil {
			return db.Where("school_id IS NULL")
		}
		return db.Where("school_id = ?", *schoolID)
	}
}

// Get returns the setting for (t, schoolID).
func (r *SettingRepository) Get(ctx context.Context, t identity.SettingType, schoolID *uuid.UUID) (*identity.Setting, error) {
	var row settingRow
	err := conn(ctx, r.db).Scopes(settingScope(t, schoolID)).Order("id").First(&row).Error
	if err != nil {
		return nil, translate("identity", "GetSetting", err, shared.ErrSettingNotFound, nil)
	}
	return &identity.Setting{ID: row.ID, Type: identity.SettingType(row.SettingType), SchoolID: row.SchoolID, Value: row.Value}, nil
}

// Put replaces the value for (s.Type, s.SchoolID), inserting when absent.
func (r *SettingRepository) Put(ctx context.Context, s *identity.Setting) error {
	db := conn(ctx, r.db)
	res := db.Model(&settingRow{}).Scopes(settingScope(s.Type, s.SchoolID)).Update("value", s.Value)
	if res.Error != nil {
		return storageError("identity", "PutSetting", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	err := db.Create(&settingRow{ID: id, SettingType: string(s.Type), SchoolID: s.SchoolID, Value: s.Value}).Error
	return translate("identity", "PutSetting", err, nil, nil)
}
