package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/petruce/garage"
	"github.com/petruce/garage/oauth2"
	"github.com/petruce/garage/workshop"
)

// Open connects to driver ("postgres" or "sqlite") at dsn.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	return db, nil
}

// AutoMigrate runs database migrations for all garage tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&workshop.Vehicle{},
		&workshop.Technician{},
		&workshop.Repair{},
	)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements garage.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*garage.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*garage.User, error) {
	return s.first(ctx, "email = ?", garage.NormalizeEmail(email))
}

func (s *UserStore) first(ctx context.Context, query string, arg any) (*garage.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, garage.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) CreateUser(ctx context.Context, u *garage.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = garage.NormalizeEmail(u.Email)
	model := UserToModel(u)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicate(err) {
			return garage.ErrEmailTaken
		}
		return err
	}
	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt
	return nil
}

func providerColumn(p oauth2.Provider) (string, error) {
	switch p {
	case oauth2.Google:
		return "google_id", nil
	case oauth2.GitHub:
		return "github_id", nil
	}
	return "", fmt.Errorf("%w: %q", oauth2.ErrUnknownProvider, p)
}

// LinkProvider uses conditional updates so concurrent callbacks can never
// overwrite a provider id or avatar that is already set.
func (s *UserStore) LinkProvider(ctx context.Context, id string, p oauth2.Provider, externalID, avatar string) (*garage.User, error) {
	col, err := providerColumn(p)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&UserModel{}).
			Where("id = ?", id).
			Where("(" + col + " IS NULL OR " + col + " = '')").
			Update(col, externalID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 || avatar == "" {
			return nil
		}
		return tx.Model(&UserModel{}).
			Where("id = ?", id).
			Where("(avatar IS NULL OR avatar = '')").
			Update("avatar", avatar).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *UserStore) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	res := s.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).
		Updates(map[string]any{"password_hash": passwordHash, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return garage.ErrUserNotFound
	}
	return nil
}

var _ garage.UserStore = (*UserStore)(nil)
