package gorm

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	oa "github.com/ayursutra/ayurauth"
)

// AutoMigrate runs database migrations for the account table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&AccountModel{})
}

// Open opens (or creates) the SQLite database at path and migrates it.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AccountStore implements oa.AccountStore using GORM. Demo deployments
// point it at a local SQLite file so accounts survive restarts.
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, account *oa.Account) error {
	model := fromAccount(account)
	err := s.db.WithContext(ctx).Create(model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint") {
			return oa.ErrAccountExists
		}
		return err
	}
	return nil
}

func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*oa.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, oa.ErrAccountNotFound
		}
		return nil, err
	}
	return model.toAccount(), nil
}

func (s *AccountStore) MarkVerified(ctx context.Context, email string) error {
	return s.update(ctx, email, map[string]any{"verified": true})
}

func (s *AccountStore) SetRole(ctx context.Context, email string, role oa.Role) error {
	return s.update(ctx, email, map[string]any{"role": string(role)})
}

func (s *AccountStore) update(ctx context.Context, email string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	result := s.db.WithContext(ctx).Model(&AccountModel{}).Where("email = ?", email).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return oa.ErrAccountNotFound
	}
	return nil
}
