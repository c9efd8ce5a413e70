// Package gormstore is a SQL eduAuth.Directory on gorm, shipped with the
// SQLite driver. Both roles share the principals table.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	eduAuth "github.com/MrEthical07/eduAuth"
)

type Store struct {
	db *gorm.DB
}

// Open opens a SQLite database at dsn and migrates the schema. ":memory:"
// is pinned to a single connection so every query sees the same database.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s := New(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&principalRow{}); err != nil {
		return fmt.Errorf("migrate principals: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) FindByEmail(ctx context.Context, role eduAuth.Role, email string) (*eduAuth.Principal, error) {
	return s.first(ctx, role, "email_lower = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) FindByMobile(ctx context.Context, role eduAuth.Role, mobile string) (*eduAuth.Principal, error) {
	return s.first(ctx, role, "mobile = ?", strings.TrimSpace(mobile))
}

func (s *Store) FindByID(ctx context.Context, role eduAuth.Role, id string) (*eduAuth.Principal, error) {
	return s.first(ctx, role, "id = ?", strings.TrimSpace(id))
}

func (s *Store) Exists(ctx context.Context, role eduAuth.Role, field eduAuth.LookupField, value string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&principalRow{}).Where("role = ? AND is_deleted = ?", string(role), false)
	switch field {
	case eduAuth.FieldEmail:
		q = q.Where("email_lower = ?", strings.ToLower(strings.TrimSpace(value)))
	case eduAuth.FieldMobile:
		q = q.Where("mobile = ?", strings.TrimSpace(value))
	default:
		return false, fmt.Errorf("unsupported lookup field %q", field)
	}

	var n int64
	if err := q.Limit(1).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count principals: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Create(ctx context.Context, p *eduAuth.Principal) (*eduAuth.Principal, error) {
	if p == nil || !p.Role.Valid() {
		return nil, eduAuth.ErrRoleNotAllowed
	}
	row := toRow(p)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return nil, eduAuth.ErrDuplicatePrincipal
		}
		return nil, fmt.Errorf("insert principal: %w", err)
	}
	return row.principal(), nil
}

// Save overwrites every column, zero values included.
func (s *Store) Save(ctx context.Context, p *eduAuth.Principal) error {
	if p == nil || p.ID == "" {
		return eduAuth.ErrPrincipalNotFound
	}
	row := toRow(p)

	res := s.db.WithContext(ctx).
		Model(&row).
		Where("role = ?", row.Role).
		Select("*").
		Omit("created_at").
		Updates(&row)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return eduAuth.ErrDuplicatePrincipal
		}
		return fmt.Errorf("update principal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return eduAuth.ErrPrincipalNotFound
	}
	return nil
}

// first prefers a live row over a soft-deleted one.
func (s *Store) first(ctx context.Context, role eduAuth.Role, cond string, arg any) (*eduAuth.Principal, error) {
	var row principalRow
	err := s.db.WithContext(ctx).
		Where("role = ?", string(role)).
		Where(cond, arg).
		Order("is_deleted ASC").
		Order("updated_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, eduAuth.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	return row.principal(), nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ eduAuth.Directory = (*Store)(nil)
