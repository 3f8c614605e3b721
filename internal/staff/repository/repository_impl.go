package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/imaginearsclub/backstage/internal/staff/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, member *domain.Staff) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO staff (id, email, display_name, minecraft_uuid, role, status, password_hash, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.Email,
		member.DisplayName,
		member.MinecraftUUID,
		member.Role,
		member.Status,
		member.PasswordHash,
		member.Metadata,
		member.CreatedAt,
		member.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Staff, error) {
	var member domain.Staff
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Staff, error) {
	var member domain.Staff
	err := db.WithContext(ctx).
		Where("email = ?", domain.NormalizeEmail(email)).
		Take(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListStaffFilter) ([]*domain.Staff, error) {
	stmt := db.WithContext(ctx).Model(&domain.Staff{})

	if filter.Role != "" {
		stmt = stmt.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		stmt = stmt.Where("email LIKE ? OR display_name LIKE ?", pattern, pattern)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var members []*domain.Staff
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) UpdateProfile(ctx context.Context, db *gorm.DB, member *domain.Staff) error {
	return db.WithContext(ctx).Exec(
		`UPDATE staff SET display_name = ?, minecraft_uuid = ?, metadata = ?, updated_at = ? WHERE id = ?`,
		member.DisplayName,
		member.MinecraftUUID,
		member.Metadata,
		time.Now().UTC(),
		member.ID,
	).Error
}

func (r *repo) UpdateRole(ctx context.Context, db *gorm.DB, id snowflake.ID, role string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE staff SET role = ?, updated_at = ? WHERE id = ?`,
		role, time.Now().UTC(), id,
	).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE staff SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id,
	).Error
}

func (r *repo) UpdatePasswordHash(ctx context.Context, db *gorm.DB, id snowflake.ID, hash string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE staff SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id,
	).Error
}

func (r *repo) TouchLastLogin(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`UPDATE staff SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM staff WHERE id = ?`, id).Error
}
