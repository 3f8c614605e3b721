package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/imaginearsclub/backstage/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertSession(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO staff_sessions (id, staff_id, token_hash, user_agent, ip_address, country, expires_at, created_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.StaffID,
		session.TokenHash,
		session.UserAgent,
		session.IPAddress,
		session.Country,
		session.ExpiresAt,
		session.CreatedAt,
		session.LastSeenAt,
	).Error
}

func (r *repo) FindSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Take(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *repo) TouchSession(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE staff_sessions SET last_seen_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	).Error
}

func (r *repo) RevokeSession(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE staff_sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), id,
	).Error
}

func (r *repo) RevokeSessionsForStaff(ctx context.Context, db *gorm.DB, staffID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE staff_sessions SET revoked_at = ? WHERE staff_id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), staffID,
	).Error
}

func (r *repo) InsertPasswordReset(ctx context.Context, db *gorm.DB, reset *domain.PasswordReset) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO password_resets (id, staff_id, token_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		reset.ID,
		reset.StaffID,
		reset.TokenHash,
		reset.ExpiresAt,
		reset.CreatedAt,
	).Error
}

func (r *repo) FindPasswordResetByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.PasswordReset, error) {
	var reset domain.PasswordReset
	err := db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Take(&reset).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reset, nil
}

func (r *repo) MarkPasswordResetUsed(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		time.Now().UTC(), id,
	).Error
}
