package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertSession(ctx context.Context, db *gorm.DB, session *Session) error
	FindSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*Session, error)
	TouchSession(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	RevokeSession(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	RevokeSessionsForStaff(ctx context.Context, db *gorm.DB, staffID snowflake.ID) error
	InsertPasswordReset(ctx context.Context, db *gorm.DB, reset *PasswordReset) error
	FindPasswordResetByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
