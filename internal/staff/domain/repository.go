package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, member *Staff) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Staff, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Staff, error)
	List(ctx context.Context, db *gorm.DB, filter ListStaffFilter) ([]*Staff, error)
	UpdateProfile(ctx context.Context, db *gorm.DB, member *Staff) error
	UpdateRole(ctx context.Context, db *gorm.DB, id snowflake.ID, role string) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error
	UpdatePasswordHash(ctx context.Context, db *gorm.DB, id snowflake.ID, hash string) error
	TouchLastLogin(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
