package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status string
	Cursor *ApplicationCursor
	Limit  int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, app *StaffApplication) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*StaffApplication, error)
	FindPendingByEmail(ctx context.Context, db *gorm.DB, email string) (*StaffApplication, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*StaffApplication, error)
	UpdateReview(ctx context.Context, db *gorm.DB, app *StaffApplication) error
}
