package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB) (*SessionPolicy, error)
	Upsert(ctx context.Context, db *gorm.DB, policy *SessionPolicy) error
}
