package repository

import (
	"context"

	"github.com/imaginearsclub/backstage/internal/sessionpolicy/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB) (*domain.SessionPolicy, error) {
	var policy domain.SessionPolicy
	err := db.WithContext(ctx).
		Where("id = ?", domain.PolicyID).
		Take(&policy).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &policy, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, policy *domain.SessionPolicy) error {
	policy.ID = domain.PolicyID
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(policy).Error
}
