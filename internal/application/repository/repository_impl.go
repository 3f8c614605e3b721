package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/imaginearsclub/backstage/internal/application/domain"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, app *domain.StaffApplication) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO staff_applications (id, email, display_name, minecraft_uuid, age, answers, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		app.ID,
		app.Email,
		app.DisplayName,
		app.MinecraftUUID,
		app.Age,
		app.Answers,
		app.Status,
		app.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.StaffApplication, error) {
	var app domain.StaffApplication
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&app).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *repo) FindPendingByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.StaffApplication, error) {
	var app domain.StaffApplication
	err := db.WithContext(ctx).
		Where("email = ? AND status = ?", staffdomain.NormalizeEmail(email), domain.StatusPending).
		Take(&app).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.StaffApplication, error) {
	stmt := db.WithContext(ctx).Model(&domain.StaffApplication{})

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
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

	var apps []*domain.StaffApplication
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *repo) UpdateReview(ctx context.Context, db *gorm.DB, app *domain.StaffApplication) error {
	return db.WithContext(ctx).Exec(
		`UPDATE staff_applications SET status = ?, reviewer_id = ?, review_note = ?, reviewed_at = ? WHERE id = ?`,
		app.Status,
		app.ReviewerID,
		app.ReviewNote,
		app.ReviewedAt,
		app.ID,
	).Error
}
