package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/imaginearsclub/backstage/pkg/db/pagination"
)

type SubmitApplicationRequest struct {
	Email         string         `json:"email"`
	DisplayName   string         `json:"display_name"`
	MinecraftUUID string         `json:"minecraft_uuid"`
	Age           int            `json:"age"`
	Answers       map[string]any `json:"answers"`
}

type ListApplicationsRequest struct {
	pagination.Pagination
	Status string
}

type ListApplicationsResponse struct {
	pagination.PageInfo
	Applications []StaffApplication `json:"applications"`
}

type ReviewApplicationRequest struct {
	ID      snowflake.ID
	Approve bool
	Note    string
}

type Service interface {
	// Submit records a new pending application. It is the only operation
	// reachable without a session.
	Submit(ctx context.Context, req SubmitApplicationRequest) (*StaffApplication, error)
	Get(ctx context.Context, id snowflake.ID) (*StaffApplication, error)
	List(ctx context.Context, req ListApplicationsRequest) (ListApplicationsResponse, error)
	// Review approves or rejects a pending application. Approval creates a
	// trainee staff account and emails the applicant.
	Review(ctx context.Context, req ReviewApplicationRequest) (*StaffApplication, error)
}

var (
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidName     = errors.New("invalid_display_name")
	ErrInvalidAge      = errors.New("invalid_age")
	ErrNotFound        = errors.New("application_not_found")
	ErrAlreadyPending  = errors.New("application_already_pending")
	ErrAlreadyReviewed = errors.New("application_already_reviewed")
	ErrInvalidStatus   = errors.New("invalid_status")
)
