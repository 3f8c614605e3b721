package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/imaginearsclub/backstage/pkg/db/pagination"
)

type CreateStaffRequest struct {
	Email         string
	DisplayName   string
	MinecraftUUID string
	Role          string
	Password      string
}

type UpdateStaffRequest struct {
	ID            snowflake.ID
	DisplayName   *string
	MinecraftUUID *string
	Metadata      map[string]any
}

type ListStaffRequest struct {
	pagination.Pagination
	Role   string
	Status string
	Search string
}

type ListStaffFilter struct {
	Role   string
	Status string
	Search string
	Cursor *StaffCursor
	Limit  int
}

type StaffCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListStaffResponse struct {
	pagination.PageInfo
	Staff []Staff `json:"staff"`
}

type Service interface {
	Create(ctx context.Context, req CreateStaffRequest) (*Staff, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Staff, error)
	GetByEmail(ctx context.Context, email string) (*Staff, error)
	List(ctx context.Context, req ListStaffRequest) (ListStaffResponse, error)
	Update(ctx context.Context, req UpdateStaffRequest) (*Staff, error)
	// ChangeRole moves the member to a role in the closed role set and, when
	// a group syncer is configured, mirrors the change to LuckPerms.
	ChangeRole(ctx context.Context, id snowflake.ID, newRole string) (*Staff, error)
	Suspend(ctx context.Context, id snowflake.ID) (*Staff, error)
	Activate(ctx context.Context, id snowflake.ID) (*Staff, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

// GroupSyncer mirrors a staff role change to an external permission system.
// Implemented by the LuckPerms integration; nil when not configured.
type GroupSyncer interface {
	SyncRole(ctx context.Context, minecraftUUID string, role string) error
}

var (
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidName     = errors.New("invalid_display_name")
	ErrInvalidRole     = errors.New("invalid_role")
	ErrInvalidPassword = errors.New("invalid_password")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("staff_not_found")
	ErrEmailExists     = errors.New("email_exists")
	ErrOwnerImmutable  = errors.New("owner_immutable")
)
