package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Role is the closed set of staff roles, ordered lowest to highest.
const (
	RoleGuest     = "GUEST"
	RoleTrainee   = "TRAINEE"
	RoleStaff     = "STAFF"
	RoleModerator = "MODERATOR"
	RoleAdmin     = "ADMIN"
	RoleOwner     = "OWNER"
)

// Roles lists every valid role.
func Roles() []string {
	return []string{RoleGuest, RoleTrainee, RoleStaff, RoleModerator, RoleAdmin, RoleOwner}
}

func ValidRole(role string) bool {
	switch role {
	case RoleGuest, RoleTrainee, RoleStaff, RoleModerator, RoleAdmin, RoleOwner:
		return true
	default:
		return false
	}
}

const (
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
)

type Staff struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Email         string            `gorm:"not null;uniqueIndex" json:"email"`
	DisplayName   string            `gorm:"not null" json:"display_name"`
	MinecraftUUID *string           `gorm:"column:minecraft_uuid;uniqueIndex" json:"minecraft_uuid,omitempty"`
	Role          string            `gorm:"not null;default:GUEST" json:"role"`
	Status        string            `gorm:"not null;default:ACTIVE" json:"status"`
	PasswordHash  string            `gorm:"not null" json:"-"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	LastLoginAt   *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
}

func (Staff) TableName() string {
	return "staff"
}

func (s Staff) Suspended() bool {
	return s.Status == StatusSuspended
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
