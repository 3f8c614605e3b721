// Package domain contains types for staff application intake.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// StaffApplication is a public application to join the staff team.
type StaffApplication struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Email         string            `gorm:"not null;index" json:"email"`
	DisplayName   string            `gorm:"not null" json:"display_name"`
	MinecraftUUID *string           `gorm:"column:minecraft_uuid" json:"minecraft_uuid,omitempty"`
	Age           int               `gorm:"not null" json:"age"`
	Answers       datatypes.JSONMap `gorm:"not null;default:'{}'" json:"answers"`
	Status        string            `gorm:"not null;default:PENDING;index" json:"status"`
	ReviewerID    *snowflake.ID     `gorm:"column:reviewer_id" json:"reviewer_id,omitempty"`
	ReviewNote    string            `gorm:"column:review_note" json:"review_note,omitempty"`
	ReviewedAt    *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
}

func (StaffApplication) TableName() string { return "staff_applications" }

func (a StaffApplication) Pending() bool { return a.Status == StatusPending }

type ApplicationCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
