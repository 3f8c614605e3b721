// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Session represents a persisted staff login session. Only a SHA-256
// hash of the session token is stored.
type Session struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	StaffID    snowflake.ID `gorm:"column:staff_id;not null;index"`
	TokenHash  string       `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	UserAgent  string       `gorm:"column:user_agent;type:text"`
	IPAddress  string       `gorm:"column:ip_address;type:text"`
	Country    string       `gorm:"column:country;type:text"`
	ExpiresAt  time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt  *time.Time   `gorm:"column:revoked_at"`
	CreatedAt  time.Time    `gorm:"column:created_at;not null"`
	LastSeenAt time.Time    `gorm:"column:last_seen_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "staff_sessions" }

func (s Session) Revoked() bool { return s.RevokedAt != nil }

// PasswordReset is a single-use credential reset token. Only the
// SHA-256 hash of the token is stored.
type PasswordReset struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	StaffID   snowflake.ID `gorm:"column:staff_id;not null;index"`
	TokenHash string       `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	ExpiresAt time.Time    `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time   `gorm:"column:used_at"`
	CreatedAt time.Time    `gorm:"column:created_at;not null"`
}

// TableName sets the database table name.
func (PasswordReset) TableName() string { return "password_resets" }
