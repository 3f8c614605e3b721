// Package domain contains types for the session security policy.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// PolicyID is the primary key of the single policy row.
const PolicyID = 1

// SessionPolicy is the site-wide session security policy. A single row
// controls session lifetime, idle timeout and network restrictions for
// every staff session.
type SessionPolicy struct {
	ID                 int64                       `gorm:"primaryKey" json:"-"`
	Enabled            bool                        `gorm:"not null;default:false" json:"enabled"`
	MaxSessionMinutes  int                         `gorm:"not null" json:"max_session_minutes"`
	IdleTimeoutMinutes int                         `gorm:"not null" json:"idle_timeout_minutes"`
	AllowCIDRs         datatypes.JSONSlice[string] `gorm:"column:allow_cidrs" json:"allow_cidrs"`
	AllowCountries     datatypes.JSONSlice[string] `gorm:"column:allow_countries" json:"allow_countries"`
	BlockCountries     datatypes.JSONSlice[string] `gorm:"column:block_countries" json:"block_countries"`
	UpdatedAt          time.Time                   `gorm:"not null" json:"updated_at"`
}

func (SessionPolicy) TableName() string { return "session_policies" }
