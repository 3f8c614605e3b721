package domain

import (
	"context"
	"errors"
	"time"
)

type UpdatePolicyRequest struct {
	Enabled            *bool    `json:"enabled"`
	MaxSessionMinutes  *int     `json:"max_session_minutes"`
	IdleTimeoutMinutes *int     `json:"idle_timeout_minutes"`
	AllowCIDRs         []string `json:"allow_cidrs"`
	AllowCountries     []string `json:"allow_countries"`
	BlockCountries     []string `json:"block_countries"`
}

type Service interface {
	Get(ctx context.Context) (*SessionPolicy, error)
	Update(ctx context.Context, req UpdatePolicyRequest) (*SessionPolicy, error)
	// Evaluate checks an address and country against the active policy.
	// A disabled policy allows everything.
	Evaluate(ctx context.Context, ip, country string) error
	// Limits returns the effective session lifetime and idle timeout.
	Limits(ctx context.Context) (maxSession, idleTimeout time.Duration)
}

var (
	ErrInvalidCIDR    = errors.New("invalid_cidr")
	ErrInvalidCountry = errors.New("invalid_country")
	ErrInvalidLimits  = errors.New("invalid_limits")
	ErrIPBlocked      = errors.New("ip_blocked")
	ErrCountryBlocked = errors.New("country_blocked")
)
