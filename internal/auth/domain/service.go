package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
)

type LoginRequest struct {
	Email    string
	Password string
}

type LoginResult struct {
	Staff     *staffdomain.Staff
	Token     string
	ExpiresAt time.Time
}

type Service interface {
	// Login verifies credentials and opens a session. The returned token
	// is shown once; only its hash is persisted.
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	// Authenticate resolves a session token to an active staff member,
	// enforcing expiry, idle timeout and the session security policy.
	Authenticate(ctx context.Context, token string) (*staffdomain.Staff, error)
	Logout(ctx context.Context, token string) error
	RevokeSessions(ctx context.Context, staffID snowflake.ID) error
	ChangePassword(ctx context.Context, staffID snowflake.ID, current, next string) error
	// StartPasswordReset issues a reset token, revokes the member's open
	// sessions and emails the token to the member.
	StartPasswordReset(ctx context.Context, email string) error
	CompletePasswordReset(ctx context.Context, token, newPassword string) error
}

// PolicyChecker enforces the session security policy. Implemented by the
// sessionpolicy service; nil when no policy enforcement is wired.
type PolicyChecker interface {
	Evaluate(ctx context.Context, ip, country string) error
	Limits(ctx context.Context) (maxSession, idleTimeout time.Duration)
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountSuspended   = errors.New("account_suspended")
	ErrSessionNotFound    = errors.New("session_not_found")
	ErrSessionExpired     = errors.New("session_expired")
	ErrSessionRevoked     = errors.New("session_revoked")
	ErrPolicyBlocked      = errors.New("session_policy_blocked")
	ErrResetInvalid       = errors.New("password_reset_invalid")
	ErrWeakPassword       = errors.New("weak_password")
)
