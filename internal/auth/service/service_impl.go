package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/imaginearsclub/backstage/internal/auth/domain"
	"github.com/imaginearsclub/backstage/internal/auth/password"
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/providers/email"
	"github.com/imaginearsclub/backstage/internal/requestctx"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	StaffRepo staffdomain.Repository
	Security  *config.SecurityHolder
	Email     email.Provider
	Policy    domain.PolicyChecker `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	staffRepo staffdomain.Repository
	security  *config.SecurityHolder
	email     email.Provider
	policy    domain.PolicyChecker
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("auth.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		staffRepo: p.StaffRepo,
		security:  p.Security,
		email:     p.Email,
		policy:    p.Policy,
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *Service) sessionLimits(ctx context.Context) (time.Duration, time.Duration) {
	if s.policy != nil {
		return s.policy.Limits(ctx)
	}
	limits := s.security.Get().Session
	return time.Duration(limits.MaxDurationMinutes) * time.Minute,
		time.Duration(limits.IdleTimeoutMinutes) * time.Minute
}

func (s *Service) evaluatePolicy(ctx context.Context) error {
	if s.policy == nil {
		return nil
	}
	ip := requestctx.IPAddressFromContext(ctx)
	country := requestctx.CountryFromContext(ctx)
	if err := s.policy.Evaluate(ctx, ip, country); err != nil {
		s.log.Warn("session blocked by security policy",
			zap.String("ip", ip),
			zap.String("country", country),
			zap.Error(err),
		)
		return domain.ErrPolicyBlocked
	}
	return nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	member, err := s.staffRepo.FindByEmail(ctx, s.db, req.Email)
	if err != nil {
		return nil, err
	}
	if member == nil || !password.Verify(req.Password, member.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if member.Suspended() {
		return nil, domain.ErrAccountSuspended
	}
	if err := s.evaluatePolicy(ctx); err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	maxSession, _ := s.sessionLimits(ctx)
	now := time.Now().UTC()
	session := &domain.Session{
		ID:         s.genID.Generate(),
		StaffID:    member.ID,
		TokenHash:  hashToken(token),
		UserAgent:  requestctx.UserAgentFromContext(ctx),
		IPAddress:  requestctx.IPAddressFromContext(ctx),
		Country:    requestctx.CountryFromContext(ctx),
		ExpiresAt:  now.Add(maxSession),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.repo.InsertSession(ctx, s.db, session); err != nil {
		return nil, err
	}

	if err := s.staffRepo.TouchLastLogin(ctx, s.db, member.ID); err != nil {
		s.log.Warn("failed to record last login", zap.Error(err))
	}

	return &domain.LoginResult{
		Staff:     member,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) Authenticate(ctx context.Context, token string) (*staffdomain.Staff, error) {
	session, err := s.repo.FindSessionByTokenHash(ctx, s.db, hashToken(token))
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	if session.Revoked() {
		return nil, domain.ErrSessionRevoked
	}

	now := time.Now().UTC()
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	_, idleTimeout := s.sessionLimits(ctx)
	if idleTimeout > 0 && now.Sub(session.LastSeenAt) > idleTimeout {
		if err := s.repo.RevokeSession(ctx, s.db, session.ID); err != nil {
			s.log.Warn("failed to revoke idle session", zap.Error(err))
		}
		return nil, domain.ErrSessionExpired
	}

	member, err := s.staffRepo.FindByID(ctx, s.db, session.StaffID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrSessionNotFound
	}
	if member.Suspended() {
		return nil, domain.ErrAccountSuspended
	}

	// Policy changes apply to live sessions, not only new logins.
	if err := s.evaluatePolicy(ctx); err != nil {
		return nil, err
	}

	if err := s.repo.TouchSession(ctx, s.db, session.ID); err != nil {
		s.log.Warn("failed to touch session", zap.Error(err))
	}
	return member, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	session, err := s.repo.FindSessionByTokenHash(ctx, s.db, hashToken(token))
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	return s.repo.RevokeSession(ctx, s.db, session.ID)
}

func (s *Service) RevokeSessions(ctx context.Context, staffID snowflake.ID) error {
	return s.repo.RevokeSessionsForStaff(ctx, s.db, staffID)
}

func (s *Service) ChangePassword(ctx context.Context, staffID snowflake.ID, current, next string) error {
	member, err := s.staffRepo.FindByID(ctx, s.db, staffID)
	if err != nil {
		return err
	}
	if member == nil {
		return staffdomain.ErrNotFound
	}
	if !password.Verify(current, member.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if len(next) < 8 {
		return domain.ErrWeakPassword
	}

	hash, err := password.Hash(next)
	if err != nil {
		return err
	}
	return s.staffRepo.UpdatePasswordHash(ctx, s.db, staffID, hash)
}

func (s *Service) StartPasswordReset(ctx context.Context, emailAddr string) error {
	member, err := s.staffRepo.FindByEmail(ctx, s.db, emailAddr)
	if err != nil {
		return err
	}
	if member == nil {
		return staffdomain.ErrNotFound
	}

	token, err := newToken()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	reset := &domain.PasswordReset{
		ID:        s.genID.Generate(),
		StaffID:   member.ID,
		TokenHash: hashToken(token),
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	}
	if err := s.repo.InsertPasswordReset(ctx, s.db, reset); err != nil {
		return err
	}

	// Open sessions are cut when a reset is issued.
	if err := s.repo.RevokeSessionsForStaff(ctx, s.db, member.ID); err != nil {
		return err
	}

	return s.email.SendTemplate(ctx, []string{member.Email}, "password_reset", map[string]interface{}{
		"display_name": member.DisplayName,
		"token":        token,
	})
}

func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	reset, err := s.repo.FindPasswordResetByTokenHash(ctx, s.db, hashToken(token))
	if err != nil {
		return err
	}
	if reset == nil || reset.UsedAt != nil || time.Now().UTC().After(reset.ExpiresAt) {
		return domain.ErrResetInvalid
	}
	if len(newPassword) < 8 {
		return domain.ErrWeakPassword
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.staffRepo.UpdatePasswordHash(ctx, s.db, reset.StaffID, hash); err != nil {
		return err
	}
	return s.repo.MarkPasswordResetUsed(ctx, s.db, reset.ID)
}
