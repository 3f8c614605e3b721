package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/sessionpolicy/domain"
	"github.com/imaginearsclub/backstage/internal/sessionpolicy/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.SessionPolicy{}))

	return New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Repo:     repository.Provide(),
		Security: config.NewStaticSecurityHolder(config.DefaultSecurityConfig()),
	})
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

func TestGetReturnsDefaultsWhenUnset(t *testing.T) {
	svc := newTestService(t)

	policy, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.False(t, policy.Enabled)
	require.Equal(t, 720, policy.MaxSessionMinutes)
	require.Equal(t, 60, policy.IdleTimeoutMinutes)
}

func TestUpdateValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, domain.UpdatePolicyRequest{AllowCIDRs: []string{"not-a-cidr"}})
	require.ErrorIs(t, err, domain.ErrInvalidCIDR)

	_, err = svc.Update(ctx, domain.UpdatePolicyRequest{AllowCountries: []string{"USA"}})
	require.ErrorIs(t, err, domain.ErrInvalidCountry)

	_, err = svc.Update(ctx, domain.UpdatePolicyRequest{MaxSessionMinutes: intPtr(0)})
	require.ErrorIs(t, err, domain.ErrInvalidLimits)

	_, err = svc.Update(ctx, domain.UpdatePolicyRequest{
		MaxSessionMinutes:  intPtr(60),
		IdleTimeoutMinutes: intPtr(120),
	})
	require.ErrorIs(t, err, domain.ErrInvalidLimits)
}

func TestUpdateAcceptsBareAddresses(t *testing.T) {
	svc := newTestService(t)

	policy, err := svc.Update(context.Background(), domain.UpdatePolicyRequest{
		AllowCIDRs: []string{"10.0.0.0/8", "192.168.1.7"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.0/8", "192.168.1.7/32"}, []string(policy.AllowCIDRs))
}

func TestEvaluateDisabledAllowsEverything(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, domain.UpdatePolicyRequest{
		Enabled:        boolPtr(false),
		AllowCIDRs:     []string{"10.0.0.0/8"},
		BlockCountries: []string{"KP"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Evaluate(ctx, "8.8.8.8", "KP"))
}

func TestEvaluateCIDRAllowList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, domain.UpdatePolicyRequest{
		Enabled:    boolPtr(true),
		AllowCIDRs: []string{"10.0.0.0/8"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Evaluate(ctx, "10.42.0.1", ""))
	require.ErrorIs(t, svc.Evaluate(ctx, "8.8.8.8", ""), domain.ErrIPBlocked)
	require.ErrorIs(t, svc.Evaluate(ctx, "garbage", ""), domain.ErrIPBlocked)
}

func TestEvaluateCountryRules(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, domain.UpdatePolicyRequest{
		Enabled:        boolPtr(true),
		AllowCountries: []string{"US", "CA"},
		BlockCountries: []string{"KP"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Evaluate(ctx, "8.8.8.8", "US"))
	require.NoError(t, svc.Evaluate(ctx, "8.8.8.8", "ca"))
	require.ErrorIs(t, svc.Evaluate(ctx, "8.8.8.8", "KP"), domain.ErrCountryBlocked)
	require.ErrorIs(t, svc.Evaluate(ctx, "8.8.8.8", "FR"), domain.ErrCountryBlocked)
	// No country signal passes the allow list.
	require.NoError(t, svc.Evaluate(ctx, "8.8.8.8", ""))
}

func TestLimitsFollowPolicy(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	maxSession, idle := svc.Limits(ctx)
	require.Equal(t, 12*time.Hour, maxSession)
	require.Equal(t, time.Hour, idle)

	_, err := svc.Update(ctx, domain.UpdatePolicyRequest{
		MaxSessionMinutes:  intPtr(120),
		IdleTimeoutMinutes: intPtr(30),
	})
	require.NoError(t, err)

	maxSession, idle = svc.Limits(ctx)
	require.Equal(t, 2*time.Hour, maxSession)
	require.Equal(t, 30*time.Minute, idle)
}
