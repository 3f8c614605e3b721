package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewSecurityHolderFallsBackToDefaults(t *testing.T) {
	holder, err := NewSecurityHolder(zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, DefaultSecurityConfig(), holder.Get())
}

func TestValidateSecurityConfig(t *testing.T) {
	require.NoError(t, validateSecurityConfig(DefaultSecurityConfig()))

	cfg := DefaultSecurityConfig()
	cfg.Bulk.RequestsPerHour = 0
	require.Error(t, validateSecurityConfig(cfg))

	cfg = DefaultSecurityConfig()
	cfg.Bulk.MaxTargets = 5000
	require.Error(t, validateSecurityConfig(cfg))

	cfg = DefaultSecurityConfig()
	cfg.Session.IdleTimeoutMinutes = 0
	require.Error(t, validateSecurityConfig(cfg))
}
