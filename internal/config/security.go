package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SecurityConfig holds operator-tunable limits loaded from security.yml.
// It is hot-reloaded so limits can be adjusted without a restart.
type SecurityConfig struct {
	Bulk    BulkLimits    `mapstructure:"bulk"`
	Session SessionLimits `mapstructure:"session"`
}

type BulkLimits struct {
	MaxTargets            int `mapstructure:"maxTargets"`
	RequestsPerHour       int `mapstructure:"requestsPerHour"`
	IdempotencyTTLSeconds int `mapstructure:"idempotencyTtlSeconds"`
}

type SessionLimits struct {
	MaxDurationMinutes int `mapstructure:"maxDurationMinutes"`
	IdleTimeoutMinutes int `mapstructure:"idleTimeoutMinutes"`
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		Bulk: BulkLimits{
			MaxTargets:            100,
			RequestsPerHour:       10,
			IdempotencyTTLSeconds: 60,
		},
		Session: SessionLimits{
			MaxDurationMinutes: 12 * 60,
			IdleTimeoutMinutes: 60,
		},
	}
}

// SecurityHolder exposes the current SecurityConfig behind an atomic.Value.
type SecurityHolder struct {
	current atomic.Value // holds SecurityConfig
}

func NewSecurityHolder(log *zap.Logger) (*SecurityHolder, error) {
	log = log.Named("config.security")
	v := viper.New()

	v.SetConfigName("security")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/backstage")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BACKSTAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultSecurityConfig()
		v.SetDefault("security.bulk", defaults.Bulk)
		v.SetDefault("security.session", defaults.Session)
	}

	cfg := DefaultSecurityConfig()
	if err := v.UnmarshalKey("security", &cfg); err != nil {
		return nil, err
	}
	if err := validateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	holder := &SecurityHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := DefaultSecurityConfig()
		if err := v.UnmarshalKey("security", &updated); err != nil {
			log.Warn("security config reload failed", zap.Error(err))
			return
		}
		if err := validateSecurityConfig(updated); err != nil {
			log.Warn("ignoring invalid security config", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("security config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticSecurityHolder returns a holder pinned to cfg, without file
// watching. Used by tests.
func NewStaticSecurityHolder(cfg SecurityConfig) *SecurityHolder {
	holder := &SecurityHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *SecurityHolder) Get() SecurityConfig {
	return h.current.Load().(SecurityConfig)
}

func validateSecurityConfig(cfg SecurityConfig) error {
	if cfg.Bulk.MaxTargets <= 0 || cfg.Bulk.MaxTargets > 1000 {
		return errors.New("security.bulk.maxTargets must be in (0, 1000]")
	}
	if cfg.Bulk.RequestsPerHour <= 0 {
		return errors.New("security.bulk.requestsPerHour must be positive")
	}
	if cfg.Bulk.IdempotencyTTLSeconds <= 0 {
		return errors.New("security.bulk.idempotencyTtlSeconds must be positive")
	}
	if cfg.Session.MaxDurationMinutes <= 0 || cfg.Session.IdleTimeoutMinutes <= 0 {
		return errors.New("security.session durations must be positive")
	}
	return nil
}
