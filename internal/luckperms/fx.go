package luckperms

import (
	"context"

	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/luckperms/domain"
	obslogger "github.com/imaginearsclub/backstage/internal/observability/logger"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"github.com/imaginearsclub/backstage/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("luckperms",
	fx.Provide(
		fx.Annotate(NewDB, fx.ResultTags(`name:"luckperms_db"`)),
		fx.Annotate(NewService, fx.ParamTags(``, ``, `name:"luckperms_db"`)),
		AsGroupSyncer,
	),
)

// NewDB opens the LuckPerms MySQL connection, or returns nil when the
// integration is disabled.
func NewDB(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	if !cfg.LuckPerms.Enabled {
		log.Info("luckperms integration disabled")
		return nil, nil
	}

	conn, err := gorm.Open(db.LuckPermsDialect(cfg.LuckPerms), &gorm.Config{
		Logger: obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return sqlDB.Close()
		},
	})

	return conn, nil
}

// AsGroupSyncer exposes the service as the staff module's group syncer.
// Disabled integrations sync nothing.
func AsGroupSyncer(cfg config.Config, svc domain.Service) staffdomain.GroupSyncer {
	if !cfg.LuckPerms.Enabled {
		return nil
	}
	return svc
}
