package migration

import (
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := RunAutoMigrations(conn); err != nil {
				return err
			}
		}

		if err := seed.EnsureCountries(conn); err != nil {
			return err
		}
		if cfg.Bootstrap.EnsureOwner {
			return seed.EnsureOwner(conn, cfg.Bootstrap)
		}
		return nil
	}),
)
