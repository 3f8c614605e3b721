// Package seed bootstraps a fresh database with the rows the app needs
// to be usable out of the box.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/imaginearsclub/backstage/internal/auth/password"
	"github.com/imaginearsclub/backstage/internal/config"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultOwnerName = "Site Owner"

// EnsureOwner creates the OWNER account when none exists. Existing
// owners are left untouched.
func EnsureOwner(db *gorm.DB, cfg config.BootstrapConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	email := strings.ToLower(strings.TrimSpace(cfg.OwnerEmail))
	if email == "" || cfg.OwnerPassword == "" {
		return errors.New("owner bootstrap requires BOOTSTRAP_OWNER_EMAIL and BOOTSTRAP_OWNER_PASSWORD")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&staffdomain.Staff{}).
			Where("role = ?", staffdomain.RoleOwner).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hash, err := password.Hash(cfg.OwnerPassword)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(cfg.OwnerName)
		if name == "" {
			name = defaultOwnerName
		}

		now := time.Now().UTC()
		return tx.Create(&staffdomain.Staff{
			ID:           node.Generate(),
			Email:        email,
			DisplayName:  name,
			Role:         staffdomain.RoleOwner,
			Status:       staffdomain.StatusActive,
			PasswordHash: hash,
			Metadata:     datatypes.JSONMap{"seeded": true},
			CreatedAt:    now,
			UpdatedAt:    now,
		}).Error
	})
}
