// Package luckperms reads and writes the LuckPerms database used by the
// Minecraft servers. It runs against a separate MySQL connection and is
// disabled entirely when that connection is not configured.
package luckperms

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/luckperms/domain"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// roleGroups maps staff roles to LuckPerms group names.
var roleGroups = map[string]string{
	staffdomain.RoleGuest:     "default",
	staffdomain.RoleTrainee:   "trainee",
	staffdomain.RoleStaff:     "staff",
	staffdomain.RoleModerator: "moderator",
	staffdomain.RoleAdmin:     "admin",
	staffdomain.RoleOwner:     "owner",
}

type service struct {
	db     *gorm.DB
	log    *zap.Logger
	server string
}

func NewService(cfg config.Config, log *zap.Logger, db *gorm.DB) domain.Service {
	server := strings.TrimSpace(cfg.LuckPerms.ServerName)
	if server == "" {
		server = "global"
	}
	return &service{
		db:     db,
		log:    log.Named("luckperms.service"),
		server: server,
	}
}

func (s *service) GetPlayer(ctx context.Context, rawUUID string) (*domain.Player, error) {
	if s.db == nil {
		return nil, domain.ErrNotConfigured
	}
	playerUUID, err := normalizeUUID(rawUUID)
	if err != nil {
		return nil, err
	}

	var row struct {
		UUID         string `gorm:"column:uuid"`
		Username     string `gorm:"column:username"`
		PrimaryGroup string `gorm:"column:primary_group"`
	}
	res := s.db.WithContext(ctx).Raw(
		`SELECT uuid, username, primary_group FROM luckperms_players WHERE uuid = ?`,
		playerUUID,
	).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrPlayerNotFound
	}

	var perms []string
	if err := s.db.WithContext(ctx).Raw(
		`SELECT permission FROM luckperms_user_permissions
		 WHERE uuid = ? AND permission LIKE 'group.%' AND value = true`,
		playerUUID,
	).Scan(&perms).Error; err != nil {
		return nil, err
	}

	groups := make([]string, 0, len(perms))
	for _, perm := range perms {
		groups = append(groups, strings.TrimPrefix(perm, "group."))
	}

	return &domain.Player{
		UUID:         row.UUID,
		Username:     row.Username,
		PrimaryGroup: row.PrimaryGroup,
		Groups:       groups,
	}, nil
}

func (s *service) ListGroups(ctx context.Context) ([]domain.Group, error) {
	if s.db == nil {
		return nil, domain.ErrNotConfigured
	}
	var names []string
	if err := s.db.WithContext(ctx).Raw(
		`SELECT name FROM luckperms_groups ORDER BY name`,
	).Scan(&names).Error; err != nil {
		return nil, err
	}
	groups := make([]domain.Group, 0, len(names))
	for _, name := range names {
		groups = append(groups, domain.Group{Name: name})
	}
	return groups, nil
}

func (s *service) SyncRole(ctx context.Context, rawUUID string, role string) error {
	if s.db == nil {
		return domain.ErrNotConfigured
	}
	playerUUID, err := normalizeUUID(rawUUID)
	if err != nil {
		return err
	}
	group, ok := roleGroups[strings.ToUpper(strings.TrimSpace(role))]
	if !ok {
		return domain.ErrUnknownRole
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`DELETE FROM luckperms_user_permissions
			 WHERE uuid = ? AND permission LIKE 'group.%' AND server = ?`,
			playerUUID, s.server,
		).Error; err != nil {
			return err
		}
		if err := tx.Exec(
			`INSERT INTO luckperms_user_permissions (uuid, permission, value, server, world, expiry, contexts)
			 VALUES (?, ?, true, ?, 'global', 0, '{}')`,
			playerUUID, "group."+group, s.server,
		).Error; err != nil {
			return err
		}
		res := tx.Exec(
			`UPDATE luckperms_players SET primary_group = ? WHERE uuid = ?`,
			group, playerUUID,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrPlayerNotFound
		}
		s.log.Info("synced staff role to luckperms",
			zap.String("uuid", playerUUID),
			zap.String("group", group),
		)
		return nil
	})
}

func normalizeUUID(raw string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", domain.ErrInvalidUUID
	}
	return parsed.String(), nil
}
