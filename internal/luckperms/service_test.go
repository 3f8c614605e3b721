package luckperms

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/luckperms/domain"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testUUID = "069a79f4-44e9-4726-a5be-fca90e38aaf5"

func newTestService(t *testing.T) (*gorm.DB, domain.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.UserPermission{}))
	require.NoError(t, db.Exec(
		`CREATE TABLE luckperms_players (uuid TEXT PRIMARY KEY, username TEXT NOT NULL, primary_group TEXT NOT NULL)`,
	).Error)
	require.NoError(t, db.Exec(
		`CREATE TABLE luckperms_groups (name TEXT PRIMARY KEY)`,
	).Error)

	cfg := config.Config{}
	cfg.LuckPerms.ServerName = "hub"
	return db, NewService(cfg, zap.NewNop(), db)
}

func seedPlayer(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO luckperms_players (uuid, username, primary_group) VALUES (?, 'Notch', 'default')`,
		testUUID,
	).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO luckperms_user_permissions (uuid, permission, value, server, world, expiry, contexts)
		 VALUES (?, 'group.default', true, 'hub', 'global', 0, '{}')`,
		testUUID,
	).Error)
}

func TestGetPlayer(t *testing.T) {
	db, svc := newTestService(t)
	seedPlayer(t, db)

	player, err := svc.GetPlayer(context.Background(), testUUID)
	require.NoError(t, err)
	require.Equal(t, "Notch", player.Username)
	require.Equal(t, "default", player.PrimaryGroup)
	require.Equal(t, []string{"default"}, player.Groups)

	_, err = svc.GetPlayer(context.Background(), "29d4f72a-33e0-4d29-a22e-aab84e09cfc7")
	require.ErrorIs(t, err, domain.ErrPlayerNotFound)

	_, err = svc.GetPlayer(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, domain.ErrInvalidUUID)
}

func TestListGroups(t *testing.T) {
	db, svc := newTestService(t)
	require.NoError(t, db.Exec(`INSERT INTO luckperms_groups (name) VALUES ('default'), ('moderator')`).Error)

	groups, err := svc.ListGroups(context.Background())
	require.NoError(t, err)
	require.Equal(t, []domain.Group{{Name: "default"}, {Name: "moderator"}}, groups)
}

func TestSyncRoleReplacesGroups(t *testing.T) {
	db, svc := newTestService(t)
	seedPlayer(t, db)
	ctx := context.Background()

	require.NoError(t, svc.SyncRole(ctx, testUUID, staffdomain.RoleModerator))

	player, err := svc.GetPlayer(ctx, testUUID)
	require.NoError(t, err)
	require.Equal(t, "moderator", player.PrimaryGroup)
	require.Equal(t, []string{"moderator"}, player.Groups)

	// Syncing again is idempotent.
	require.NoError(t, svc.SyncRole(ctx, testUUID, staffdomain.RoleModerator))
	player, err = svc.GetPlayer(ctx, testUUID)
	require.NoError(t, err)
	require.Equal(t, []string{"moderator"}, player.Groups)
}

func TestSyncRoleErrors(t *testing.T) {
	db, svc := newTestService(t)
	seedPlayer(t, db)
	ctx := context.Background()

	require.ErrorIs(t, svc.SyncRole(ctx, testUUID, "WIZARD"), domain.ErrUnknownRole)
	require.ErrorIs(t, svc.SyncRole(ctx, "29d4f72a-33e0-4d29-a22e-aab84e09cfc7", staffdomain.RoleStaff), domain.ErrPlayerNotFound)
}

func TestNotConfigured(t *testing.T) {
	svc := NewService(config.Config{}, zap.NewNop(), nil)

	_, err := svc.GetPlayer(context.Background(), testUUID)
	require.ErrorIs(t, err, domain.ErrNotConfigured)
	require.ErrorIs(t, svc.SyncRole(context.Background(), testUUID, staffdomain.RoleStaff), domain.ErrNotConfigured)
}
