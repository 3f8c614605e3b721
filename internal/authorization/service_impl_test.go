package authorization

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*gorm.DB, Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&staffdomain.Staff{}))

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})
	return db, svc
}

func seedStaff(t *testing.T, db *gorm.DB, id int64, role string) string {
	t.Helper()
	member := staffdomain.Staff{
		ID:           snowflake.ID(id),
		Email:        staffdomain.NormalizeEmail(role) + "@example.com",
		DisplayName:  role,
		Role:         role,
		Status:       staffdomain.StatusActive,
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&member).Error)
	return "user:" + member.ID.String()
}

func TestAuthorizeByRole(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()

	admin := seedStaff(t, db, 1, staffdomain.RoleAdmin)
	moderator := seedStaff(t, db, 2, staffdomain.RoleModerator)
	trainee := seedStaff(t, db, 3, staffdomain.RoleTrainee)
	owner := seedStaff(t, db, 4, staffdomain.RoleOwner)

	require.NoError(t, svc.Authorize(ctx, admin, ObjectStaff, ActionStaffChangeRole))
	require.NoError(t, svc.Authorize(ctx, moderator, ObjectStaff, ActionStaffSuspend))
	require.NoError(t, svc.Authorize(ctx, owner, ObjectStaff, ActionStaffDelete))
	require.NoError(t, svc.Authorize(ctx, trainee, ObjectStaff, ActionStaffView))

	require.ErrorIs(t, svc.Authorize(ctx, trainee, ObjectStaff, ActionStaffSuspend), ErrForbidden)
	require.ErrorIs(t, svc.Authorize(ctx, moderator, ObjectStaff, ActionStaffChangeRole), ErrForbidden)
	require.ErrorIs(t, svc.Authorize(ctx, admin, ObjectStaff, ActionStaffDelete), ErrForbidden)
	require.ErrorIs(t, svc.Authorize(ctx, admin, ObjectRole, ActionRoleManage), ErrForbidden)
}

func TestAuthorizeSystemActor(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "system", ObjectStaff, ActionStaffCreate))
	require.NoError(t, svc.Authorize(ctx, "system", ObjectLuckPerms, ActionLuckPermsSync))
	require.ErrorIs(t, svc.Authorize(ctx, "system", ObjectStaff, ActionStaffDelete), ErrForbidden)
}

func TestAuthorizeRejectsBadActors(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()

	require.ErrorIs(t, svc.Authorize(ctx, "", ObjectStaff, ActionStaffView), ErrInvalidActor)
	require.ErrorIs(t, svc.Authorize(ctx, "banana", ObjectStaff, ActionStaffView), ErrInvalidActor)
	require.ErrorIs(t, svc.Authorize(ctx, "user:not-a-number", ObjectStaff, ActionStaffView), ErrInvalidActor)
}

func TestAuthorizeFollowsRoleChange(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()

	actor := seedStaff(t, db, 10, staffdomain.RoleTrainee)
	require.ErrorIs(t, svc.Authorize(ctx, actor, ObjectStaff, ActionStaffSuspend), ErrForbidden)

	require.NoError(t, db.Exec(`UPDATE staff SET role = ? WHERE id = ?`, staffdomain.RoleModerator, snowflake.ID(10)).Error)
	require.NoError(t, svc.Authorize(ctx, actor, ObjectStaff, ActionStaffSuspend))

	require.NoError(t, db.Exec(`UPDATE staff SET role = ? WHERE id = ?`, staffdomain.RoleTrainee, snowflake.ID(10)).Error)
	require.ErrorIs(t, svc.Authorize(ctx, actor, ObjectStaff, ActionStaffSuspend), ErrForbidden)
}

func TestGrantAndRevoke(t *testing.T) {
	db, svc := newTestService(t)
	ctx := context.Background()

	actor := seedStaff(t, db, 20, staffdomain.RoleTrainee)
	perm := Permission{Object: ObjectAuditLog, Action: ActionAuditLogView}

	require.ErrorIs(t, svc.Authorize(ctx, actor, perm.Object, perm.Action), ErrForbidden)
	require.NoError(t, svc.Grant(ctx, staffdomain.RoleTrainee, perm))
	require.NoError(t, svc.Authorize(ctx, actor, perm.Object, perm.Action))
	require.NoError(t, svc.Revoke(ctx, staffdomain.RoleTrainee, perm))
	require.ErrorIs(t, svc.Authorize(ctx, actor, perm.Object, perm.Action), ErrForbidden)

	require.ErrorIs(t, svc.Grant(ctx, "WIZARD", perm), ErrUnknownRole)
	require.ErrorIs(t, svc.Grant(ctx, staffdomain.RoleTrainee, Permission{Object: "nope", Action: "nope.view"}), ErrInvalidObject)
	require.ErrorIs(t, svc.Grant(ctx, staffdomain.RoleTrainee, Permission{Object: ObjectStaff, Action: "role.manage"}), ErrInvalidAction)
}

func TestRolePermissions(t *testing.T) {
	_, svc := newTestService(t)
	ctx := context.Background()

	perms, err := svc.RolePermissions(ctx, staffdomain.RoleModerator)
	require.NoError(t, err)
	require.Contains(t, perms, Permission{Object: ObjectStaff, Action: ActionStaffSuspend})
	require.Contains(t, perms, Permission{Object: ObjectApplication, Action: ActionApplicationReview})
	require.NotContains(t, perms, Permission{Object: ObjectStaff, Action: ActionStaffChangeRole})

	_, err = svc.RolePermissions(ctx, "WIZARD")
	require.ErrorIs(t, err, ErrUnknownRole)
}
