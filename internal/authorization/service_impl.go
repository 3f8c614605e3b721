package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/imaginearsclub/backstage/internal/audit/domain"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor)
	if err != nil {
		s.auditDenied(ctx, object, action)
		return err
	}

	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		staffIDRaw := strings.TrimPrefix(actor, "user:")
		staffID, err := snowflake.ParseString(staffIDRaw)
		if err != nil || staffID == 0 {
			return "", "", ErrInvalidActor
		}
		role, err := s.roleForStaff(ctx, staffID)
		if err != nil {
			return "", "", err
		}
		return actor, "role:" + strings.ToLower(role), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForStaff(ctx context.Context, staffID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role FROM staff WHERE id = ? LIMIT 1`,
		staffID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps the enforcer's subject-to-role link in step with
// the staff table. A role change drops the stale link.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) RolePermissions(ctx context.Context, role string) ([]Permission, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if !staffdomain.ValidRole(role) {
		return nil, ErrUnknownRole
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, "role:"+strings.ToLower(role))
	if err != nil {
		return nil, err
	}
	perms := make([]Permission, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		perms = append(perms, Permission{Object: rule[1], Action: rule[2]})
	}
	return perms, nil
}

func (s *ServiceImpl) Grant(ctx context.Context, role string, perm Permission) error {
	roleName, err := validateRolePerm(role, perm)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.AddPolicy(roleName, perm.Object, perm.Action); err != nil {
		return err
	}
	s.auditRoleChange(ctx, "role.permission_granted", role, perm)
	return nil
}

func (s *ServiceImpl) Revoke(ctx context.Context, role string, perm Permission) error {
	roleName, err := validateRolePerm(role, perm)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.RemovePolicy(roleName, perm.Object, perm.Action); err != nil {
		return err
	}
	s.auditRoleChange(ctx, "role.permission_revoked", role, perm)
	return nil
}

func validateRolePerm(role string, perm Permission) (string, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if !staffdomain.ValidRole(role) {
		return "", ErrUnknownRole
	}
	if !knownObject(perm.Object) {
		return "", ErrInvalidObject
	}
	if !strings.HasPrefix(perm.Action, perm.Object+".") {
		return "", ErrInvalidAction
	}
	return "role:" + strings.ToLower(role), nil
}

func knownObject(object string) bool {
	switch object {
	case ObjectStaff, ObjectRole, ObjectSessionPolicy, ObjectApplication, ObjectAuditLog, ObjectLuckPerms:
		return true
	default:
		return false
	}
}

func (s *ServiceImpl) auditDenied(ctx context.Context, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := fmt.Sprintf("%s:%s", object, action)
	if err := s.auditSvc.Record(ctx, "", nil, "authorization.denied", "capability", &targetID, map[string]any{
		"object": object,
		"action": action,
	}); err != nil {
		s.log.Warn("failed to audit denial", zap.Error(err))
	}
}

func (s *ServiceImpl) auditRoleChange(ctx context.Context, action string, role string, perm Permission) {
	if s.auditSvc == nil {
		return
	}
	targetID := strings.ToUpper(strings.TrimSpace(role))
	if err := s.auditSvc.Record(ctx, "", nil, action, "role", &targetID, map[string]any{
		"object": perm.Object,
		"action": perm.Action,
	}); err != nil {
		s.log.Warn("failed to audit role change", zap.Error(err))
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Trainees can look around, nothing more.
		{"role:trainee", ObjectStaff, ActionStaffView},

		{"role:staff", ObjectStaff, ActionStaffView},
		{"role:staff", ObjectApplication, ActionApplicationView},
		{"role:staff", ObjectLuckPerms, ActionLuckPermsView},

		{"role:moderator", ObjectStaff, ActionStaffView},
		{"role:moderator", ObjectStaff, ActionStaffSuspend},
		{"role:moderator", ObjectStaff, ActionStaffActivate},
		{"role:moderator", ObjectStaff, ActionStaffEmail},
		{"role:moderator", ObjectApplication, ActionApplicationView},
		{"role:moderator", ObjectApplication, ActionApplicationReview},
		{"role:moderator", ObjectAuditLog, ActionAuditLogView},
		{"role:moderator", ObjectLuckPerms, ActionLuckPermsView},

		{"role:admin", ObjectStaff, ActionStaffView},
		{"role:admin", ObjectStaff, ActionStaffCreate},
		{"role:admin", ObjectStaff, ActionStaffUpdate},
		{"role:admin", ObjectStaff, ActionStaffSuspend},
		{"role:admin", ObjectStaff, ActionStaffActivate},
		{"role:admin", ObjectStaff, ActionStaffChangeRole},
		{"role:admin", ObjectStaff, ActionStaffResetPassword},
		{"role:admin", ObjectStaff, ActionStaffEmail},
		{"role:admin", ObjectRole, ActionRoleView},
		{"role:admin", ObjectSessionPolicy, ActionSessionPolicyView},
		{"role:admin", ObjectSessionPolicy, ActionSessionPolicyUpdate},
		{"role:admin", ObjectApplication, ActionApplicationView},
		{"role:admin", ObjectApplication, ActionApplicationReview},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
		{"role:admin", ObjectLuckPerms, ActionLuckPermsView},
		{"role:admin", ObjectLuckPerms, ActionLuckPermsSync},

		{"role:owner", ObjectStaff, ActionStaffView},
		{"role:owner", ObjectStaff, ActionStaffCreate},
		{"role:owner", ObjectStaff, ActionStaffUpdate},
		{"role:owner", ObjectStaff, ActionStaffDelete},
		{"role:owner", ObjectStaff, ActionStaffSuspend},
		{"role:owner", ObjectStaff, ActionStaffActivate},
		{"role:owner", ObjectStaff, ActionStaffChangeRole},
		{"role:owner", ObjectStaff, ActionStaffResetPassword},
		{"role:owner", ObjectStaff, ActionStaffEmail},
		{"role:owner", ObjectRole, ActionRoleView},
		{"role:owner", ObjectRole, ActionRoleManage},
		{"role:owner", ObjectSessionPolicy, ActionSessionPolicyView},
		{"role:owner", ObjectSessionPolicy, ActionSessionPolicyUpdate},
		{"role:owner", ObjectApplication, ActionApplicationView},
		{"role:owner", ObjectApplication, ActionApplicationReview},
		{"role:owner", ObjectAuditLog, ActionAuditLogView},
		{"role:owner", ObjectLuckPerms, ActionLuckPermsView},
		{"role:owner", ObjectLuckPerms, ActionLuckPermsSync},

		// Internal jobs run with the system role.
		{"role:system", ObjectStaff, ActionStaffView},
		{"role:system", ObjectStaff, ActionStaffCreate},
		{"role:system", ObjectStaff, ActionStaffUpdate},
		{"role:system", ObjectLuckPerms, ActionLuckPermsSync},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
