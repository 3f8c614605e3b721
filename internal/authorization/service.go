// Package authorization enforces role-based access control for staff
// actions, backed by casbin with policies persisted through gorm.
package authorization

import (
	"context"
	"errors"
)

const (
	ObjectStaff         = "staff"
	ObjectRole          = "role"
	ObjectSessionPolicy = "session_policy"
	ObjectApplication   = "application"
	ObjectAuditLog      = "audit_log"
	ObjectLuckPerms     = "luckperms"
)

const (
	ActionStaffView          = "staff.view"
	ActionStaffCreate        = "staff.create"
	ActionStaffUpdate        = "staff.update"
	ActionStaffDelete        = "staff.delete"
	ActionStaffSuspend       = "staff.suspend"
	ActionStaffActivate      = "staff.activate"
	ActionStaffChangeRole    = "staff.change_role"
	ActionStaffResetPassword = "staff.reset_password"
	ActionStaffEmail         = "staff.email"

	ActionRoleView   = "role.view"
	ActionRoleManage = "role.manage"

	ActionSessionPolicyView   = "session_policy.view"
	ActionSessionPolicyUpdate = "session_policy.update"

	ActionApplicationView   = "application.view"
	ActionApplicationReview = "application.review"

	ActionAuditLogView = "audit_log.view"

	ActionLuckPermsView = "luckperms.view"
	ActionLuckPermsSync = "luckperms.sync"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrUnknownRole   = errors.New("unknown_role")
)

// Permission is one object/action pair a role is allowed.
type Permission struct {
	Object string `json:"object"`
	Action string `json:"action"`
}

type Service interface {
	// Authorize returns nil when the actor may perform action on object.
	// Actors are "system" or "user:<staff id>"; a user's role is resolved
	// from the staff table and mirrored into the enforcer.
	Authorize(ctx context.Context, actor string, object string, action string) error
	// RolePermissions lists the permissions granted to a role.
	RolePermissions(ctx context.Context, role string) ([]Permission, error)
	// Grant adds a permission to a role. Revoke removes one.
	Grant(ctx context.Context, role string, perm Permission) error
	Revoke(ctx context.Context, role string, perm Permission) error
}
