package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/imaginearsclub/backstage/internal/authorization"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
)

type PermissionRequest struct {
	Object string `json:"object"`
	Action string `json:"action"`
}

type roleView struct {
	Name        string                     `json:"name"`
	Permissions []authorization.Permission `json:"permissions"`
}

func (s *Server) ListRoles(c *gin.Context) {
	roles := staffdomain.Roles()
	views := make([]roleView, 0, len(roles))
	for _, role := range roles {
		perms, err := s.authzSvc.RolePermissions(c.Request.Context(), role)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		views = append(views, roleView{Name: role, Permissions: perms})
	}

	c.JSON(http.StatusOK, gin.H{"roles": views})
}

func (s *Server) GetRolePermissions(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}

	perms, err := s.authzSvc.RolePermissions(c.Request.Context(), role)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, roleView{Name: role, Permissions: perms})
}

func (s *Server) GrantRolePermission(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	perm, ok := bindPermission(c)
	if !ok {
		return
	}

	if err := s.authzSvc.Grant(c.Request.Context(), role, perm); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditRole(c, "role.permission_granted", role, perm)
	c.Status(http.StatusNoContent)
}

func (s *Server) RevokeRolePermission(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	perm, ok := bindPermission(c)
	if !ok {
		return
	}

	if err := s.authzSvc.Revoke(c.Request.Context(), role, perm); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditRole(c, "role.permission_revoked", role, perm)
	c.Status(http.StatusNoContent)
}

func (s *Server) auditRole(c *gin.Context, action, role string, perm authorization.Permission) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.Record(c.Request.Context(), "", nil, action, "role", &role, map[string]any{
		"object": perm.Object,
		"action": perm.Action,
	})
}

func bindPermission(c *gin.Context) (authorization.Permission, bool) {
	var req PermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return authorization.Permission{}, false
	}
	return authorization.Permission{
		Object: strings.TrimSpace(req.Object),
		Action: strings.TrimSpace(req.Action),
	}, true
}

func roleParam(c *gin.Context) (string, bool) {
	role := strings.ToUpper(strings.TrimSpace(c.Param("role")))
	if !staffdomain.ValidRole(role) {
		AbortWithError(c, newValidationError("role", "invalid", "unknown role"))
		return "", false
	}
	return role, true
}
