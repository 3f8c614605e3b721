package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
)

type CreateStaffRequest struct {
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	MinecraftUUID string `json:"minecraft_uuid"`
	Role          string `json:"role"`
	Password      string `json:"password"`
}

type UpdateStaffRequest struct {
	DisplayName   *string        `json:"display_name"`
	MinecraftUUID *string        `json:"minecraft_uuid"`
	Metadata      map[string]any `json:"metadata"`
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) ListStaff(c *gin.Context) {
	var req staffdomain.ListStaffRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Role = strings.ToUpper(strings.TrimSpace(c.Query("role")))
	req.Status = strings.ToUpper(strings.TrimSpace(c.Query("status")))
	req.Search = strings.TrimSpace(c.Query("search"))

	resp, err := s.staffSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateStaff(c *gin.Context) {
	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.staffSvc.Create(c.Request.Context(), staffdomain.CreateStaffRequest{
		Email:         req.Email,
		DisplayName:   req.DisplayName,
		MinecraftUUID: req.MinecraftUUID,
		Role:          req.Role,
		Password:      req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditStaff(c, "staff.created", member, nil)
	c.JSON(http.StatusCreated, member)
}

func (s *Server) GetStaff(c *gin.Context) {
	id, ok := staffIDParam(c)
	if !ok {
		return
	}

	member, err := s.staffSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (s *Server) UpdateStaff(c *gin.Context) {
	id, ok := staffIDParam(c)
	if !ok {
		return
	}

	var req UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.staffSvc.Update(c.Request.Context(), staffdomain.UpdateStaffRequest{
		ID:            id,
		DisplayName:   req.DisplayName,
		MinecraftUUID: req.MinecraftUUID,
		Metadata:      req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditStaff(c, "staff.updated", member, nil)
	c.JSON(http.StatusOK, member)
}

func (s *Server) DeleteStaff(c *gin.Context) {
	id, ok := staffIDParam(c)
	if !ok {
		return
	}

	if err := s.staffSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := id.String()
	if s.auditSvc != nil {
		_ = s.auditSvc.Record(c.Request.Context(), "", nil, "staff.deleted", "staff", &targetID, nil)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) SuspendStaff(c *gin.Context) {
	id, ok := staffIDParam(c)
	if !ok {
		return
	}

	member, err := s.staffSvc.Suspend(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditStaff(c, "staff.suspended", member, nil)
	c.JSON(http.StatusOK, member)
}

func (s *Server) ActivateStaff(c *gin.Context) {
	id, ok := staffIDParam(c)
	if !ok {
		return
	}

	member, err := s.staffSvc.Activate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditStaff(c, "staff.activated", member, nil)
	c.JSON(http.StatusOK, member)
}

func (s *Server) ChangeStaffRole(c *gin.Context) {
	id, ok := staffIDParam(c)
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.staffSvc.ChangeRole(c.Request.Context(), id, strings.ToUpper(strings.TrimSpace(req.Role)))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditStaff(c, "staff.role_changed", member, map[string]any{"role": member.Role})
	c.JSON(http.StatusOK, member)
}

func (s *Server) auditStaff(c *gin.Context, action string, member *staffdomain.Staff, metadata map[string]any) {
	if s.auditSvc == nil || member == nil {
		return
	}
	targetID := member.ID.String()
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["email"] = member.Email
	_ = s.auditSvc.Record(c.Request.Context(), "", nil, action, "staff", &targetID, metadata)
}

func staffIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError("id", "invalid", "invalid staff id"))
		return 0, false
	}
	return id, true
}
