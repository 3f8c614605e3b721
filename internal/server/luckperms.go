package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type SyncLuckPermsRequest struct {
	StaffID string `json:"staff_id"`
}

func (s *Server) ListLuckPermsGroups(c *gin.Context) {
	groups, err := s.luckSvc.ListGroups(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (s *Server) GetLuckPermsPlayer(c *gin.Context) {
	player, err := s.luckSvc.GetPlayer(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, player)
}

// SyncLuckPermsRole pushes a staff member's current role to LuckPerms.
// The member must have a linked Minecraft account.
func (s *Server) SyncLuckPermsRole(c *gin.Context) {
	var req SyncLuckPermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id, err := snowflake.ParseString(strings.TrimSpace(req.StaffID))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError("staff_id", "invalid", "invalid staff id"))
		return
	}

	member, err := s.staffSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if member.MinecraftUUID == nil || strings.TrimSpace(*member.MinecraftUUID) == "" {
		AbortWithError(c, newValidationError("staff_id", "no_minecraft_account", "staff member has no linked minecraft account"))
		return
	}

	if err := s.luckSvc.SyncRole(c.Request.Context(), *member.MinecraftUUID, member.Role); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		targetID := member.ID.String()
		_ = s.auditSvc.Record(c.Request.Context(), "", nil, "luckperms.synced", "staff", &targetID, map[string]any{
			"minecraft_uuid": *member.MinecraftUUID,
			"role":           member.Role,
		})
	}

	c.Status(http.StatusNoContent)
}
