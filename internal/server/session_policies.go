package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	policydomain "github.com/imaginearsclub/backstage/internal/sessionpolicy/domain"
)

func (s *Server) GetSessionPolicy(c *gin.Context) {
	policy, err := s.policySvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, policy)
}

func (s *Server) UpdateSessionPolicy(c *gin.Context) {
	var req policydomain.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	policy, err := s.policySvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(c.Request.Context(), "", nil, "session_policy.updated", "session_policy", nil, map[string]any{
			"enabled":              policy.Enabled,
			"max_session_minutes":  policy.MaxSessionMinutes,
			"idle_timeout_minutes": policy.IdleTimeoutMinutes,
		})
	}

	c.JSON(http.StatusOK, policy)
}
