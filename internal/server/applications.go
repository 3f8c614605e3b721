package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	appdomain "github.com/imaginearsclub/backstage/internal/application/domain"
)

type ReviewApplicationRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note"`
}

// SubmitApplication is the only unauthenticated write endpoint, so it is
// throttled per client address.
func (s *Server) SubmitApplication(c *gin.Context) {
	if !s.applicationLimiter.Allow(c.ClientIP()) {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitDenied("applications")
		}
		AbortWithError(c, ErrRateLimited)
		return
	}

	var req appdomain.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	app, err := s.appSvc.Submit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, app)
}

func (s *Server) ListApplications(c *gin.Context) {
	var req appdomain.ListApplicationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Status = strings.ToUpper(strings.TrimSpace(c.Query("status")))

	resp, err := s.appSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetApplication(c *gin.Context) {
	id, ok := applicationIDParam(c)
	if !ok {
		return
	}

	app, err := s.appSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

func (s *Server) ReviewApplication(c *gin.Context) {
	id, ok := applicationIDParam(c)
	if !ok {
		return
	}

	var req ReviewApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var approve bool
	switch strings.ToLower(strings.TrimSpace(req.Decision)) {
	case "approve":
		approve = true
	case "reject":
		approve = false
	default:
		AbortWithError(c, newValidationError("decision", "invalid", `decision must be "approve" or "reject"`))
		return
	}

	app, err := s.appSvc.Review(c.Request.Context(), appdomain.ReviewApplicationRequest{
		ID:      id,
		Approve: approve,
		Note:    strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, app)
}

func applicationIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError("id", "invalid", "invalid application id"))
		return 0, false
	}
	return id, true
}
