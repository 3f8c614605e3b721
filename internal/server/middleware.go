package server

import (
	"github.com/gin-gonic/gin"
	"github.com/imaginearsclub/backstage/internal/requestctx"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
)

const contextStaffKey = "staff"

// AuthRequired resolves the session cookie to an active staff member and
// seeds the request context with the actor for audit and authorization.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		member, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.sessions.Clear(c)
			AbortWithError(c, err)
			return
		}

		ctx := requestctx.WithActor(c.Request.Context(), "user", member.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextStaffKey, member)
		c.Next()
	}
}

// RequirePermission gates a route on an RBAC check for the logged-in member.
func (s *Server) RequirePermission(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		member, ok := s.currentStaff(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := "user:" + member.ID.String()
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

func (s *Server) currentStaff(c *gin.Context) (*staffdomain.Staff, bool) {
	value, ok := c.Get(contextStaffKey)
	if !ok {
		return nil, false
	}
	member, ok := value.(*staffdomain.Staff)
	return member, ok && member != nil
}
