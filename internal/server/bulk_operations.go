package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	bulkdomain "github.com/imaginearsclub/backstage/internal/bulkops/domain"
	"go.uber.org/zap"
)

const idempotencyKeyHeader = "Idempotency-Key"

// BulkRateLimit applies the per-operator sliding window before the
// request body is even parsed. Without Redis the limiter fails open.
func (s *Server) BulkRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.bulkLimiter.Enabled() {
			c.Next()
			return
		}

		member, ok := s.currentStaff(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		limit := s.security.Get().Bulk.RequestsPerHour
		result, err := s.bulkLimiter.Allow(c.Request.Context(), "ratelimit:bulk:"+member.ID.String(), limit, time.Hour)
		if err != nil {
			// A broken limiter must not block administrators.
			s.log.Warn("bulk rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied("staff_bulk")
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func (s *Server) BulkStaffOperation(c *gin.Context) {
	var raw bulkdomain.RawRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	raw.IdempotencyKey = strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))

	result, err := s.bulkSvc.Execute(c.Request.Context(), raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
