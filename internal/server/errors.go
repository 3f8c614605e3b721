package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	appdomain "github.com/imaginearsclub/backstage/internal/application/domain"
	auditdomain "github.com/imaginearsclub/backstage/internal/audit/domain"
	authdomain "github.com/imaginearsclub/backstage/internal/auth/domain"
	"github.com/imaginearsclub/backstage/internal/authorization"
	bulkdomain "github.com/imaginearsclub/backstage/internal/bulkops/domain"
	luckdomain "github.com/imaginearsclub/backstage/internal/luckperms/domain"
	policydomain "github.com/imaginearsclub/backstage/internal/sessionpolicy/domain"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	// Bulk requests report every violation at once.
	var bulkErr *bulkdomain.ValidationError
	if errors.As(err, &bulkErr) {
		fields := make([]ValidationError, 0, len(bulkErr.Fields))
		for _, f := range bulkErr.Fields {
			fields = append(fields, ValidationError{
				Field:   f.Field,
				Code:    f.Code,
				Message: f.Message,
			})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  fields,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, bulkdomain.ErrForbidden),
		errors.Is(err, authdomain.ErrAccountSuspended),
		errors.Is(err, authdomain.ErrPolicyBlocked),
		errors.Is(err, policydomain.ErrIPBlocked),
		errors.Is(err, policydomain.ErrCountryBlocked),
		errors.Is(err, staffdomain.ErrOwnerImmutable):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, staffdomain.ErrEmailExists),
		errors.Is(err, appdomain.ErrAlreadyPending),
		errors.Is(err, appdomain.ErrAlreadyReviewed),
		errors.Is(err, bulkdomain.ErrInFlight):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, luckdomain.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, staffdomain.ErrInvalidEmail),
		errors.Is(err, staffdomain.ErrInvalidName),
		errors.Is(err, staffdomain.ErrInvalidRole),
		errors.Is(err, staffdomain.ErrInvalidPassword),
		errors.Is(err, staffdomain.ErrInvalidID),
		errors.Is(err, appdomain.ErrInvalidEmail),
		errors.Is(err, appdomain.ErrInvalidName),
		errors.Is(err, appdomain.ErrInvalidAge),
		errors.Is(err, appdomain.ErrInvalidStatus),
		errors.Is(err, authdomain.ErrWeakPassword),
		errors.Is(err, authdomain.ErrResetInvalid),
		errors.Is(err, policydomain.ErrInvalidCIDR),
		errors.Is(err, policydomain.ErrInvalidCountry),
		errors.Is(err, policydomain.ErrInvalidLimits),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, authorization.ErrInvalidObject),
		errors.Is(err, authorization.ErrInvalidAction),
		errors.Is(err, authorization.ErrUnknownRole),
		errors.Is(err, luckdomain.ErrInvalidUUID),
		errors.Is(err, luckdomain.ErrUnknownRole):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, staffdomain.ErrNotFound),
		errors.Is(err, appdomain.ErrNotFound),
		errors.Is(err, luckdomain.ErrPlayerNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog tags request log lines with a coarse error type and
// the sentinel code, keeping stack traces out of expected failures.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "internal", payload.Type
	}
	return payload.Type, err.Error()
}
