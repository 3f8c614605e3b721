package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/imaginearsclub/backstage/internal/auth/domain"
	"github.com/imaginearsclub/backstage/internal/auth/session"
	bulkdomain "github.com/imaginearsclub/backstage/internal/bulkops/domain"
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/ratelimit"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSessionAuth struct {
	member *staffdomain.Staff
	err    error
}

func (f *fakeSessionAuth) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	_ = ctx
	_ = req
	return nil, authdomain.ErrInvalidCredentials
}

func (f *fakeSessionAuth) Authenticate(ctx context.Context, token string) (*staffdomain.Staff, error) {
	_ = ctx
	_ = token
	if f.err != nil {
		return nil, f.err
	}
	return f.member, nil
}

func (f *fakeSessionAuth) Logout(ctx context.Context, token string) error {
	_ = ctx
	_ = token
	return nil
}

func (f *fakeSessionAuth) RevokeSessions(ctx context.Context, staffID snowflake.ID) error {
	_ = ctx
	_ = staffID
	return nil
}

func (f *fakeSessionAuth) ChangePassword(ctx context.Context, staffID snowflake.ID, current, next string) error {
	_ = ctx
	_ = staffID
	_ = current
	_ = next
	return nil
}

func (f *fakeSessionAuth) StartPasswordReset(ctx context.Context, email string) error {
	_ = ctx
	_ = email
	return nil
}

func (f *fakeSessionAuth) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	_ = ctx
	_ = token
	_ = newPassword
	return nil
}

type fakeBulkService struct {
	lastRaw bulkdomain.RawRequest
	calls   int
	result  *bulkdomain.Result
	err     error
}

func (f *fakeBulkService) Execute(ctx context.Context, raw bulkdomain.RawRequest) (*bulkdomain.Result, error) {
	_ = ctx
	f.calls++
	f.lastRaw = raw
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type bulkFixture struct {
	srv    *Server
	router *gin.Engine
	bulk   *fakeBulkService
}

func newBulkFixture(t *testing.T, limiter *ratelimit.SlidingWindow) *bulkFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	member := &staffdomain.Staff{
		ID:     snowflake.ID(42),
		Email:  "admin@example.com",
		Role:   staffdomain.RoleAdmin,
		Status: staffdomain.StatusActive,
	}
	bulk := &fakeBulkService{result: &bulkdomain.Result{Operation: "suspend", Total: 1, Success: 1}}

	srv := &Server{
		cfg:         config.Config{},
		log:         zap.NewNop(),
		security:    config.NewStaticSecurityHolder(config.DefaultSecurityConfig()),
		authsvc:     &fakeSessionAuth{member: member},
		sessions:    session.NewManager(config.Config{}),
		bulkSvc:     bulk,
		bulkLimiter: limiter,
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/admin/staff/bulk", srv.AuthRequired(), srv.BulkRateLimit(), srv.BulkStaffOperation)

	return &bulkFixture{srv: srv, router: router, bulk: bulk}
}

func (f *bulkFixture) do(body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/staff/bulk", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "session-token"})
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func TestBulkHandlerForwardsIdempotencyKey(t *testing.T) {
	f := newBulkFixture(t, nil)

	resp := f.do(`{"operation":"suspend","users":["a@example.com"]}`, map[string]string{
		idempotencyKeyHeader: "retry-7",
	})

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "retry-7", f.bulk.lastRaw.IdempotencyKey)
	require.Equal(t, []string{"a@example.com"}, f.bulk.lastRaw.Users)

	var result bulkdomain.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, 1, result.Success)
}

func TestBulkHandlerRequiresSession(t *testing.T) {
	f := newBulkFixture(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/staff/bulk", bytes.NewBufferString(`{}`))
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Zero(t, f.bulk.calls)
}

func TestBulkHandlerMapsValidationErrors(t *testing.T) {
	f := newBulkFixture(t, nil)
	f.bulk.err = &bulkdomain.ValidationError{Fields: []bulkdomain.FieldError{
		{Field: "operation", Code: "invalid", Message: `unknown operation "nuke"`},
		{Field: "users", Code: "required", Message: "users must contain at least one email address"},
	}}

	resp := f.do(`{"operation":"nuke","users":[]}`, nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "validation_error", body.Error.Type)
	require.Len(t, body.Error.Errors, 2)
	require.Equal(t, "operation", body.Error.Errors[0].Field)
}

func TestBulkHandlerMapsForbiddenAndConflict(t *testing.T) {
	f := newBulkFixture(t, nil)

	f.bulk.err = bulkdomain.ErrForbidden
	resp := f.do(`{"operation":"suspend","users":["a@example.com"]}`, nil)
	require.Equal(t, http.StatusForbidden, resp.Code)

	f.bulk.err = bulkdomain.ErrInFlight
	resp = f.do(`{"operation":"suspend","users":["a@example.com"]}`, nil)
	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestBulkHandlerRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newBulkFixture(t, ratelimit.NewSlidingWindow(client))
	f.srv.security = config.NewStaticSecurityHolder(config.SecurityConfig{
		Bulk: config.BulkLimits{
			MaxTargets:            100,
			RequestsPerHour:       2,
			IdempotencyTTLSeconds: 60,
		},
		Session: config.SessionLimits{MaxDurationMinutes: 720, IdleTimeoutMinutes: 60},
	})

	body := `{"operation":"suspend","users":["a@example.com"]}`
	require.Equal(t, http.StatusOK, f.do(body, nil).Code)
	require.Equal(t, http.StatusOK, f.do(body, nil).Code)

	resp := f.do(body, nil)
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	require.NotEmpty(t, resp.Header().Get("Retry-After"))
	require.Equal(t, 2, f.bulk.calls, "denied request must not reach the service")
}

func TestBulkHandlerRateLimitFailsOpenWithoutRedis(t *testing.T) {
	f := newBulkFixture(t, nil)

	body := `{"operation":"suspend","users":["a@example.com"]}`
	for i := 0; i < 25; i++ {
		require.Equal(t, http.StatusOK, f.do(body, nil).Code)
	}
	require.Equal(t, 25, f.bulk.calls)
}
