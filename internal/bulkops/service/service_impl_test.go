package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	authdomain "github.com/imaginearsclub/backstage/internal/auth/domain"
	"github.com/imaginearsclub/backstage/internal/authorization"
	"github.com/imaginearsclub/backstage/internal/bulkops/domain"
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/idempotency"
	"github.com/imaginearsclub/backstage/internal/requestctx"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStaffService struct {
	mu       sync.Mutex
	members  map[string]*staffdomain.Staff
	suspends int
	roleSets int
	lookups  int
	panicOn  string
}

func newFakeStaffService(members ...*staffdomain.Staff) *fakeStaffService {
	byEmail := make(map[string]*staffdomain.Staff, len(members))
	for _, m := range members {
		byEmail[m.Email] = m
	}
	return &fakeStaffService{members: byEmail}
}

func (f *fakeStaffService) byID(id snowflake.ID) *staffdomain.Staff {
	for _, m := range f.members {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (f *fakeStaffService) Create(ctx context.Context, req staffdomain.CreateStaffRequest) (*staffdomain.Staff, error) {
	return nil, staffdomain.ErrInvalidEmail
}

func (f *fakeStaffService) GetByID(ctx context.Context, id snowflake.ID) (*staffdomain.Staff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m := f.byID(id); m != nil {
		return m, nil
	}
	return nil, staffdomain.ErrNotFound
}

func (f *fakeStaffService) GetByEmail(ctx context.Context, email string) (*staffdomain.Staff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if m, ok := f.members[staffdomain.NormalizeEmail(email)]; ok {
		return m, nil
	}
	return nil, staffdomain.ErrNotFound
}

func (f *fakeStaffService) List(ctx context.Context, req staffdomain.ListStaffRequest) (staffdomain.ListStaffResponse, error) {
	return staffdomain.ListStaffResponse{}, nil
}

func (f *fakeStaffService) Update(ctx context.Context, req staffdomain.UpdateStaffRequest) (*staffdomain.Staff, error) {
	return nil, staffdomain.ErrNotFound
}

func (f *fakeStaffService) ChangeRole(ctx context.Context, id snowflake.ID, newRole string) (*staffdomain.Staff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.byID(id)
	if m == nil {
		return nil, staffdomain.ErrNotFound
	}
	if m.Role == staffdomain.RoleOwner {
		return nil, staffdomain.ErrOwnerImmutable
	}
	f.roleSets++
	m.Role = newRole
	return m, nil
}

func (f *fakeStaffService) Suspend(ctx context.Context, id snowflake.ID) (*staffdomain.Staff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.byID(id)
	if m == nil {
		return nil, staffdomain.ErrNotFound
	}
	if f.panicOn != "" && m.Email == f.panicOn {
		panic("boom")
	}
	if m.Role == staffdomain.RoleOwner {
		return nil, staffdomain.ErrOwnerImmutable
	}
	f.suspends++
	m.Status = staffdomain.StatusSuspended
	return m, nil
}

func (f *fakeStaffService) Activate(ctx context.Context, id snowflake.ID) (*staffdomain.Staff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.byID(id)
	if m == nil {
		return nil, staffdomain.ErrNotFound
	}
	m.Status = staffdomain.StatusActive
	return m, nil
}

func (f *fakeStaffService) Delete(ctx context.Context, id snowflake.ID) error {
	return staffdomain.ErrNotFound
}

type fakeAuthService struct {
	mu     sync.Mutex
	resets []string
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	return nil, authdomain.ErrInvalidCredentials
}

func (f *fakeAuthService) Authenticate(ctx context.Context, token string) (*staffdomain.Staff, error) {
	return nil, authdomain.ErrSessionNotFound
}

func (f *fakeAuthService) Logout(ctx context.Context, token string) error { return nil }

func (f *fakeAuthService) RevokeSessions(ctx context.Context, staffID snowflake.ID) error {
	return nil
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, staffID snowflake.ID, current, next string) error {
	return nil
}

func (f *fakeAuthService) StartPasswordReset(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, email)
	return nil
}

func (f *fakeAuthService) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	return nil
}

type fakeEmailProvider struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeEmailProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to...)
	return nil
}

func (f *fakeEmailProvider) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	return nil
}

type fakeAuthzService struct {
	mu     sync.Mutex
	allow  bool
	checks int
}

func (f *fakeAuthzService) Authorize(ctx context.Context, actor, object, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if !f.allow {
		return authorization.ErrForbidden
	}
	return nil
}

func (f *fakeAuthzService) RolePermissions(ctx context.Context, role string) ([]authorization.Permission, error) {
	return nil, nil
}

func (f *fakeAuthzService) Grant(ctx context.Context, role string, perm authorization.Permission) error {
	return nil
}

func (f *fakeAuthzService) Revoke(ctx context.Context, role string, perm authorization.Permission) error {
	return nil
}

type fixture struct {
	svc   domain.Service
	staff *fakeStaffService
	auth  *fakeAuthService
	email *fakeEmailProvider
	authz *fakeAuthzService
	idem  *idempotency.Store
}

func member(id int64, email, role string) *staffdomain.Staff {
	return &staffdomain.Staff{
		ID:     snowflake.ID(id),
		Email:  email,
		Role:   role,
		Status: staffdomain.StatusActive,
	}
}

func newFixture(t *testing.T, withRedis bool, members ...*staffdomain.Staff) *fixture {
	t.Helper()

	f := &fixture{
		staff: newFakeStaffService(members...),
		auth:  &fakeAuthService{},
		email: &fakeEmailProvider{},
		authz: &fakeAuthzService{allow: true},
	}
	if withRedis {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		f.idem = idempotency.NewStore(client)
	}

	f.svc = New(Params{
		Log:      zap.NewNop(),
		Security: config.NewStaticSecurityHolder(config.DefaultSecurityConfig()),
		StaffSvc: f.staff,
		AuthSvc:  f.auth,
		Email:    f.email,
		Authz:    f.authz,
		Idem:     f.idem,
	})
	return f
}

func actorCtx() context.Context {
	return requestctx.WithActor(context.Background(), "user", "99")
}

func TestExecuteCollectsAllViolations(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Execute(actorCtx(), domain.RawRequest{
		Operation: "send-email",
		Users:     []string{"not-an-email"},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make([]string, 0, len(verr.Fields))
	for _, fe := range verr.Fields {
		fields = append(fields, fe.Field)
	}
	require.Contains(t, fields, "emailSubject")
	require.Contains(t, fields, "emailBody")
	require.Contains(t, fields, "users[0]")

	// Validation failures never reach the executor.
	require.Zero(t, f.staff.lookups)
}

func TestExecuteRejectsUnknownOperation(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Execute(actorCtx(), domain.RawRequest{
		Operation: "detonate",
		Users:     []string{"a@example.com"},
	})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "operation", verr.Fields[0].Field)
}

func TestExecuteForbiddenBeforeAnyWork(t *testing.T) {
	f := newFixture(t, false, member(1, "a@example.com", staffdomain.RoleStaff))
	f.authz.allow = false

	_, err := f.svc.Execute(actorCtx(), domain.RawRequest{
		Operation: domain.KindSuspend,
		Users:     []string{"a@example.com"},
	})

	require.ErrorIs(t, err, domain.ErrForbidden)
	require.Zero(t, f.staff.lookups)
	require.Zero(t, f.staff.suspends)
}

func TestExecuteRequiresActor(t *testing.T) {
	f := newFixture(t, false, member(1, "a@example.com", staffdomain.RoleStaff))

	_, err := f.svc.Execute(context.Background(), domain.RawRequest{
		Operation: domain.KindSuspend,
		Users:     []string{"a@example.com"},
	})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestExecuteCountsAlwaysAddUp(t *testing.T) {
	f := newFixture(t, false,
		member(1, "a@example.com", staffdomain.RoleStaff),
		member(2, "b@example.com", staffdomain.RoleTrainee),
	)

	result, err := f.svc.Execute(actorCtx(), domain.RawRequest{
		Operation: domain.KindChangeRole,
		NewRole:   staffdomain.RoleModerator,
		Users:     []string{"a@example.com", "ghost@example.com", "b@example.com"},
	})
	require.NoError(t, err)

	require.Equal(t, 3, result.Total)
	require.Equal(t, 2, result.Success)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, result.Total, result.Success+result.Failed)
	require.Len(t, result.Errors, 1)
	require.Equal(t, "User not found: ghost@example.com", result.Errors[0].Message)
	require.Equal(t, 2, f.staff.roleSets)
}

func TestExecuteOwnerCannotBeSuspended(t *testing.T) {
	f := newFixture(t, false,
		member(1, "owner@example.com", staffdomain.RoleOwner),
		member(2, "b@example.com", staffdomain.RoleStaff),
	)

	result, err := f.svc.Execute(actorCtx(), domain.RawRequest{
		Operation: domain.KindSuspend,
		Users:     []string{"owner@example.com", "b@example.com"},
	})
	require.NoError(t, err)

	require.Equal(t, 1, result.Success)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, "Cannot modify the owner account", result.Errors[0].Message)
}

func TestExecutePanicBecomesFailure(t *testing.T) {
	f := newFixture(t, false,
		member(1, "a@example.com", staffdomain.RoleStaff),
		member(2, "b@example.com", staffdomain.RoleStaff),
	)
	f.staff.panicOn = "a@example.com"

	result, err := f.svc.Execute(actorCtx(), domain.RawRequest{
		Operation: domain.KindSuspend,
		Users:     []string{"a@example.com", "b@example.com"},
	})
	require.NoError(t, err)

	require.Equal(t, 1, result.Success)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, "Internal error", result.Errors[0].Message)
}

func TestExecuteResetPasswordAndSendEmail(t *testing.T) {
	f := newFixture(t, false, member(1, "a@example.com", staffdomain.RoleStaff))

	result, err := f.svc.Execute(actorCtx(), domain.RawRequest{
		Operation: domain.KindResetPassword,
		Users:     []string{"a@example.com"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Success)
	require.Equal(t, []string{"a@example.com"}, f.auth.resets)

	result, err = f.svc.Execute(actorCtx(), domain.RawRequest{
		Operation:    domain.KindSendEmail,
		Users:        []string{"a@example.com"},
		EmailSubject: "Server maintenance",
		EmailBody:    "<p>The hub restarts at midnight.</p>",
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Success)
	require.Equal(t, []string{"a@example.com"}, f.email.sent)
}

func TestDryRunHasNoSideEffects(t *testing.T) {
	f := newFixture(t, false,
		member(1, "a@example.com", staffdomain.RoleStaff),
	)

	result, err := f.svc.Execute(actorCtx(), domain.RawRequest{
		Operation: domain.KindSuspend,
		DryRun:    true,
		Users:     []string{"a@example.com", "ghost@example.com"},
	})
	require.NoError(t, err)

	require.True(t, result.DryRun)
	require.Equal(t, 2, result.Total)
	require.Equal(t, 1, result.Success)
	require.Equal(t, 1, result.Failed)
	// One preview line per target, resolvable or not.
	require.Equal(t, []string{
		"Suspend account a@example.com",
		"User not found: ghost@example.com",
	}, result.Preview)
	require.Zero(t, f.staff.suspends)
	require.Empty(t, f.auth.resets)
}

func TestExecuteReplaysCompletedDuplicate(t *testing.T) {
	f := newFixture(t, true, member(1, "a@example.com", staffdomain.RoleStaff))

	raw := domain.RawRequest{
		Operation:      domain.KindSuspend,
		Users:          []string{"a@example.com"},
		IdempotencyKey: "retry-1",
	}

	first, err := f.svc.Execute(actorCtx(), raw)
	require.NoError(t, err)
	require.False(t, first.Replayed)
	require.Equal(t, 1, f.staff.suspends)

	second, err := f.svc.Execute(actorCtx(), raw)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.Success, second.Success)
	require.Equal(t, first.Failed, second.Failed)
	// The executor ran exactly once.
	require.Equal(t, 1, f.staff.suspends)
}

func TestExecuteCoalescesWithoutClientKey(t *testing.T) {
	f := newFixture(t, true, member(1, "a@example.com", staffdomain.RoleStaff))

	raw := domain.RawRequest{
		Operation: domain.KindSuspend,
		Users:     []string{"a@example.com"},
	}

	_, err := f.svc.Execute(actorCtx(), raw)
	require.NoError(t, err)
	second, err := f.svc.Execute(actorCtx(), raw)
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, 1, f.staff.suspends)
}

// flakyReplayStore fails Complete on demand while delegating the rest.
type flakyReplayStore struct {
	*idempotency.Store
	completeErr error
	releases    int
}

func (f *flakyReplayStore) Complete(ctx context.Context, key string, payload []byte) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	return f.Store.Complete(ctx, key, payload)
}

func (f *flakyReplayStore) Release(ctx context.Context, key string) error {
	f.releases++
	return f.Store.Release(ctx, key)
}

func TestExecuteReleasesReservationWhenStoreFails(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	staff := newFakeStaffService(member(1, "a@example.com", staffdomain.RoleStaff))
	flaky := &flakyReplayStore{
		Store:       idempotency.NewStore(client),
		completeErr: errors.New("redis: connection reset"),
	}
	svc := &Service{
		log:      zap.NewNop(),
		security: config.NewStaticSecurityHolder(config.DefaultSecurityConfig()),
		staffSvc: staff,
		authSvc:  &fakeAuthService{},
		email:    &fakeEmailProvider{},
		authz:    &fakeAuthzService{allow: true},
		idem:     flaky,
	}

	raw := domain.RawRequest{
		Operation:      domain.KindSuspend,
		Users:          []string{"a@example.com"},
		IdempotencyKey: "retry-3",
	}

	first, err := svc.Execute(actorCtx(), raw)
	require.NoError(t, err)
	require.Equal(t, 1, first.Success)
	require.Equal(t, 1, flaky.releases)

	// The pending sentinel is gone, so the retry executes instead of
	// being rejected as in flight or replayed from an empty cache.
	flaky.completeErr = nil
	second, err := svc.Execute(actorCtx(), raw)
	require.NoError(t, err)
	require.False(t, second.Replayed)
	require.Equal(t, 2, staff.suspends)
}

func TestExecuteConcurrentDuplicateIsRejected(t *testing.T) {
	f := newFixture(t, true, member(1, "a@example.com", staffdomain.RoleStaff))

	key := idempotency.Key("bulkops", "99", "retry-2")
	_, claimed, err := f.idem.Claim(context.Background(), key, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = f.svc.Execute(actorCtx(), domain.RawRequest{
		Operation:      domain.KindSuspend,
		Users:          []string{"a@example.com"},
		IdempotencyKey: "retry-2",
	})
	require.ErrorIs(t, err, domain.ErrInFlight)
	require.Zero(t, f.staff.suspends)
}

func TestRequiredPermissionIsTotal(t *testing.T) {
	kinds := []string{
		domain.KindSuspend,
		domain.KindActivate,
		domain.KindChangeRole,
		domain.KindResetPassword,
		domain.KindSendEmail,
	}
	for _, kind := range kinds {
		object, action, ok := RequiredPermission(kind)
		require.True(t, ok, kind)
		require.Equal(t, authorization.ObjectStaff, object)
		require.NotEmpty(t, action)
	}
}
