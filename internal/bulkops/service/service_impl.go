package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	auditdomain "github.com/imaginearsclub/backstage/internal/audit/domain"
	authdomain "github.com/imaginearsclub/backstage/internal/auth/domain"
	"github.com/imaginearsclub/backstage/internal/authorization"
	"github.com/imaginearsclub/backstage/internal/bulkops/domain"
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/idempotency"
	"github.com/imaginearsclub/backstage/internal/observability/metrics"
	"github.com/imaginearsclub/backstage/internal/providers/email"
	"github.com/imaginearsclub/backstage/internal/requestctx"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// permission is the object/action pair a bulk operation requires.
type permission struct {
	Object string
	Action string
}

// requiredPermission is total over the operation kinds: adding a kind
// without a permission entry is a bug caught by tests.
var requiredPermission = map[string]permission{
	domain.KindSuspend:       {authorization.ObjectStaff, authorization.ActionStaffSuspend},
	domain.KindActivate:      {authorization.ObjectStaff, authorization.ActionStaffActivate},
	domain.KindChangeRole:    {authorization.ObjectStaff, authorization.ActionStaffChangeRole},
	domain.KindResetPassword: {authorization.ObjectStaff, authorization.ActionStaffResetPassword},
	domain.KindSendEmail:     {authorization.ObjectStaff, authorization.ActionStaffEmail},
}

// RequiredPermission exposes the permission needed for an operation kind.
func RequiredPermission(kind string) (string, string, bool) {
	perm, ok := requiredPermission[kind]
	return perm.Object, perm.Action, ok
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Security *config.SecurityHolder
	StaffSvc staffdomain.Service
	AuthSvc  authdomain.Service
	Email    email.Provider
	Authz    authorization.Service
	AuditSvc auditdomain.Service `optional:"true"`
	Idem     *idempotency.Store  `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

// replayStore is the slice of idempotency.Store the pipeline needs.
type replayStore interface {
	Enabled() bool
	Claim(ctx context.Context, key string, ttl time.Duration) ([]byte, bool, error)
	Complete(ctx context.Context, key string, payload []byte) error
	Release(ctx context.Context, key string) error
}

type Service struct {
	log      *zap.Logger
	security *config.SecurityHolder
	staffSvc staffdomain.Service
	authSvc  authdomain.Service
	email    email.Provider
	authz    authorization.Service
	auditSvc auditdomain.Service
	idem     replayStore
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("bulkops.service"),
		security: p.Security,
		staffSvc: p.StaffSvc,
		authSvc:  p.AuthSvc,
		email:    p.Email,
		authz:    p.Authz,
		auditSvc: p.AuditSvc,
		idem:     p.Idem,
		metrics:  p.Metrics,
	}
}

func (s *Service) Execute(ctx context.Context, raw domain.RawRequest) (*domain.Result, error) {
	start := time.Now()
	limits := s.security.Get().Bulk

	req, err := domain.Parse(raw, limits.MaxTargets)
	if err != nil {
		return nil, err
	}

	// Authorization comes before any per-target work.
	perm := requiredPermission[req.Op.Kind()]
	actor, actorID := actorFromContext(ctx)
	if actor == "" {
		return nil, domain.ErrForbidden
	}
	if err := s.authz.Authorize(ctx, actor, perm.Object, perm.Action); err != nil {
		s.recordOutcome(req.Op.Kind(), "forbidden", 0, 0)
		return nil, domain.ErrForbidden
	}

	if req.DryRun {
		result := s.preview(ctx, req)
		result.DurationMS = time.Since(start).Milliseconds()
		s.recordOutcome(req.Op.Kind(), "dry_run", result.Success, result.Failed)
		return result, nil
	}

	key := idempotency.Key("bulkops", actorID, clientKey(raw))
	claimed := false
	if s.idem.Enabled() {
		ttl := time.Duration(limits.IdempotencyTTLSeconds) * time.Second
		cached, ok, err := s.idem.Claim(ctx, key, ttl)
		switch {
		case errors.Is(err, idempotency.ErrInFlight):
			return nil, domain.ErrInFlight
		case err != nil:
			// Redis trouble must not block administrative action.
			s.log.Warn("idempotency claim failed, continuing without", zap.Error(err))
		case cached != nil:
			var replay domain.Result
			if err := json.Unmarshal(cached, &replay); err == nil {
				replay.Replayed = true
				s.recordOutcome(req.Op.Kind(), "replayed", 0, 0)
				return &replay, nil
			}
			s.log.Warn("failed to decode cached bulk result", zap.Error(err))
		default:
			claimed = ok
		}
	}

	result := s.dispatch(ctx, req)
	result.DurationMS = time.Since(start).Milliseconds()

	// The audit write is awaited so the log cannot silently miss a
	// completed bulk action.
	s.audit(ctx, req, result)
	s.recordOutcome(req.Op.Kind(), "completed", result.Success, result.Failed)

	if claimed {
		payload, err := json.Marshal(result)
		if err == nil {
			err = s.idem.Complete(ctx, key, payload)
		}
		if err != nil {
			// Without a stored response the pending sentinel would turn
			// every retry into a 409 until the TTL expires; drop it so a
			// retry can execute instead.
			s.log.Warn("failed to store bulk result for replay", zap.Error(err))
			if rerr := s.idem.Release(ctx, key); rerr != nil {
				s.log.Warn("failed to release idempotency reservation", zap.Error(rerr))
			}
		}
	}
	return result, nil
}

// dispatch fans out one goroutine per target and waits for all of them.
// Per-target failures land in the result; nothing escapes as an error.
func (s *Service) dispatch(ctx context.Context, req *domain.Request) *domain.Result {
	results := make([]domain.PerUserResult, len(req.Users))

	var wg sync.WaitGroup
	for i, target := range req.Users {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			results[i] = s.executeOne(ctx, req.Op, target)
		}(i, target)
	}
	wg.Wait()

	result := &domain.Result{
		Operation: req.Op.Kind(),
		Total:     len(req.Users),
	}
	for _, r := range results {
		if r.OK {
			result.Success++
		} else {
			result.Failed++
			result.Errors = append(result.Errors, r)
		}
	}
	return result
}

func (s *Service) executeOne(ctx context.Context, op domain.Operation, target string) (res domain.PerUserResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("bulk target executor panicked",
				zap.String("operation", op.Kind()),
				zap.String("email", target),
				zap.Any("panic", r),
			)
			res = domain.PerUserResult{Email: target, Message: "Internal error"}
		}
	}()

	member, err := s.staffSvc.GetByEmail(ctx, target)
	if errors.Is(err, staffdomain.ErrNotFound) {
		return domain.PerUserResult{Email: target, Message: "User not found: " + target}
	}
	if err != nil {
		return domain.PerUserResult{Email: target, Message: "Lookup failed"}
	}

	switch op := op.(type) {
	case domain.SuspendOp:
		_, err = s.staffSvc.Suspend(ctx, member.ID)
	case domain.ActivateOp:
		_, err = s.staffSvc.Activate(ctx, member.ID)
	case domain.ChangeRoleOp:
		_, err = s.staffSvc.ChangeRole(ctx, member.ID, op.NewRole)
	case domain.ResetPasswordOp:
		err = s.authSvc.StartPasswordReset(ctx, member.Email)
	case domain.SendEmailOp:
		err = s.email.Send(ctx, []string{member.Email}, op.Subject, op.Body)
	default:
		return domain.PerUserResult{Email: target, Message: "Unsupported operation"}
	}

	if err != nil {
		return domain.PerUserResult{Email: target, Message: failureMessage(err)}
	}
	return domain.PerUserResult{Email: target, OK: true}
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, staffdomain.ErrOwnerImmutable):
		return "Cannot modify the owner account"
	case errors.Is(err, staffdomain.ErrInvalidRole):
		return "Invalid role"
	default:
		return err.Error()
	}
}

// preview resolves targets without side effects. Every target gets a
// preview line, including the ones that would fail.
func (s *Service) preview(ctx context.Context, req *domain.Request) *domain.Result {
	result := &domain.Result{
		Operation: req.Op.Kind(),
		Total:     len(req.Users),
		DryRun:    true,
	}
	for _, target := range req.Users {
		member, err := s.staffSvc.GetByEmail(ctx, target)
		if err != nil || member == nil {
			result.Failed++
			result.Preview = append(result.Preview, "User not found: "+target)
			result.Errors = append(result.Errors, domain.PerUserResult{
				Email:   target,
				Message: "User not found: " + target,
			})
			continue
		}
		result.Success++
		result.Preview = append(result.Preview, req.Op.Describe(target))
	}
	return result
}

func (s *Service) audit(ctx context.Context, req *domain.Request, result *domain.Result) {
	if s.auditSvc == nil {
		return
	}
	failedEmails := make([]string, 0, len(result.Errors))
	for _, r := range result.Errors {
		failedEmails = append(failedEmails, r.Email)
	}
	err := s.auditSvc.Record(ctx, "", nil, "staff.bulk."+req.Op.Kind(), "staff_bulk", nil, map[string]any{
		"operation": req.Op.Kind(),
		"total":     result.Total,
		"success":   result.Success,
		"failed":    result.Failed,
		"errors":    failedEmails,
	})
	if err != nil {
		s.log.Error("failed to write bulk audit entry", zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordAuditFailure()
		}
	}
}

func (s *Service) recordOutcome(kind, outcome string, success, failed int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordBulkOperation(kind, outcome, success, failed)
}

func actorFromContext(ctx context.Context) (actor string, actorID string) {
	actorType, id := requestctx.ActorFromContext(ctx)
	switch actorType {
	case "system":
		return "system", "system"
	case "user":
		if strings.TrimSpace(id) == "" {
			return "", ""
		}
		return "user:" + id, id
	default:
		return "", ""
	}
}

// clientKey prefers the caller-supplied idempotency key and falls back
// to a digest of the request payload, so a double-clicked submit without
// a key still coalesces.
func clientKey(raw domain.RawRequest) string {
	if key := strings.TrimSpace(raw.IdempotencyKey); key != "" {
		return key
	}
	users := append([]string(nil), raw.Users...)
	sort.Strings(users)
	h := sha256.New()
	h.Write([]byte(raw.Operation))
	h.Write([]byte{0})
	h.Write([]byte(raw.NewRole))
	h.Write([]byte{0})
	h.Write([]byte(raw.EmailSubject))
	h.Write([]byte{0})
	h.Write([]byte(raw.EmailBody))
	for _, u := range users {
		h.Write([]byte{0})
		h.Write([]byte(u))
	}
	return hex.EncodeToString(h.Sum(nil))
}
