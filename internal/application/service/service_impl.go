package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/imaginearsclub/backstage/internal/application/domain"
	auditdomain "github.com/imaginearsclub/backstage/internal/audit/domain"
	authdomain "github.com/imaginearsclub/backstage/internal/auth/domain"
	"github.com/imaginearsclub/backstage/internal/providers/email"
	"github.com/imaginearsclub/backstage/internal/requestctx"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"github.com/imaginearsclub/backstage/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const minApplicantAge = 13

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	StaffSvc staffdomain.Service
	AuthSvc  authdomain.Service
	Email    email.Provider
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	staffSvc staffdomain.Service
	authSvc  authdomain.Service
	email    email.Provider
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("application.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		staffSvc: p.StaffSvc,
		authSvc:  p.AuthSvc,
		email:    p.Email,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitApplicationRequest) (*domain.StaffApplication, error) {
	emailAddr := staffdomain.NormalizeEmail(req.Email)
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return nil, domain.ErrInvalidEmail
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Age < minApplicantAge || req.Age > 120 {
		return nil, domain.ErrInvalidAge
	}

	pending, err := s.repo.FindPendingByEmail(ctx, s.db, emailAddr)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, domain.ErrAlreadyPending
	}

	answers := req.Answers
	if answers == nil {
		answers = map[string]any{}
	}

	app := &domain.StaffApplication{
		ID:          s.genID.Generate(),
		Email:       emailAddr,
		DisplayName: displayName,
		Age:         req.Age,
		Answers:     datatypes.JSONMap(answers),
		Status:      domain.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if uuid := strings.TrimSpace(req.MinecraftUUID); uuid != "" {
		app.MinecraftUUID = &uuid
	}

	if err := s.repo.Insert(ctx, s.db, app); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.StaffApplication, error) {
	app, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, domain.ErrNotFound
	}
	return app, nil
}

func (s *Service) List(ctx context.Context, req domain.ListApplicationsRequest) (domain.ListApplicationsResponse, error) {
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	switch status {
	case "", domain.StatusPending, domain.StatusApproved, domain.StatusRejected:
	default:
		return domain.ListApplicationsResponse{}, domain.ErrInvalidStatus
	}

	var cursor *domain.ApplicationCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListApplicationsResponse{}, err
		}
		createdAt, err := time.Parse(time.RFC3339, decoded.CreatedAt)
		if err != nil {
			return domain.ListApplicationsResponse{}, err
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil {
			return domain.ListApplicationsResponse{}, err
		}
		cursor = &domain.ApplicationCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Status: status,
		Cursor: cursor,
		Limit:  pageSize,
	})
	if err != nil {
		return domain.ListApplicationsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.StaffApplication) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	apps := make([]domain.StaffApplication, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		apps = append(apps, *item)
	}

	resp := domain.ListApplicationsResponse{Applications: apps}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Review(ctx context.Context, req domain.ReviewApplicationRequest) (*domain.StaffApplication, error) {
	app, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !app.Pending() {
		return nil, domain.ErrAlreadyReviewed
	}

	if req.Approve {
		if err := s.approve(ctx, app); err != nil {
			return nil, err
		}
		app.Status = domain.StatusApproved
	} else {
		app.Status = domain.StatusRejected
		s.notifyRejection(ctx, app, req.Note)
	}

	now := time.Now().UTC()
	app.ReviewNote = strings.TrimSpace(req.Note)
	app.ReviewedAt = &now
	if actorType, actorID := requestctx.ActorFromContext(ctx); actorType == "user" {
		if reviewerID, err := snowflake.ParseString(actorID); err == nil {
			app.ReviewerID = &reviewerID
		}
	}

	if err := s.repo.UpdateReview(ctx, s.db, app); err != nil {
		return nil, err
	}
	s.auditReview(ctx, app)
	return app, nil
}

func (s *Service) approve(ctx context.Context, app *domain.StaffApplication) error {
	// New hires cannot sign in until they complete the emailed reset.
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return err
	}

	createReq := staffdomain.CreateStaffRequest{
		Email:       app.Email,
		DisplayName: app.DisplayName,
		Role:        staffdomain.RoleTrainee,
		Password:    hex.EncodeToString(buf),
	}
	if app.MinecraftUUID != nil {
		createReq.MinecraftUUID = *app.MinecraftUUID
	}
	if _, err := s.staffSvc.Create(ctx, createReq); err != nil {
		return err
	}

	if err := s.email.SendTemplate(ctx, []string{app.Email}, "application_accepted", map[string]interface{}{
		"display_name": app.DisplayName,
	}); err != nil {
		s.log.Warn("failed to send acceptance email", zap.Error(err))
	}
	if err := s.authSvc.StartPasswordReset(ctx, app.Email); err != nil {
		s.log.Warn("failed to start onboarding password reset", zap.Error(err))
	}
	return nil
}

func (s *Service) notifyRejection(ctx context.Context, app *domain.StaffApplication, note string) {
	if err := s.email.SendTemplate(ctx, []string{app.Email}, "application_rejected", map[string]interface{}{
		"display_name": app.DisplayName,
		"reason":       strings.TrimSpace(note),
	}); err != nil {
		s.log.Warn("failed to send rejection email", zap.Error(err))
	}
}

func (s *Service) auditReview(ctx context.Context, app *domain.StaffApplication) {
	if s.auditSvc == nil {
		return
	}
	targetID := app.ID.String()
	if err := s.auditSvc.Record(ctx, "", nil, "application.reviewed", "application", &targetID, map[string]any{
		"status": app.Status,
		"email":  app.Email,
	}); err != nil {
		s.log.Warn("failed to audit application review", zap.Error(err))
	}
}
