package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/imaginearsclub/backstage/internal/auth/password"
	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
	"github.com/imaginearsclub/backstage/pkg/db"
	"github.com/imaginearsclub/backstage/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      staffdomain.Repository
	GroupSync staffdomain.GroupSyncer `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      staffdomain.Repository
	groupSync staffdomain.GroupSyncer
}

func New(p Params) staffdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("staff.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		groupSync: p.GroupSync,
	}
}

func (s *Service) Create(ctx context.Context, req staffdomain.CreateStaffRequest) (*staffdomain.Staff, error) {
	email := staffdomain.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, staffdomain.ErrInvalidEmail
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, staffdomain.ErrInvalidName
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role == "" {
		role = staffdomain.RoleTrainee
	}
	if !staffdomain.ValidRole(role) {
		return nil, staffdomain.ErrInvalidRole
	}
	if len(req.Password) < 8 {
		return nil, staffdomain.ErrInvalidPassword
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	member := &staffdomain.Staff{
		ID:           s.genID.Generate(),
		Email:        email,
		DisplayName:  displayName,
		Role:         role,
		Status:       staffdomain.StatusActive,
		PasswordHash: hash,
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if uuid := strings.TrimSpace(req.MinecraftUUID); uuid != "" {
		member.MinecraftUUID = &uuid
	}

	if err := s.repo.Insert(ctx, s.db, member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, staffdomain.ErrEmailExists
		}
		return nil, err
	}
	return member, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*staffdomain.Staff, error) {
	if id == 0 {
		return nil, staffdomain.ErrInvalidID
	}
	member, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, staffdomain.ErrNotFound
	}
	return member, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*staffdomain.Staff, error) {
	if staffdomain.NormalizeEmail(email) == "" {
		return nil, staffdomain.ErrInvalidEmail
	}
	member, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, staffdomain.ErrNotFound
	}
	return member, nil
}

func (s *Service) List(ctx context.Context, req staffdomain.ListStaffRequest) (staffdomain.ListStaffResponse, error) {
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != "" && !staffdomain.ValidRole(role) {
		return staffdomain.ListStaffResponse{}, staffdomain.ErrInvalidRole
	}

	var cursor *staffdomain.StaffCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return staffdomain.ListStaffResponse{}, staffdomain.ErrInvalidID
		}
		createdAt, err := time.Parse(time.RFC3339, decoded.CreatedAt)
		if err != nil {
			return staffdomain.ListStaffResponse{}, staffdomain.ErrInvalidID
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return staffdomain.ListStaffResponse{}, staffdomain.ErrInvalidID
		}
		cursor = &staffdomain.StaffCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, staffdomain.ListStaffFilter{
		Role:   role,
		Status: strings.ToUpper(strings.TrimSpace(req.Status)),
		Search: strings.TrimSpace(req.Search),
		Cursor: cursor,
		Limit:  pageSize,
	})
	if err != nil {
		return staffdomain.ListStaffResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *staffdomain.Staff) string {
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

	members := make([]staffdomain.Staff, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		members = append(members, *item)
	}

	resp := staffdomain.ListStaffResponse{Staff: members}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req staffdomain.UpdateStaffRequest) (*staffdomain.Staff, error) {
	member, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		displayName := strings.TrimSpace(*req.DisplayName)
		if displayName == "" {
			return nil, staffdomain.ErrInvalidName
		}
		member.DisplayName = displayName
	}
	if req.MinecraftUUID != nil {
		uuid := strings.TrimSpace(*req.MinecraftUUID)
		if uuid == "" {
			member.MinecraftUUID = nil
		} else {
			member.MinecraftUUID = &uuid
		}
	}
	if req.Metadata != nil {
		member.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.UpdateProfile(ctx, s.db, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Service) ChangeRole(ctx context.Context, id snowflake.ID, newRole string) (*staffdomain.Staff, error) {
	newRole = strings.ToUpper(strings.TrimSpace(newRole))
	if !staffdomain.ValidRole(newRole) {
		return nil, staffdomain.ErrInvalidRole
	}

	member, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if member.Role == staffdomain.RoleOwner {
		return nil, staffdomain.ErrOwnerImmutable
	}

	if err := s.repo.UpdateRole(ctx, s.db, id, newRole); err != nil {
		return nil, err
	}
	member.Role = newRole

	if s.groupSync != nil && member.MinecraftUUID != nil {
		if err := s.groupSync.SyncRole(ctx, *member.MinecraftUUID, newRole); err != nil {
			// The directory is the source of truth; a failed sync is
			// retried by the next role change or a manual sync.
			s.log.Warn("luckperms role sync failed",
				zap.String("staff_id", id.String()),
				zap.String("role", newRole),
				zap.Error(err),
			)
		}
	}

	return member, nil
}

func (s *Service) Suspend(ctx context.Context, id snowflake.ID) (*staffdomain.Staff, error) {
	return s.setStatus(ctx, id, staffdomain.StatusSuspended)
}

func (s *Service) Activate(ctx context.Context, id snowflake.ID) (*staffdomain.Staff, error) {
	return s.setStatus(ctx, id, staffdomain.StatusActive)
}

func (s *Service) setStatus(ctx context.Context, id snowflake.ID, status string) (*staffdomain.Staff, error) {
	member, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if member.Role == staffdomain.RoleOwner && status == staffdomain.StatusSuspended {
		return nil, staffdomain.ErrOwnerImmutable
	}
	if member.Status == status {
		return member, nil
	}

	if err := s.repo.UpdateStatus(ctx, s.db, id, status); err != nil {
		return nil, err
	}
	member.Status = status
	return member, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	member, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if member.Role == staffdomain.RoleOwner {
		return staffdomain.ErrOwnerImmutable
	}
	return s.repo.Delete(ctx, s.db, id)
}
