package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/authcontext"
	"github.com/estatelane/estatelane/internal/clock"
	"github.com/estatelane/estatelane/internal/directory/domain"
	"github.com/estatelane/estatelane/pkg/db"
	"github.com/estatelane/estatelane/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("directory.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	userID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidID
	}

	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	users, err := s.repo.ListByRole(ctx, s.db, role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return users, nil
}

func (s *Service) ListUsers(ctx context.Context, req domain.ListUsersRequest) (domain.ListUsersResponse, error) {
	if req.Role != "" && !req.Role.Valid() {
		return domain.ListUsersResponse{}, domain.ErrInvalidRole
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 25
	}

	filter := domain.ListFilter{Role: req.Role, Limit: limit}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListUsersResponse{}, domain.ErrInvalidID
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListUsersResponse{}, domain.ErrInvalidID
		}
		filter.AfterID = afterID
	}

	users, err := s.repo.ListPaged(ctx, s.db, filter)
	if err != nil {
		return domain.ListUsersResponse{}, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	users, pageInfo := pagination.BuildCursorPageInfo(users, limit, func(u domain.User) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: u.ID.String()})
		return token
	})

	resp := domain.ListUsersResponse{PageInfo: pageInfo}
	resp.Users = make([]domain.Response, 0, len(users))
	for i := range users {
		resp.Users = append(resp.Users, toResponse(&users[i]))
	}
	return resp, nil
}

func (s *Service) CreateAgency(ctx context.Context, req domain.CreateAgencyRequest) (*domain.Response, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}
	if requester.Role != domain.RoleAdmin {
		return nil, domain.ErrNotPermitted
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	parentID := requester.ID
	now := s.clock.Now()
	record := &domain.User{
		ID:        s.genID.Generate(),
		Role:      domain.RoleAgency,
		ParentID:  &parentID,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailExists
		}
		return nil, err
	}

	s.log.Info("agency created",
		zap.String("agency_id", record.ID.String()),
		zap.String("admin_id", requester.ID.String()),
	)

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) CreateAgent(ctx context.Context, req domain.CreateAgentRequest) (*domain.Response, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}

	parent, err := s.resolveAgentParent(ctx, requester, req.ParentID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	parentID := parent.ID
	now := s.clock.Now()
	record := &domain.User{
		ID:        s.genID.Generate(),
		Role:      domain.RoleAgent,
		ParentID:  &parentID,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailExists
		}
		return nil, err
	}

	s.log.Info("agent created",
		zap.String("agent_id", record.ID.String()),
		zap.String("parent_id", parent.ID.String()),
	)

	resp := toResponse(record)
	return &resp, nil
}

// resolveAgentParent decides who the new agent hangs under. Agencies always
// create under themselves; admins may create under themselves or one of
// their own agencies.
func (s *Service) resolveAgentParent(ctx context.Context, requester *domain.User, rawParentID string) (*domain.User, error) {
	switch requester.Role {
	case domain.RoleAgency:
		if raw := strings.TrimSpace(rawParentID); raw != "" && raw != requester.ID.String() {
			return nil, domain.ErrInvalidParent
		}
		return requester, nil
	case domain.RoleAdmin:
		raw := strings.TrimSpace(rawParentID)
		if raw == "" || raw == requester.ID.String() {
			return requester, nil
		}
		parentID, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidParent
		}
		parent, err := s.repo.FindByID(ctx, s.db, parentID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
		if parent == nil || parent.Role != domain.RoleAgency {
			return nil, domain.ErrInvalidParent
		}
		if parent.ParentID == nil || *parent.ParentID != requester.ID {
			return nil, domain.ErrInvalidParent
		}
		return parent, nil
	default:
		return nil, domain.ErrNotPermitted
	}
}

func (s *Service) requester(ctx context.Context) (*domain.User, error) {
	requesterID, ok := authcontext.UserIDFromContext(ctx)
	if !ok || requesterID == 0 {
		return nil, domain.ErrMissingContext
	}
	user, err := s.repo.FindByID(ctx, s.db, requesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func toResponse(u *domain.User) domain.Response {
	resp := domain.Response{
		ID:        u.ID.String(),
		Role:      u.Role,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
	if u.ParentID != nil {
		parent := u.ParentID.String()
		resp.ParentID = &parent
	}
	return resp
}
