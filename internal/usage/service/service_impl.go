package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/clock"
	directorydomain "github.com/estatelane/estatelane/internal/directory/domain"
	hierarchydomain "github.com/estatelane/estatelane/internal/hierarchy/domain"
	"github.com/estatelane/estatelane/internal/usage/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Resolver hierarchydomain.Resolver
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	resolver hierarchydomain.Resolver
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("usage.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		resolver: p.Resolver,
	}
}

func (s *Service) Register(ctx context.Context, ownerID snowflake.ID, resourceType string) (*domain.Response, error) {
	if ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}
	resourceType = strings.TrimSpace(resourceType)
	if resourceType == "" {
		return nil, domain.ErrInvalidResourceType
	}

	record := &domain.Resource{
		ID:           s.genID.Generate(),
		OwnerID:      ownerID,
		ResourceType: resourceType,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.InsertResource(ctx, s.db, record); err != nil {
		return nil, err
	}

	return &domain.Response{
		ID:           record.ID.String(),
		OwnerID:      record.OwnerID.String(),
		ResourceType: record.ResourceType,
		CreatedAt:    record.CreatedAt,
	}, nil
}

func (s *Service) GetResource(ctx context.Context, id snowflake.ID) (*domain.Response, error) {
	if id == 0 {
		return nil, domain.ErrResourceNotFound
	}
	record, err := s.repo.FindResourceByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrResourceNotFound
	}
	return &domain.Response{
		ID:           record.ID.String(),
		OwnerID:      record.OwnerID.String(),
		ResourceType: record.ResourceType,
		CreatedAt:    record.CreatedAt,
	}, nil
}

func (s *Service) Release(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrResourceNotFound
	}
	return s.repo.DeleteResource(ctx, s.db, id)
}

func (s *Service) CountBranch(ctx context.Context, branchRootID snowflake.ID, resourceType string) (int64, error) {
	if branchRootID == 0 {
		return 0, domain.ErrInvalidOwner
	}
	resourceType = strings.TrimSpace(resourceType)
	if resourceType == "" {
		return 0, domain.ErrInvalidResourceType
	}

	branch, err := s.resolver.ResolveBranch(ctx, branchRootID)
	if err != nil {
		if errors.Is(err, directorydomain.ErrNotFound) {
			branch = hierarchydomain.NewCircle(branchRootID)
		} else {
			return 0, err
		}
	}

	return s.repo.CountOwnedBy(ctx, s.db, branch.IDs(), resourceType)
}

func (s *Service) RecordExport(ctx context.Context, userID snowflake.ID, exportType, entityType string) error {
	entry := &domain.ExportLog{
		ID:         ulid.Make().String(),
		UserID:     userID,
		ExportType: strings.TrimSpace(exportType),
		EntityType: strings.TrimSpace(entityType),
		RecordedAt: s.clock.Now(),
	}

	if err := s.repo.InsertExportLog(ctx, s.db, entry); err != nil {
		s.log.Warn("export log write failed",
			zap.String("user_id", userID.String()),
			zap.String("export_type", entry.ExportType),
			zap.Error(err),
		)
	}
	return nil
}
