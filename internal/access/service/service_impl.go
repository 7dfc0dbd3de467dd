package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/access/domain"
	directorydomain "github.com/estatelane/estatelane/internal/directory/domain"
	hierarchydomain "github.com/estatelane/estatelane/internal/hierarchy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Directory directorydomain.Service
	Resolver  hierarchydomain.Resolver
}

type Service struct {
	log       *zap.Logger
	directory directorydomain.Service
	resolver  hierarchydomain.Resolver
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("access.service"),
		directory: p.Directory,
		resolver:  p.Resolver,
	}
}

func (s *Service) CanRead(ctx context.Context, requesterID, ownerID snowflake.ID) (bool, error) {
	if requesterID == 0 || ownerID == 0 {
		return false, nil
	}
	if requesterID == ownerID {
		return true, nil
	}

	circle, err := s.circleOf(ctx, requesterID)
	if err != nil {
		return false, err
	}
	return circle.Contains(ownerID), nil
}

func (s *Service) CanModify(ctx context.Context, requesterID, ownerID snowflake.ID) (bool, error) {
	if requesterID == 0 || ownerID == 0 {
		return false, nil
	}
	// Self always may modify own resources, regardless of circle state.
	if requesterID == ownerID {
		return true, nil
	}

	requester, err := s.directory.GetUser(ctx, requesterID.String())
	if err != nil {
		return false, denyUnknown(err)
	}

	switch requester.Role {
	case directorydomain.RoleAgent:
		// Agents read colleagues but never mutate anyone else's data.
		return false, nil
	case directorydomain.RoleAgency:
		owner, err := s.directory.GetUser(ctx, ownerID.String())
		if err != nil {
			return false, denyUnknown(err)
		}
		return owner.ParentID != nil && *owner.ParentID == requesterID, nil
	case directorydomain.RoleAdmin:
		circle, err := s.circleOf(ctx, requesterID)
		if err != nil {
			return false, err
		}
		return circle.Contains(ownerID), nil
	default:
		s.log.Error("directory inconsistency: unknown requester role",
			zap.String("requester_id", requesterID.String()),
			zap.String("role", string(requester.Role)),
		)
		return false, nil
	}
}

// circleOf resolves the requester's circle, degrading to the minimal circle
// for unknown ids so the decision is a plain deny instead of an error.
func (s *Service) circleOf(ctx context.Context, requesterID snowflake.ID) (hierarchydomain.Circle, error) {
	circle, err := s.resolver.ResolveCircle(ctx, requesterID)
	if err != nil {
		if errors.Is(err, directorydomain.ErrNotFound) || errors.Is(err, directorydomain.ErrInvalidID) {
			return hierarchydomain.NewCircle(requesterID), nil
		}
		return nil, err
	}
	return circle, nil
}

// denyUnknown converts not-found lookups into a nil error so the caller
// returns false; infrastructure failures pass through.
func denyUnknown(err error) error {
	if errors.Is(err, directorydomain.ErrNotFound) || errors.Is(err, directorydomain.ErrInvalidID) {
		return nil
	}
	return err
}
