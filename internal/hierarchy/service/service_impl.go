package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	directorydomain "github.com/estatelane/estatelane/internal/directory/domain"
	"github.com/estatelane/estatelane/internal/hierarchy/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Directory directorydomain.Service
}

type Service struct {
	log       *zap.Logger
	directory directorydomain.Service
}

func New(p Params) domain.Resolver {
	return &Service{
		log:       p.Log.Named("hierarchy.resolver"),
		directory: p.Directory,
	}
}

func (s *Service) ResolveCircle(ctx context.Context, userID snowflake.ID) (domain.Circle, error) {
	if circle, ok := domain.CachedCircle(ctx, userID); ok {
		return circle, nil
	}

	user, err := s.directory.GetUser(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	var circle domain.Circle
	switch user.Role {
	case directorydomain.RoleAdmin:
		circle, err = s.adminCircle(ctx, user)
	case directorydomain.RoleAgency:
		circle, err = s.agencyCircle(ctx, user)
	case directorydomain.RoleAgent:
		circle, err = s.agentCircle(ctx, user)
	default:
		s.log.Error("directory inconsistency: unknown role",
			zap.String("user_id", userID.String()),
			zap.String("role", string(user.Role)),
		)
		circle = domain.NewCircle(userID)
	}
	if err != nil {
		return nil, err
	}

	domain.StoreCircle(ctx, userID, circle)
	return circle, nil
}

func (s *Service) ResolveBranch(ctx context.Context, rootID snowflake.ID) (domain.Circle, error) {
	if branch, ok := domain.CachedBranch(ctx, rootID); ok {
		return branch, nil
	}

	user, err := s.directory.GetUser(ctx, rootID.String())
	if err != nil {
		return nil, err
	}

	var branch domain.Circle
	switch user.Role {
	case directorydomain.RoleAdmin:
		branch, err = s.adminCircle(ctx, user)
	case directorydomain.RoleAgency:
		branch, err = s.agencyCircle(ctx, user)
	case directorydomain.RoleAgent:
		// An agent has no descendants. Its branch is itself alone, never
		// the parent and colleagues its circle carries.
		branch = domain.NewCircle(user.ID)
	default:
		s.log.Error("directory inconsistency: unknown role",
			zap.String("user_id", rootID.String()),
			zap.String("role", string(user.Role)),
		)
		branch = domain.NewCircle(rootID)
	}
	if err != nil {
		return nil, err
	}

	domain.StoreBranch(ctx, rootID, branch)
	return branch, nil
}

// adminCircle is the two-hop union: the admin, every agency under it, and
// every agent under the admin or one of those agencies.
func (s *Service) adminCircle(ctx context.Context, admin *directorydomain.User) (domain.Circle, error) {
	circle := domain.NewCircle(admin.ID)

	agencies, err := s.directory.ListUsersByRole(ctx, directorydomain.RoleAgency)
	if err != nil {
		return nil, err
	}
	branchParents := domain.NewCircle(admin.ID)
	for _, agency := range agencies {
		if agency.ParentID != nil && *agency.ParentID == admin.ID {
			circle.Add(agency.ID)
			branchParents.Add(agency.ID)
		}
	}

	agents, err := s.directory.ListUsersByRole(ctx, directorydomain.RoleAgent)
	if err != nil {
		return nil, err
	}
	for _, agent := range agents {
		if agent.ParentID != nil && branchParents.Contains(*agent.ParentID) {
			circle.Add(agent.ID)
		}
	}

	return circle, nil
}

func (s *Service) agencyCircle(ctx context.Context, agency *directorydomain.User) (domain.Circle, error) {
	circle := domain.NewCircle(agency.ID)

	agents, err := s.directory.ListUsersByRole(ctx, directorydomain.RoleAgent)
	if err != nil {
		return nil, err
	}
	for _, agent := range agents {
		if agent.ParentID != nil && *agent.ParentID == agency.ID {
			circle.Add(agent.ID)
		}
	}

	return circle, nil
}

// agentCircle is the agent, its parent, and the colleagues sharing that
// parent. An agent never sees other branches of its grandparent.
func (s *Service) agentCircle(ctx context.Context, agent *directorydomain.User) (domain.Circle, error) {
	if agent.ParentID == nil || *agent.ParentID == agent.ID {
		s.log.Error("directory inconsistency: agent with malformed parent",
			zap.String("agent_id", agent.ID.String()),
		)
		return domain.NewCircle(agent.ID), nil
	}
	parentID := *agent.ParentID

	parent, err := s.directory.GetUser(ctx, parentID.String())
	if err != nil {
		if errors.Is(err, directorydomain.ErrNotFound) || errors.Is(err, directorydomain.ErrInvalidID) {
			s.log.Error("directory inconsistency: agent parent missing",
				zap.String("agent_id", agent.ID.String()),
				zap.String("parent_id", parentID.String()),
			)
			return domain.NewCircle(agent.ID), nil
		}
		return nil, err
	}
	if parent.Role == directorydomain.RoleAgent {
		s.log.Error("directory inconsistency: agent parented to another agent",
			zap.String("agent_id", agent.ID.String()),
			zap.String("parent_id", parentID.String()),
		)
		return domain.NewCircle(agent.ID), nil
	}

	circle := domain.NewCircle(agent.ID, parentID)

	colleagues, err := s.directory.ListUsersByRole(ctx, directorydomain.RoleAgent)
	if err != nil {
		return nil, err
	}
	for _, colleague := range colleagues {
		if colleague.ParentID != nil && *colleague.ParentID == parentID {
			circle.Add(colleague.ID)
		}
	}

	return circle, nil
}
