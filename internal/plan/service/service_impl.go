package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/authcontext"
	"github.com/estatelane/estatelane/internal/clock"
	directorydomain "github.com/estatelane/estatelane/internal/directory/domain"
	entitlementdomain "github.com/estatelane/estatelane/internal/entitlement/domain"
	"github.com/estatelane/estatelane/internal/plan/domain"
	"github.com/estatelane/estatelane/internal/proration"
	"github.com/estatelane/estatelane/pkg/db"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Directory   directorydomain.Service
	Entitlement entitlementdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	directory   directorydomain.Service
	entitlement entitlementdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("plan.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		directory:   p.Directory,
		entitlement: p.Entitlement,
	}
}

func (s *Service) CreatePlan(ctx context.Context, req domain.CreatePlanRequest) (*domain.PlanResponse, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}
	if requester.Role != directorydomain.RoleAdmin {
		return nil, domain.ErrNotPermitted
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}
	if req.BillingPeriodDays <= 0 {
		return nil, domain.ErrInvalidBillingPeriod
	}

	now := s.clock.Now()
	record := &domain.Plan{
		ID:                s.genID.Generate(),
		Code:              slug.Make(name),
		Name:              name,
		Price:             price,
		BillingPeriodDays: req.BillingPeriodDays,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.Features != nil {
		record.Features = datatypes.JSONMap(req.Features)
	}

	if err := s.repo.InsertPlan(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrPlanCodeExists
		}
		return nil, err
	}

	resp := toPlanResponse(record)
	return &resp, nil
}

func (s *Service) ListPlans(ctx context.Context) ([]domain.PlanResponse, error) {
	plans, err := s.repo.ListPlans(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.PlanResponse, 0, len(plans))
	for i := range plans {
		resp = append(resp, toPlanResponse(&plans[i]))
	}
	return resp, nil
}

func (s *Service) GetPlan(ctx context.Context, id snowflake.ID) (*domain.Plan, error) {
	plan, err := s.repo.FindPlanByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}

func (s *Service) GetActiveSubscription(ctx context.Context, userID snowflake.ID) (*domain.Subscription, error) {
	return s.repo.FindActiveByUserID(ctx, s.db, userID, s.clock.Now())
}

func (s *Service) Subscribe(ctx context.Context, req domain.SubscribeRequest) (*domain.SubscriptionResponse, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}

	planID, err := snowflake.ParseString(strings.TrimSpace(req.PlanID))
	if err != nil {
		return nil, domain.ErrInvalidPlanID
	}
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	existing, err := s.repo.FindActiveByUserID(ctx, s.db, requester.ID, now)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadySubscribed
	}

	endAt := now.AddDate(0, 0, plan.BillingPeriodDays)
	record := &domain.Subscription{
		ID:        s.genID.Generate(),
		UserID:    requester.ID,
		PlanID:    plan.ID,
		Status:    domain.SubscriptionStatusActive,
		StartAt:   now,
		EndAt:     &endAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		return nil, err
	}

	s.log.Info("subscription created",
		zap.String("user_id", requester.ID.String()),
		zap.String("plan_id", plan.ID.String()),
	)

	resp := toSubscriptionResponse(record)
	return &resp, nil
}

func (s *Service) ChangePlan(ctx context.Context, req domain.ChangePlanRequest) (*domain.ChangePlanResponse, error) {
	requester, err := s.requester(ctx)
	if err != nil {
		return nil, err
	}

	targetPlanID, err := snowflake.ParseString(strings.TrimSpace(req.TargetPlanID))
	if err != nil {
		return nil, domain.ErrInvalidPlanID
	}
	target, err := s.GetPlan(ctx, targetPlanID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	if req.PreviewOnly {
		current, currentPlan, err := s.currentSubscription(ctx, s.db, requester.ID, now)
		if err != nil {
			return nil, err
		}
		quote := s.quote(current, currentPlan, target, now)
		return &domain.ChangePlanResponse{
			CreditAmount:  quote.CreditAmount,
			FinalAmount:   quote.FinalAmount,
			DaysRemaining: quote.DaysRemaining,
		}, nil
	}

	var resp *domain.ChangePlanResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindActiveByUserIDForUpdate(ctx, tx, requester.ID, now)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrSubscriptionNotFound
		}
		if current.PlanID == target.ID {
			return domain.ErrSamePlan
		}

		currentPlan, err := s.repo.FindPlanByID(ctx, tx, current.PlanID)
		if err != nil {
			return err
		}
		if currentPlan == nil {
			return domain.ErrPlanNotFound
		}

		// Moving to a smaller plan must not strand the branch over its new
		// ceilings, so the downgrade gate runs before anything is written.
		if !target.Price.GreaterThan(currentPlan.Price) {
			report, err := s.entitlement.CheckDowngradeCompatibility(ctx, requester.ID, target.ID, 0)
			if err != nil {
				return err
			}
			if !report.Compatible {
				return domain.ErrDowngradeIncompatible
			}
		}

		quote := s.quote(current, currentPlan, target, now)

		if err := s.repo.UpdateStatus(ctx, tx, current.ID, domain.SubscriptionStatusCancelled, now); err != nil {
			return err
		}

		endAt := now.AddDate(0, 0, target.BillingPeriodDays)
		replacement := &domain.Subscription{
			ID:        s.genID.Generate(),
			UserID:    requester.ID,
			PlanID:    target.ID,
			Status:    domain.SubscriptionStatusActive,
			StartAt:   now,
			EndAt:     &endAt,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, tx, replacement); err != nil {
			return err
		}

		subResp := toSubscriptionResponse(replacement)
		resp = &domain.ChangePlanResponse{
			Subscription:  &subResp,
			CreditAmount:  quote.CreditAmount,
			FinalAmount:   quote.FinalAmount,
			DaysRemaining: quote.DaysRemaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("plan changed",
		zap.String("user_id", requester.ID.String()),
		zap.String("target_plan_id", target.ID.String()),
		zap.String("credit", resp.CreditAmount.String()),
	)

	return resp, nil
}

// quote prices the switch. A missing current subscription or a
// non-expiring one has no unexpired portion to credit, so the target's
// full price applies.
func (s *Service) quote(current *domain.Subscription, currentPlan *domain.Plan, target *domain.Plan, now time.Time) proration.Result {
	if current == nil || currentPlan == nil || current.EndAt == nil {
		return proration.Result{
			CreditAmount: decimal.Zero,
			FinalAmount:  target.Price.Round(2),
		}
	}
	return proration.ComputeUpgradeCredit(currentPlan.Price, current.StartAt, *current.EndAt, target.Price, now)
}

func (s *Service) currentSubscription(ctx context.Context, db *gorm.DB, userID snowflake.ID, now time.Time) (*domain.Subscription, *domain.Plan, error) {
	current, err := s.repo.FindActiveByUserID(ctx, db, userID, now)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		return nil, nil, nil
	}
	currentPlan, err := s.repo.FindPlanByID(ctx, db, current.PlanID)
	if err != nil {
		return nil, nil, err
	}
	return current, currentPlan, nil
}

func (s *Service) requester(ctx context.Context) (*directorydomain.User, error) {
	requesterID, ok := authcontext.UserIDFromContext(ctx)
	if !ok || requesterID == 0 {
		return nil, domain.ErrMissingContext
	}
	user, err := s.directory.GetUser(ctx, requesterID.String())
	if err != nil {
		return nil, err
	}
	return user, nil
}

func toPlanResponse(p *domain.Plan) domain.PlanResponse {
	resp := domain.PlanResponse{
		ID:                p.ID.String(),
		Code:              p.Code,
		Name:              p.Name,
		Price:             p.Price.StringFixed(2),
		BillingPeriodDays: p.BillingPeriodDays,
		CreatedAt:         p.CreatedAt,
	}
	if len(p.Features) > 0 {
		resp.Features = map[string]any(p.Features)
	}
	return resp
}

func toSubscriptionResponse(sub *domain.Subscription) domain.SubscriptionResponse {
	return domain.SubscriptionResponse{
		ID:      sub.ID.String(),
		UserID:  sub.UserID.String(),
		PlanID:  sub.PlanID.String(),
		Status:  sub.Status,
		StartAt: sub.StartAt,
		EndAt:   sub.EndAt,
	}
}
