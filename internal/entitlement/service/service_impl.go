package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/clock"
	"github.com/estatelane/estatelane/internal/config"
	directorydomain "github.com/estatelane/estatelane/internal/directory/domain"
	"github.com/estatelane/estatelane/internal/entitlement/domain"
	plandomain "github.com/estatelane/estatelane/internal/plan/domain"
	usagedomain "github.com/estatelane/estatelane/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Features  *config.FeaturesConfigHolder
	Plans     plandomain.Repository
	Usage     usagedomain.Service
	Directory directorydomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	features  *config.FeaturesConfigHolder
	plans     plandomain.Repository
	usage     usagedomain.Service
	directory directorydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("entitlement.service"),
		clock:     p.Clock,
		features:  p.Features,
		plans:     p.Plans,
		usage:     p.Usage,
		directory: p.Directory,
	}
}

// entitlement is the resolved governing subscription for a hierarchy branch.
type entitlement struct {
	rootID snowflake.ID
	plan   *plandomain.Plan
}

func (s *Service) CheckFeatureLimit(ctx context.Context, userID snowflake.ID, featureName string, parentHintID snowflake.ID) (domain.LimitCheckResult, error) {
	featureName = strings.TrimSpace(featureName)
	if featureName == "" {
		return domain.LimitCheckResult{}, domain.ErrInvalidFeature
	}
	if userID == 0 {
		return domain.LimitCheckResult{}, domain.ErrInvalidUser
	}

	ent, found, err := s.resolveEntitlement(ctx, userID, parentHintID)
	if err != nil {
		return domain.LimitCheckResult{}, err
	}
	if !found {
		return notEntitledResult(featureName), nil
	}

	return s.evaluateFeature(ctx, ent, featureName)
}

func (s *Service) GetAllLimits(ctx context.Context, userID snowflake.ID, parentHintID snowflake.ID) (map[string]domain.LimitCheckResult, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	ent, found, err := s.resolveEntitlement(ctx, userID, parentHintID)
	if err != nil {
		return nil, err
	}
	results := make(map[string]domain.LimitCheckResult)
	if !found {
		return results, nil
	}

	for featureName := range ent.plan.Features {
		result, err := s.evaluateFeature(ctx, ent, featureName)
		if err != nil {
			return nil, err
		}
		results[featureName] = result
	}
	return results, nil
}

func (s *Service) CheckDowngradeCompatibility(ctx context.Context, userID snowflake.ID, targetPlanID snowflake.ID, parentHintID snowflake.ID) (domain.DowngradeReport, error) {
	if userID == 0 {
		return domain.DowngradeReport{}, domain.ErrInvalidUser
	}

	target, err := s.plans.FindPlanByID(ctx, s.db, targetPlanID)
	if err != nil {
		return domain.DowngradeReport{}, err
	}
	if target == nil {
		return domain.DowngradeReport{}, plandomain.ErrPlanNotFound
	}

	// Usage is measured where the branch currently pools it. A user with
	// no entitlement at all still gets a report against their own id.
	rootID := userID
	if ent, found, err := s.resolveEntitlement(ctx, userID, parentHintID); err != nil {
		return domain.DowngradeReport{}, err
	} else if found {
		rootID = ent.rootID
	}

	report := domain.DowngradeReport{Compatible: true}
	for featureName := range target.Features {
		limit := target.FeatureLimit(featureName)

		var usage int64
		if def, ok := s.features.Definition(featureName); ok && def.Kind == config.FeatureKindCounter {
			usage, err = s.usage.CountBranch(ctx, rootID, def.ResourceType)
			if err != nil {
				return domain.DowngradeReport{}, err
			}
		}

		detail := domain.DowngradeFeatureDetail{
			FeatureName:  featureName,
			CurrentUsage: usage,
			TargetLimit:  limitValuePtr(limit),
		}
		if value, bounded := limit.Value(); bounded && usage > value {
			detail.Exceeds = true
			report.Compatible = false
		}
		report.Features = append(report.Features, detail)
	}
	return report, nil
}

func (s *Service) IsExportEnabled(ctx context.Context, userID snowflake.ID, parentHintID snowflake.ID) (bool, error) {
	if userID == 0 {
		return false, domain.ErrInvalidUser
	}

	ent, found, err := s.resolveEntitlement(ctx, userID, parentHintID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return ent.plan.FeatureEnabled(s.features.ExportFeature()), nil
}

func (s *Service) EnsureExportPermissions(ctx context.Context, userID snowflake.ID, parentHintID snowflake.ID) error {
	enabled, err := s.IsExportEnabled(ctx, userID, parentHintID)
	if err != nil {
		return err
	}
	if !enabled {
		return domain.ErrExportNotPermitted
	}
	return nil
}

func (s *Service) RecordExport(ctx context.Context, userID snowflake.ID, exportType, entityType string) error {
	return s.usage.RecordExport(ctx, userID, exportType, entityType)
}

// resolveEntitlement walks up the hierarchy for the governing subscription:
// the user's own active subscription first, then the parent hint's, then
// that parent's own parent. First match wins; none found fails closed.
func (s *Service) resolveEntitlement(ctx context.Context, userID snowflake.ID, parentHintID snowflake.ID) (entitlement, bool, error) {
	now := s.clock.Now()

	if ent, found, err := s.activeEntitlement(ctx, userID, now); err != nil || found {
		return ent, found, err
	}

	hint := parentHintID
	if hint == 0 {
		parent, err := s.parentOf(ctx, userID)
		if err != nil {
			return entitlement{}, false, err
		}
		hint = parent
	}
	if hint == 0 {
		return entitlement{}, false, nil
	}

	if ent, found, err := s.activeEntitlement(ctx, hint, now); err != nil || found {
		return ent, found, err
	}

	grandparent, err := s.parentOf(ctx, hint)
	if err != nil {
		return entitlement{}, false, err
	}
	if grandparent == 0 {
		return entitlement{}, false, nil
	}
	return s.activeEntitlement(ctx, grandparent, now)
}

func (s *Service) activeEntitlement(ctx context.Context, userID snowflake.ID, now time.Time) (entitlement, bool, error) {
	subscription, err := s.plans.FindActiveByUserID(ctx, s.db, userID, now)
	if err != nil {
		return entitlement{}, false, err
	}
	if subscription == nil {
		return entitlement{}, false, nil
	}

	plan, err := s.plans.FindPlanByID(ctx, s.db, subscription.PlanID)
	if err != nil {
		return entitlement{}, false, err
	}
	if plan == nil {
		s.log.Error("subscription references missing plan",
			zap.String("subscription_id", subscription.ID.String()),
			zap.String("plan_id", subscription.PlanID.String()),
		)
		return entitlement{}, false, nil
	}

	return entitlement{rootID: userID, plan: plan}, true, nil
}

// parentOf reads a user's parent from the directory, treating unknown ids
// as the end of the chain rather than an error.
func (s *Service) parentOf(ctx context.Context, userID snowflake.ID) (snowflake.ID, error) {
	user, err := s.directory.GetUser(ctx, userID.String())
	if err != nil {
		if errors.Is(err, directorydomain.ErrNotFound) || errors.Is(err, directorydomain.ErrInvalidID) {
			return 0, nil
		}
		return 0, err
	}
	if user.ParentID == nil {
		return 0, nil
	}
	return *user.ParentID, nil
}

func (s *Service) evaluateFeature(ctx context.Context, ent entitlement, featureName string) (domain.LimitCheckResult, error) {
	limit := ent.plan.FeatureLimit(featureName)
	if !limit.Entitled() {
		return notEntitledResult(featureName), nil
	}

	var usage int64
	if def, ok := s.features.Definition(featureName); ok && def.Kind == config.FeatureKindCounter {
		var err error
		usage, err = s.usage.CountBranch(ctx, ent.rootID, def.ResourceType)
		if err != nil {
			return domain.LimitCheckResult{}, err
		}
	}

	result := domain.LimitCheckResult{
		FeatureName:  featureName,
		CurrentUsage: usage,
		LimitValue:   limitValuePtr(limit),
		CanProceed:   limit.Allows(usage),
	}
	result.Message = limitMessage(featureName, limit, usage, result.CanProceed)
	return result, nil
}

func notEntitledResult(featureName string) domain.LimitCheckResult {
	zero := int64(0)
	return domain.LimitCheckResult{
		FeatureName:  featureName,
		CurrentUsage: 0,
		LimitValue:   &zero,
		CanProceed:   false,
		Message:      fmt.Sprintf("%s is not included in the current plan", featureName),
	}
}

func limitValuePtr(limit plandomain.Limit) *int64 {
	if limit.IsUnlimited() {
		return nil
	}
	value, _ := limit.Value()
	return &value
}

func limitMessage(featureName string, limit plandomain.Limit, usage int64, canProceed bool) string {
	if limit.IsUnlimited() {
		return fmt.Sprintf("%s is unlimited on the current plan", featureName)
	}
	value, _ := limit.Value()
	if canProceed {
		return fmt.Sprintf("%d of %d %s used", usage, value, featureName)
	}
	return fmt.Sprintf("%s limit reached (%d of %d used)", featureName, usage, value)
}
