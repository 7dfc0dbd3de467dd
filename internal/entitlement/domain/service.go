// Package domain defines the subscription entitlement contracts: metered
// feature limits, downgrade compatibility, and the export gate.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// LimitCheckResult is a computed value object, never persisted. LimitValue
// nil means unlimited; not-entitled surfaces as a zero limit with
// CanProceed false, so the two look nothing alike on the wire.
type LimitCheckResult struct {
	FeatureName  string `json:"feature_name"`
	CurrentUsage int64  `json:"current_usage"`
	LimitValue   *int64 `json:"limit_value"`
	CanProceed   bool   `json:"can_proceed"`
	Message      string `json:"message"`
}

type DowngradeFeatureDetail struct {
	FeatureName  string `json:"feature_name"`
	CurrentUsage int64  `json:"current_usage"`
	TargetLimit  *int64 `json:"target_limit"`
	Exceeds      bool   `json:"exceeds"`
}

type DowngradeReport struct {
	Compatible bool                     `json:"compatible"`
	Features   []DowngradeFeatureDetail `json:"features"`
}

// Service resolves which subscription governs a user (self, then the
// parent hint, then that parent's own parent) and answers feature checks
// against it. Usage is pooled across the entitlement root's whole branch.
//
// Limit checks are advisory and best-effort: two concurrent creates can
// both pass when one slot remains and overshoot the cap by one. That is a
// documented property of the check-then-create sequence, not a defect;
// callers needing a hard cap must serialize at the storage layer.
type Service interface {
	CheckFeatureLimit(ctx context.Context, userID snowflake.ID, featureName string, parentHintID snowflake.ID) (LimitCheckResult, error)
	// GetAllLimits evaluates every feature on the resolved plan. It reads
	// counters but never advances them.
	GetAllLimits(ctx context.Context, userID snowflake.ID, parentHintID snowflake.ID) (map[string]LimitCheckResult, error)
	// CheckDowngradeCompatibility answers "if the branch switched to the
	// target plan today, would any feature already exceed its new ceiling".
	// Usage is measured at the current entitlement root, not the target
	// plan's owner.
	CheckDowngradeCompatibility(ctx context.Context, userID snowflake.ID, targetPlanID snowflake.ID, parentHintID snowflake.ID) (DowngradeReport, error)
	IsExportEnabled(ctx context.Context, userID snowflake.ID, parentHintID snowflake.ID) (bool, error)
	EnsureExportPermissions(ctx context.Context, userID snowflake.ID, parentHintID snowflake.ID) error
	RecordExport(ctx context.Context, userID snowflake.ID, exportType, entityType string) error
}

var (
	ErrExportNotPermitted = errors.New("export_not_permitted")
	ErrInvalidFeature     = errors.New("invalid_feature")
	ErrInvalidUser        = errors.New("invalid_user")
)
