package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	Name              string         `json:"name"`
	Price             string         `json:"price"`
	BillingPeriodDays int            `json:"billing_period_days"`
	Features          map[string]any `json:"features"`
}

type PlanResponse struct {
	ID                string         `json:"id"`
	Code              string         `json:"code"`
	Name              string         `json:"name"`
	Price             string         `json:"price"`
	BillingPeriodDays int            `json:"billing_period_days"`
	Features          map[string]any `json:"features"`
	CreatedAt         time.Time      `json:"created_at"`
}

type SubscribeRequest struct {
	PlanID string `json:"plan_id"`
}

type SubscriptionResponse struct {
	ID      string             `json:"id"`
	UserID  string             `json:"user_id"`
	PlanID  string             `json:"plan_id"`
	Status  SubscriptionStatus `json:"status"`
	StartAt time.Time          `json:"start_at"`
	EndAt   *time.Time         `json:"end_at,omitempty"`
}

type ChangePlanRequest struct {
	TargetPlanID string `json:"target_plan_id"`
	// PreviewOnly computes the proration without switching plans.
	PreviewOnly bool `json:"preview_only,omitempty"`
}

type ChangePlanResponse struct {
	Subscription  *SubscriptionResponse `json:"subscription,omitempty"`
	CreditAmount  decimal.Decimal       `json:"credit_amount"`
	FinalAmount   decimal.Decimal       `json:"final_amount"`
	DaysRemaining int64                 `json:"days_remaining"`
}

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	CreatePlan(ctx context.Context, req CreatePlanRequest) (*PlanResponse, error)
	ListPlans(ctx context.Context) ([]PlanResponse, error)
	GetPlan(ctx context.Context, id snowflake.ID) (*Plan, error)
	// GetActiveSubscription returns nil (no error) when the user has none.
	GetActiveSubscription(ctx context.Context, userID snowflake.ID) (*Subscription, error)
	Subscribe(ctx context.Context, req SubscribeRequest) (*SubscriptionResponse, error)
	ChangePlan(ctx context.Context, req ChangePlanRequest) (*ChangePlanResponse, error)
}

var (
	ErrPlanNotFound          = errors.New("plan_not_found")
	ErrSubscriptionNotFound  = errors.New("subscription_not_found")
	ErrInvalidPlanID         = errors.New("invalid_plan_id")
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidPrice          = errors.New("invalid_price")
	ErrInvalidBillingPeriod  = errors.New("invalid_billing_period")
	ErrPlanCodeExists        = errors.New("plan_code_exists")
	ErrAlreadySubscribed     = errors.New("already_subscribed")
	ErrSamePlan              = errors.New("same_plan")
	ErrDowngradeIncompatible = errors.New("downgrade_incompatible")
	ErrNotPermitted          = errors.New("not_permitted")
	ErrMissingContext        = errors.New("missing_auth_context")
)
