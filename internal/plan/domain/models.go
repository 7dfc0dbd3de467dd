// Package domain contains persistence models for subscription plans and
// user subscriptions.
package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Plan is a sellable subscription tier. Features maps feature code to its
// limit: a non-negative number is a hard cap, -1 means unlimited, and a
// boolean marks a capability flag. A code absent from the map is not
// entitled at all, which is a different thing from unlimited.
type Plan struct {
	ID                snowflake.ID      `gorm:"primaryKey"`
	Code              string            `gorm:"type:text;not null;uniqueIndex"`
	Name              string            `gorm:"type:text;not null"`
	Price             decimal.Decimal   `gorm:"type:numeric(12,2);not null"`
	BillingPeriodDays int               `gorm:"not null"`
	Features          datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

// UnlimitedSentinel marks a feature without a cap inside Plan.Features.
const UnlimitedSentinel = -1

// FeatureLimit surfaces the stored value as the three-state Limit type.
func (p *Plan) FeatureLimit(code string) Limit {
	raw, ok := p.Features[code]
	if !ok {
		return NoEntitlement()
	}
	switch v := raw.(type) {
	case json.Number:
		// JSONMap scans numbers back as json.Number, not float64.
		if n, err := v.Int64(); err == nil {
			if n < 0 {
				return Unlimited()
			}
			return Bounded(n)
		}
		if f, err := v.Float64(); err == nil {
			if f < 0 {
				return Unlimited()
			}
			return Bounded(int64(f))
		}
		return NoEntitlement()
	case float64:
		if v < 0 {
			return Unlimited()
		}
		return Bounded(int64(v))
	case int64:
		if v < 0 {
			return Unlimited()
		}
		return Bounded(v)
	case int:
		if v < 0 {
			return Unlimited()
		}
		return Bounded(int64(v))
	case bool:
		if v {
			return Unlimited()
		}
		return NoEntitlement()
	default:
		return NoEntitlement()
	}
}

// FeatureEnabled reports a boolean capability flag. Counted features report
// true whenever they are entitled at all.
func (p *Plan) FeatureEnabled(code string) bool {
	return p.FeatureLimit(code).Entitled()
}

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Subscription ties one user, the entitlement root of a hierarchy branch,
// to a plan. At most one active subscription per user; the store enforces
// that with a partial unique index, not this package.
type Subscription struct {
	ID     snowflake.ID       `gorm:"primaryKey"`
	UserID snowflake.ID       `gorm:"not null;index"`
	PlanID snowflake.ID       `gorm:"not null;index"`
	Status SubscriptionStatus `gorm:"type:text;not null"`

	StartAt time.Time  `gorm:"not null"`
	EndAt   *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
