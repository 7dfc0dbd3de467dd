package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertPlan(ctx context.Context, db *gorm.DB, plan *Plan) error
	FindPlanByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Plan, error)
	ListPlans(ctx context.Context, db *gorm.DB) ([]Plan, error)

	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindActiveByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID, at time.Time) (*Subscription, error)
	FindActiveByUserIDForUpdate(ctx context.Context, db *gorm.DB, userID snowflake.ID, at time.Time) (*Subscription, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status SubscriptionStatus, at time.Time) error
}
