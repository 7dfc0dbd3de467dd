// Package seed bootstraps a fresh database with the default plan catalog
// and, outside production, a root admin to log in with.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	directorydomain "github.com/estatelane/estatelane/internal/directory/domain"
	plandomain "github.com/estatelane/estatelane/internal/plan/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultAdminName  = "Estatelane Admin"
	defaultAdminEmail = "admin@estatelane.dev"
)

type planSpec struct {
	Code              string
	Name              string
	Price             string
	BillingPeriodDays int
	Features          datatypes.JSONMap
}

func defaultPlans() []planSpec {
	return []planSpec{
		{
			Code:              "starter",
			Name:              "Starter",
			Price:             "0",
			BillingPeriodDays: 30,
			Features: datatypes.JSONMap{
				"max_properties": 10,
				"max_customers":  25,
				"max_agents":     2,
				"max_requests":   50,
				"data_export":    false,
			},
		},
		{
			Code:              "growth",
			Name:              "Growth",
			Price:             "49.00",
			BillingPeriodDays: 30,
			Features: datatypes.JSONMap{
				"max_properties": 200,
				"max_customers":  500,
				"max_agents":     15,
				"max_requests":   1000,
				"data_export":    true,
			},
		},
		{
			Code:              "enterprise",
			Name:              "Enterprise",
			Price:             "199.00",
			BillingPeriodDays: 30,
			Features: datatypes.JSONMap{
				"max_properties": plandomain.UnlimitedSentinel,
				"max_customers":  plandomain.UnlimitedSentinel,
				"max_agents":     plandomain.UnlimitedSentinel,
				"max_requests":   plandomain.UnlimitedSentinel,
				"data_export":    true,
			},
		},
	}
}

// EnsureDefaultPlans inserts the stock plan catalog, keyed by code.
// Existing plans are left alone so operator edits survive restarts.
func EnsureDefaultPlans(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, spec := range defaultPlans() {
			var existing plandomain.Plan
			err := tx.Where("code = ?", spec.Code).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			price, err := decimal.NewFromString(spec.Price)
			if err != nil {
				return err
			}

			record := plandomain.Plan{
				ID:                node.Generate(),
				Code:              spec.Code,
				Name:              spec.Name,
				Price:             price,
				BillingPeriodDays: spec.BillingPeriodDays,
				Features:          spec.Features,
				CreatedAt:         time.Now().UTC(),
				UpdatedAt:         time.Now().UTC(),
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureRootAdmin creates the first admin when the directory is empty.
func EnsureRootAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&directorydomain.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		admin := directorydomain.User{
			ID:        node.Generate(),
			Role:      directorydomain.RoleAdmin,
			Name:      defaultAdminName,
			Email:     defaultAdminEmail,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		return tx.Create(&admin).Error
	})
}
