package migration

import (
	"github.com/estatelane/estatelane/internal/config"
	directorydomain "github.com/estatelane/estatelane/internal/directory/domain"
	plandomain "github.com/estatelane/estatelane/internal/plan/domain"
	"github.com/estatelane/estatelane/internal/seed"
	usagedomain "github.com/estatelane/estatelane/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are dev conveniences; gorm derives their
			// schema from the models.
			if err := conn.AutoMigrate(
				&directorydomain.User{},
				&plandomain.Plan{},
				&plandomain.Subscription{},
				&usagedomain.Resource{},
				&usagedomain.ExportLog{},
			); err != nil {
				return err
			}
		}

		if err := seed.EnsureDefaultPlans(conn); err != nil {
			return err
		}
		if cfg.Environment != "production" {
			return seed.EnsureRootAdmin(conn)
		}
		return nil
	}),
)
