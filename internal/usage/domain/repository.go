package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertResource(ctx context.Context, db *gorm.DB, resource *Resource) error
	FindResourceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Resource, error)
	DeleteResource(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	CountOwnedBy(ctx context.Context, db *gorm.DB, ownerIDs []snowflake.ID, resourceType string) (int64, error)
	InsertExportLog(ctx context.Context, db *gorm.DB, entry *ExportLog) error
}
