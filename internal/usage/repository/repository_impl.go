package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/usage/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertResource(ctx context.Context, db *gorm.DB, resource *domain.Resource) error {
	return db.WithContext(ctx).Create(resource).Error
}

func (r *repo) FindResourceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Resource, error) {
	var resource domain.Resource
	err := db.WithContext(ctx).Where("id = ?", id).First(&resource).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &resource, nil
}

func (r *repo) DeleteResource(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Resource{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}

func (r *repo) CountOwnedBy(ctx context.Context, db *gorm.DB, ownerIDs []snowflake.ID, resourceType string) (int64, error) {
	if len(ownerIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Resource{}).
		Where("owner_id IN ? AND resource_type = ?", ownerIDs, resourceType).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) InsertExportLog(ctx context.Context, db *gorm.DB, entry *domain.ExportLog) error {
	return db.WithContext(ctx).Create(entry).Error
}
