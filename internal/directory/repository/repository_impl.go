package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/directory/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) ListByRole(ctx context.Context, db *gorm.DB, role domain.Role) ([]domain.User, error) {
	var users []domain.User
	err := db.WithContext(ctx).
		Where("role = ?", role).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) ListByParentIDs(ctx context.Context, db *gorm.DB, role domain.Role, parentIDs []snowflake.ID) ([]domain.User, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var users []domain.User
	err := db.WithContext(ctx).
		Where("role = ? AND parent_id IN ?", role, parentIDs).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) ListPaged(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.User, error) {
	stmt := db.WithContext(ctx).Order("id ASC")
	if filter.Role != "" {
		stmt = stmt.Where("role = ?", filter.Role)
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		// over-fetch one row so the caller can detect another page
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var users []domain.User
	if err := stmt.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
