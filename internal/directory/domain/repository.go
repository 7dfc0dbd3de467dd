package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Role      Role
	AfterID   snowflake.ID
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	ListByRole(ctx context.Context, db *gorm.DB, role Role) ([]User, error)
	ListByParentIDs(ctx context.Context, db *gorm.DB, role Role, parentIDs []snowflake.ID) ([]User, error)
	ListPaged(ctx context.Context, db *gorm.DB, filter ListFilter) ([]User, error)
}
