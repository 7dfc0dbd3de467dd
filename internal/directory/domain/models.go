// Package domain contains the user directory models for the tenancy hierarchy.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is the closed set of positions a user can hold in the hierarchy.
// Admins own a whole branch, agencies sit under an admin, agents sit under
// an agency or directly under an admin.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgency Role = "agency"
	RoleAgent  Role = "agent"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgency, RoleAgent:
		return true
	default:
		return false
	}
}

// User is a directory entry. ParentID is nil only for admins; an agency's
// parent is an admin, an agent's parent is an agency or an admin. Users are
// never re-parented after creation.
type User struct {
	ID       snowflake.ID  `gorm:"primaryKey"`
	Role     Role          `gorm:"type:text;not null;index"`
	ParentID *snowflake.ID `gorm:"index"`
	Name     string        `gorm:"type:text;not null"`
	Email    string        `gorm:"type:text;not null;uniqueIndex"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
