// Package domain contains the owned-resource registry and the export log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Resource is the ownership record for a domain entity (customer, property,
// request, calendar event). OwnerID is immutable after creation; release
// deletes the row rather than re-owning it.
type Resource struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	OwnerID      snowflake.ID `gorm:"not null;index:ix_resources_owner_type,priority:1"`
	ResourceType string       `gorm:"type:text;not null;index:ix_resources_owner_type,priority:2"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Resource) TableName() string { return "resources" }

// ExportLog is an append-only audit trail of data exports. Rows are keyed
// by ULID so entries sort by time of record.
type ExportLog struct {
	ID         string       `gorm:"primaryKey;type:text"`
	UserID     snowflake.ID `gorm:"not null;index"`
	ExportType string       `gorm:"type:text;not null"`
	EntityType string       `gorm:"type:text;not null"`
	RecordedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (ExportLog) TableName() string { return "export_logs" }
