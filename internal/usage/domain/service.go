package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Response struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	ResourceType string    `json:"resource_type"`
	CreatedAt    time.Time `json:"created_at"`
}

type Service interface {
	// Register records ownership of a newly created domain entity. Callers
	// run their entitlement check first; this call does not re-check.
	Register(ctx context.Context, ownerID snowflake.ID, resourceType string) (*Response, error)
	GetResource(ctx context.Context, id snowflake.ID) (*Response, error)
	Release(ctx context.Context, id snowflake.ID) error

	// CountBranch is pooled usage: it counts resources owned by anyone in
	// the branch rooted at branchRootID, not just the root itself. An
	// agency's plan ceiling is shared by all of its agents; an agent on
	// its own plan is charged only for what it owns.
	CountBranch(ctx context.Context, branchRootID snowflake.ID, resourceType string) (int64, error)

	// RecordExport appends to the export log. The export already happened
	// by the time this runs, so a failed write degrades to a warning
	// instead of failing the request.
	RecordExport(ctx context.Context, userID snowflake.ID, exportType, entityType string) error
}

var (
	ErrInvalidOwner        = errors.New("invalid_owner")
	ErrInvalidResourceType = errors.New("invalid_resource_type")
	ErrResourceNotFound    = errors.New("resource_not_found")
)
