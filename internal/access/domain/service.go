// Package domain defines yes/no access decisions over owned resources.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service answers whether a requester may read or modify a resource owned
// by another user. Decisions never error for "unauthorized": unknown ids
// deny with a false result so callers cannot probe which ids exist. Only
// infrastructure failures (directory unreachable) return an error.
//
// Read and modify are deliberately asymmetric. An agent must see colleague
// data for shared scheduling but must never mutate it; an agency
// administers its own agents but not sibling agencies, even though an
// admin sees both. Collapsing the two checks into one circle-membership
// test is the single highest-risk change in this package.
type Service interface {
	CanRead(ctx context.Context, requesterID, ownerID snowflake.ID) (bool, error)
	CanModify(ctx context.Context, requesterID, ownerID snowflake.ID) (bool, error)
}
