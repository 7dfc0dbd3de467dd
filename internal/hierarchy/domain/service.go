// Package domain defines the visibility circle contract. A user's circle is
// the set of user ids whose resources that user may read.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Circle is a derived, never-persisted set of user ids. It always contains
// at least the user it was resolved for.
type Circle map[snowflake.ID]struct{}

func NewCircle(ids ...snowflake.ID) Circle {
	c := make(Circle, len(ids))
	for _, id := range ids {
		c[id] = struct{}{}
	}
	return c
}

func (c Circle) Contains(id snowflake.ID) bool {
	_, ok := c[id]
	return ok
}

func (c Circle) Add(id snowflake.ID) {
	c[id] = struct{}{}
}

// IDs returns the members as a slice. No ordering is guaranteed.
func (c Circle) IDs() []snowflake.ID {
	out := make([]snowflake.ID, 0, len(c))
	for id := range c {
		out = append(out, id)
	}
	return out
}

type Resolver interface {
	// ResolveCircle computes the circle for userID.
	//
	// directory.ErrNotFound is returned for unknown ids; callers wanting a
	// fail-soft answer should fall back to NewCircle(userID). Transient
	// directory failures surface as directory.ErrUnavailable. A malformed
	// parent chain never fails the call: the resolver degrades to the
	// minimal circle and logs the inconsistency.
	ResolveCircle(ctx context.Context, userID snowflake.ID) (Circle, error)

	// ResolveBranch computes the set of user ids whose resources are
	// attributable to rootID: the root and its descendants. For admins and
	// agencies this coincides with the circle. An agent's branch is only
	// the agent itself; its circle also holds the parent and colleagues,
	// which must never be charged against the agent's own plan.
	//
	// Error behavior matches ResolveCircle.
	ResolveBranch(ctx context.Context, rootID snowflake.ID) (Circle, error)
}
