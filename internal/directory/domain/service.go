package domain

import (
	"context"
	"errors"
	"time"

	"github.com/estatelane/estatelane/pkg/db/pagination"
)

type CreateAgencyRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CreateAgentRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	// ParentID is optional; when empty the agent is created under the
	// requester. Only admins may create agents under one of their agencies.
	ParentID string `json:"parent_id,omitempty"`
}

type ListUsersRequest struct {
	pagination.Pagination
	Role Role
}

type ListUsersResponse struct {
	pagination.PageInfo
	Users []Response `json:"users"`
}

type Response struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	// GetUser returns the directory entry for id. ErrNotFound when absent,
	// ErrUnavailable when the store cannot be reached.
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsersByRole(ctx context.Context, role Role) ([]User, error)
	ListUsers(ctx context.Context, req ListUsersRequest) (ListUsersResponse, error)
	CreateAgency(ctx context.Context, req CreateAgencyRequest) (*Response, error)
	CreateAgent(ctx context.Context, req CreateAgentRequest) (*Response, error)
}

var (
	ErrNotFound       = errors.New("user_not_found")
	ErrUnavailable    = errors.New("directory_unavailable")
	ErrInvalidID      = errors.New("invalid_user_id")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidParent  = errors.New("invalid_parent")
	ErrEmailExists    = errors.New("email_exists")
	ErrNotPermitted   = errors.New("not_permitted")
	ErrMissingContext = errors.New("missing_auth_context")
)
