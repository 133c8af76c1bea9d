package domain

import (
	"context"
	"errors"
	"time"

	"github.com/assesshub/backoffice/internal/rbac"
	"github.com/assesshub/backoffice/pkg/db/pagination"
)

type CreateRequest struct {
	Name        string
	Description string
	MaxTrainees int
}

type UpdateRequest struct {
	ID          string
	Name        *string
	Description *string
	MaxTrainees *int
	Active      *bool
}

type ListRequest struct {
	PageToken string
	PageSize  int32
	Name      string
	Active    *bool
}

type SoftDeleteRequest struct {
	ID     string
	Reason string
}

type Response struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	MaxTrainees int        `json:"max_trainees"`
	Active      bool       `json:"active"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Companies []Response `json:"companies"`
}

type Service interface {
	Create(ctx context.Context, actor rbac.Actor, req CreateRequest) (*Response, error)
	GetByID(ctx context.Context, actor rbac.Actor, id string) (*Response, error)
	GetBySlug(ctx context.Context, actor rbac.Actor, slug string) (*Response, error)
	List(ctx context.Context, actor rbac.Actor, req ListRequest) (ListResponse, error)
	ListDeleted(ctx context.Context, actor rbac.Actor, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, actor rbac.Actor, req UpdateRequest) (*Response, error)
	SoftDelete(ctx context.Context, actor rbac.Actor, req SoftDeleteRequest) error
	Recover(ctx context.Context, actor rbac.Actor, id string) error
	Purge(ctx context.Context, actor rbac.Actor, id string) error
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidCapacity = errors.New("invalid_capacity")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrSlugConflict    = errors.New("conflict")
	ErrWindowExpired   = errors.New("window_expired")
	ErrWindowOpen      = errors.New("window_open")
	ErrForbidden       = errors.New("forbidden")
)
