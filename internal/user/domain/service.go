package domain

import (
	"context"
	"errors"
	"time"

	"github.com/assesshub/backoffice/internal/rbac"
	"github.com/assesshub/backoffice/pkg/db/pagination"
)

type CreateRequest struct {
	ExternalID string
	Email      string
	Role       string
	CompanyID  string
	FirstName  string
	LastName   string
	Phone      string
}

type UpdateRequest struct {
	ID        string
	Role      *string
	Active    *bool
	FirstName *string
	LastName  *string
	Phone     *string
}

type ListRequest struct {
	PageToken string
	PageSize  int32
	CompanyID string
	Role      string
	Email     string
	Active    *bool
}

type SoftDeleteRequest struct {
	ID     string
	Reason string
}

type AssignCompanyRequest struct {
	CompanyID string
	UserIDs   []string
}

type Response struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CompanyID *string    `json:"company_id,omitempty"`
	Active    bool       `json:"active"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Users []Response `json:"users"`
}

type Service interface {
	Create(ctx context.Context, actor rbac.Actor, req CreateRequest) (*Response, error)
	GetByID(ctx context.Context, actor rbac.Actor, id string) (*Response, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	List(ctx context.Context, actor rbac.Actor, req ListRequest) (ListResponse, error)
	ListDeleted(ctx context.Context, actor rbac.Actor, req ListRequest) (ListResponse, error)
	Update(ctx context.Context, actor rbac.Actor, req UpdateRequest) (*Response, error)
	SoftDelete(ctx context.Context, actor rbac.Actor, req SoftDeleteRequest) error
	Recover(ctx context.Context, actor rbac.Actor, id string) error
	Purge(ctx context.Context, actor rbac.Actor, id string) error
	AssignCompany(ctx context.Context, actor rbac.Actor, req AssignCompanyRequest) error
}

var (
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidSubject   = errors.New("invalid_subject")
	ErrInvalidRole      = errors.New("invalid_role")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidCompany   = errors.New("invalid_company")
	ErrNotFound         = errors.New("not_found")
	ErrEmailConflict    = errors.New("conflict")
	ErrSelfAction       = errors.New("self_action")
	ErrWindowExpired    = errors.New("window_expired")
	ErrWindowOpen       = errors.New("window_open")
	ErrForbidden        = errors.New("forbidden")
	ErrCapacityExceeded = errors.New("capacity_exceeded")
)
