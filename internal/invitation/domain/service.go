package domain

import (
	"context"
	"errors"
	"time"

	"github.com/assesshub/backoffice/internal/rbac"
	userdomain "github.com/assesshub/backoffice/internal/user/domain"
	"github.com/assesshub/backoffice/pkg/db/pagination"
)

type CreateRequest struct {
	Email     string
	Role      string
	CompanyID string
	UserData  map[string]interface{}
}

type ListRequest struct {
	PageToken string
	PageSize  int32
	CompanyID string
	Status    string
	Email     string
}

type AcceptRequest struct {
	Token      string
	ExternalID string
	FirstName  string
	LastName   string
	Phone      string
}

type Response struct {
	ID         string                 `json:"id"`
	Email      string                 `json:"email"`
	Role       string                 `json:"role"`
	CompanyID  *string                `json:"company_id,omitempty"`
	InvitedBy  string                 `json:"invited_by"`
	Status     string                 `json:"status"`
	ExpiresAt  time.Time              `json:"expires_at"`
	AcceptedAt *time.Time             `json:"accepted_at,omitempty"`
	UserData   map[string]interface{} `json:"user_data,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// View is the invitee-facing shape returned by token lookups. It never
// exposes inviter internals beyond what signup prefill needs.
type View struct {
	Email     string                 `json:"email"`
	Role      string                 `json:"role"`
	CompanyID *string                `json:"company_id,omitempty"`
	Status    string                 `json:"status"`
	ExpiresAt time.Time              `json:"expires_at"`
	UserData  map[string]interface{} `json:"user_data,omitempty"`
}

type ListResponse struct {
	pagination.PageInfo
	Invitations []Response `json:"invitations"`
}

type Service interface {
	Create(ctx context.Context, actor rbac.Actor, req CreateRequest) (*Response, error)
	GetByID(ctx context.Context, actor rbac.Actor, id string) (*Response, error)
	List(ctx context.Context, actor rbac.Actor, req ListRequest) (ListResponse, error)
	Validate(ctx context.Context, token string) (*View, error)
	Verify(ctx context.Context, token string) (*View, error)
	Resend(ctx context.Context, actor rbac.Actor, id string) (*Response, error)
	Cancel(ctx context.Context, actor rbac.Actor, id string) error
	Delete(ctx context.Context, actor rbac.Actor, id string) error
	Accept(ctx context.Context, req AcceptRequest) (*userdomain.Response, error)
}

var (
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidRole      = errors.New("invalid_role")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidCompany   = errors.New("invalid_company")
	ErrInvalidSubject   = errors.New("invalid_subject")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrNotFound         = errors.New("not_found")
	ErrExpired          = errors.New("expired")
	ErrInvalidState     = errors.New("invalid_state")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrCapacityExceeded = errors.New("capacity_exceeded")
)
