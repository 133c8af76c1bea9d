package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/rbac"
	"github.com/assesshub/backoffice/pkg/db/pagination"
)

type Entry struct {
	CompanyID  string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, actor rbac.Actor, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrForbidden        = errors.New("forbidden")
)
