package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/rbac"
	"github.com/assesshub/backoffice/pkg/db/pagination"
)

type ListFilter struct {
	CompanyID *snowflake.ID
	Role      rbac.Role
	Email     string
	Active    *bool
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id snowflake.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	List(ctx context.Context, filter ListFilter, page pagination.Pagination) ([]*User, error)
	ListDeleted(ctx context.Context, page pagination.Pagination) ([]*User, error)
	Update(ctx context.Context, user *User) error
	MarkDeleted(ctx context.Context, user *User) error
	ClearDeleted(ctx context.Context, id snowflake.ID) error
	HardDelete(ctx context.Context, id snowflake.ID) error
	CountActiveTrainees(ctx context.Context, companyID snowflake.ID) (int64, error)
	AssignCompany(ctx context.Context, userIDs []snowflake.ID, companyID snowflake.ID, now time.Time) error
}
