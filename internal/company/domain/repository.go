package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/pkg/db/pagination"
)

type ListFilter struct {
	Name   string
	Active *bool
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, company *Company) error
	GetByID(ctx context.Context, id snowflake.ID) (*Company, error)
	GetBySlug(ctx context.Context, slug string) (*Company, error)
	List(ctx context.Context, filter ListFilter, page pagination.Pagination) ([]*Company, error)
	ListDeleted(ctx context.Context, page pagination.Pagination) ([]*Company, error)
	Update(ctx context.Context, company *Company) error
	MarkDeleted(ctx context.Context, company *Company) error
	ClearDeleted(ctx context.Context, id snowflake.ID) error
	HardDelete(ctx context.Context, id snowflake.ID) error
	HardDeleteUsersByCompany(ctx context.Context, id snowflake.ID) error
}
