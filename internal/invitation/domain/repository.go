package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/pkg/db/pagination"
)

// ListFilter.Now anchors the derived expired/pending split: the stored
// status column never holds "expired".
type ListFilter struct {
	CompanyID *snowflake.ID
	Status    Status
	Email     string
	Now       time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, invitation *Invitation) error
	GetByID(ctx context.Context, id snowflake.ID) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	List(ctx context.Context, filter ListFilter, page pagination.Pagination) ([]*Invitation, error)
	Update(ctx context.Context, invitation *Invitation) error
	Delete(ctx context.Context, id snowflake.ID) error
}
