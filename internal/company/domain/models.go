// Package domain contains persistence models for the company service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Company represents a tenant on the assessment platform.
type Company struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Slug        string       `gorm:"type:text;not null;uniqueIndex:ux_companies_slug" json:"slug"`
	Description string       `gorm:"type:text" json:"description"`
	MaxTrainees int          `gorm:"not null" json:"max_trainees"`
	Active      bool         `gorm:"not null;default:true" json:"active"`

	DeletedAt     *time.Time    `gorm:"index" json:"deleted_at,omitempty"`
	DeletedBy     *snowflake.ID `json:"deleted_by,omitempty"`
	DeletedReason string        `gorm:"type:text" json:"deleted_reason,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }

// Deleted reports whether the company is currently soft-deleted.
func (c Company) Deleted() bool { return c.DeletedAt != nil }
