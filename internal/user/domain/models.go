// Package domain contains persistence models for the user service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/assesshub/backoffice/internal/rbac"
)

// User is a platform account. ExternalID is the opaque subject handed to us
// by the identity provider; authentication itself never happens here.
type User struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	ExternalID string        `gorm:"type:text;not null;uniqueIndex:ux_users_external_id" json:"external_id"`
	Email      string        `gorm:"type:text;not null;uniqueIndex:ux_users_email" json:"email"`
	Role       rbac.Role     `gorm:"type:text;not null" json:"role"`
	CompanyID  *snowflake.ID `gorm:"index" json:"company_id,omitempty"`
	Active     bool          `gorm:"not null;default:true" json:"active"`

	FirstName string `gorm:"type:text" json:"first_name"`
	LastName  string `gorm:"type:text" json:"last_name"`
	Phone     string `gorm:"type:text" json:"phone"`

	DeletedAt     *time.Time    `gorm:"index" json:"deleted_at,omitempty"`
	DeletedBy     *snowflake.ID `json:"deleted_by,omitempty"`
	DeletedReason string        `gorm:"type:text" json:"deleted_reason,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Deleted reports whether the user is currently soft-deleted.
func (u User) Deleted() bool { return u.DeletedAt != nil }
