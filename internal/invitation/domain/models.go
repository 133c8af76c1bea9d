// Package domain contains the invitation onboarding models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	"github.com/assesshub/backoffice/internal/rbac"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// ParseStatus normalizes a status filter value.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusAccepted, StatusExpired, StatusCancelled:
		return Status(raw), true
	default:
		return "", false
	}
}

// Invitation grants one-time access to complete onboarding for a specific
// email/role/company. Expiry is always derived from ExpiresAt at read time;
// the stored status is never swept to "expired" in the background.
type Invitation struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email     string        `gorm:"type:text;not null;index" json:"email"`
	Role      rbac.Role     `gorm:"type:text;not null" json:"role"`
	CompanyID *snowflake.ID `gorm:"index" json:"company_id,omitempty"`
	InvitedBy snowflake.ID  `gorm:"not null" json:"invited_by"`

	Token  string `gorm:"type:text;not null;uniqueIndex:ux_invitations_token" json:"-"`
	Status Status `gorm:"type:text;not null" json:"status"`

	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`

	UserData datatypes.JSONMap `gorm:"type:json" json:"user_data,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "invitations" }

// ExpiredAt reports whether the invitation is past its expiry at the given
// instant.
func (i Invitation) ExpiredAt(now time.Time) bool { return now.After(i.ExpiresAt) }

// EffectiveStatus folds wall-clock expiry into the stored status.
func (i Invitation) EffectiveStatus(now time.Time) Status {
	if i.Status == StatusPending && i.ExpiredAt(now) {
		return StatusExpired
	}
	return i.Status
}
