// Package seed bootstraps the first site administrator so a fresh install is
// manageable without manual database edits.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/assesshub/backoffice/internal/config"
	"github.com/assesshub/backoffice/internal/ratelimit"
	"github.com/assesshub/backoffice/internal/rbac"
	userdomain "github.com/assesshub/backoffice/internal/user/domain"
)

const bootstrapLockTTL = 30 * time.Second

// EnsureBootstrapAdmin inserts the configured site admin if no user exists
// for the configured identity subject. It is a no-op unless both
// BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_SUB are set.
func EnsureBootstrapAdmin(db *gorm.DB, cfg config.Config, limiter *ratelimit.InviteLimiter) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	sub := strings.TrimSpace(cfg.BootstrapAdminSub)
	if email == "" || sub == "" {
		return nil
	}

	ctx := context.Background()

	token, acquired, err := limiter.TryBootstrapLock(ctx, bootstrapLockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		// Another replica is seeding.
		return nil
	}
	defer func() {
		_ = limiter.ReleaseBootstrapLock(ctx, token)
	}()

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Raw(
			`SELECT COUNT(*) FROM users WHERE external_id = ? OR email = ?`,
			sub, email,
		).Scan(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		admin := userdomain.User{
			ID:         node.Generate(),
			ExternalID: sub,
			Email:      email,
			Role:       rbac.RoleSiteAdmin,
			Active:     true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return tx.Create(&admin).Error
	})
}
