package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	auditdomain "github.com/assesshub/backoffice/internal/audit/domain"
	companydomain "github.com/assesshub/backoffice/internal/company/domain"
	"github.com/assesshub/backoffice/internal/config"
	invitationdomain "github.com/assesshub/backoffice/internal/invitation/domain"
	"github.com/assesshub/backoffice/internal/ratelimit"
	"github.com/assesshub/backoffice/internal/seed"
	userdomain "github.com/assesshub/backoffice/internal/user/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, limiter *ratelimit.InviteLimiter) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres targets (sqlite dev mode, mysql) take the schema
			// straight from the models.
			err := conn.AutoMigrate(
				&companydomain.Company{},
				&userdomain.User{},
				&invitationdomain.Invitation{},
				&auditdomain.AuditLog{},
			)
			if err != nil {
				return err
			}
		}

		return seed.EnsureBootstrapAdmin(conn, cfg, limiter)
	}),
)
