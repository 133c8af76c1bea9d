package identity

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/assesshub/backoffice/internal/config"
)

var Module = fx.Module("identity",
	fx.Provide(NewFromConfig),
)

// NewFromConfig selects the HTTP provider when a verify endpoint is
// configured, falling back to the static provider for local development.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.IdentityVerifyURL != "" {
		return NewHTTPProvider(cfg.IdentityVerifyURL, cfg.IdentityAPIKey)
	}
	log.Warn("identity verify URL not configured, using static dev provider")
	return NewStaticProvider()
}
