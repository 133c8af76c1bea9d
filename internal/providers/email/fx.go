package email

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/assesshub/backoffice/internal/config"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) (Provider, error) {
	if cfg.SMTPHost == "" {
		log.Warn("smtp host not configured, outbound email disabled")
		return &NoOpProvider{}, nil
	}
	return NewSMTP(Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}
