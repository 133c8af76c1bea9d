package company

import (
	"go.uber.org/fx"

	"github.com/assesshub/backoffice/internal/company/repository"
	"github.com/assesshub/backoffice/internal/company/service"
)

var Module = fx.Module("company.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
