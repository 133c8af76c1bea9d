package user

import (
	"go.uber.org/fx"

	"github.com/assesshub/backoffice/internal/user/repository"
	"github.com/assesshub/backoffice/internal/user/service"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
