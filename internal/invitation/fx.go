package invitation

import (
	"go.uber.org/fx"

	"github.com/assesshub/backoffice/internal/invitation/repository"
	"github.com/assesshub/backoffice/internal/invitation/service"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
