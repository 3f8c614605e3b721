package application

import (
	"github.com/imaginearsclub/backstage/internal/application/repository"
	"github.com/imaginearsclub/backstage/internal/application/service"
	"go.uber.org/fx"
)

var Module = fx.Module("application",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
