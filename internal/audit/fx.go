package audit

import (
	"github.com/imaginearsclub/backstage/internal/audit/repository"
	"github.com/imaginearsclub/backstage/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
