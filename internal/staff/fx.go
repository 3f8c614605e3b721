package staff

import (
	"github.com/imaginearsclub/backstage/internal/staff/repository"
	"github.com/imaginearsclub/backstage/internal/staff/service"
	"go.uber.org/fx"
)

var Module = fx.Module("staff",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
