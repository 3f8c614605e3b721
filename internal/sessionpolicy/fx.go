package sessionpolicy

import (
	authdomain "github.com/imaginearsclub/backstage/internal/auth/domain"
	"github.com/imaginearsclub/backstage/internal/sessionpolicy/domain"
	"github.com/imaginearsclub/backstage/internal/sessionpolicy/repository"
	"github.com/imaginearsclub/backstage/internal/sessionpolicy/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sessionpolicy",
	fx.Provide(
		repository.Provide,
		service.New,
		func(svc domain.Service) authdomain.PolicyChecker { return svc },
	),
)
