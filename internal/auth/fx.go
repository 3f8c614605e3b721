package auth

import (
	"github.com/imaginearsclub/backstage/internal/auth/repository"
	"github.com/imaginearsclub/backstage/internal/auth/service"
	"github.com/imaginearsclub/backstage/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(
		repository.Provide,
		service.New,
		session.NewManager,
	),
)
