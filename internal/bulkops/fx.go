package bulkops

import (
	"github.com/imaginearsclub/backstage/internal/bulkops/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bulkops",
	fx.Provide(service.New),
)
