package access

import (
	"github.com/estatelane/estatelane/internal/access/service"
	"go.uber.org/fx"
)

var Module = fx.Module("access.service",
	fx.Provide(service.New),
)
