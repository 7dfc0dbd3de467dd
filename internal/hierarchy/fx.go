package hierarchy

import (
	"github.com/estatelane/estatelane/internal/hierarchy/service"
	"go.uber.org/fx"
)

var Module = fx.Module("hierarchy.resolver",
	fx.Provide(service.New),
)
