package usage

import (
	"github.com/estatelane/estatelane/internal/usage/repository"
	"github.com/estatelane/estatelane/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
