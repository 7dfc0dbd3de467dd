package directory

import (
	"github.com/estatelane/estatelane/internal/directory/repository"
	"github.com/estatelane/estatelane/internal/directory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("directory.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
