package plan

import (
	"github.com/estatelane/estatelane/internal/plan/repository"
	"github.com/estatelane/estatelane/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
