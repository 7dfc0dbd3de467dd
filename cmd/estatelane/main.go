package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/estatelane/estatelane/internal/clock"
	"github.com/estatelane/estatelane/internal/config"
	"github.com/estatelane/estatelane/internal/logger"
	"github.com/estatelane/estatelane/internal/migration"
	"github.com/estatelane/estatelane/internal/server"
	"github.com/estatelane/estatelane/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
