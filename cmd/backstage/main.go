package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/imaginearsclub/backstage/internal/migration"
	"github.com/imaginearsclub/backstage/internal/observability"
	"github.com/imaginearsclub/backstage/internal/server"
	"github.com/imaginearsclub/backstage/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
