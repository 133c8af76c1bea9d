package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/assesshub/backoffice/internal/clock"
	"github.com/assesshub/backoffice/internal/migration"
	"github.com/assesshub/backoffice/internal/observability"
	"github.com/assesshub/backoffice/internal/server"
	"github.com/assesshub/backoffice/pkg/db"
)

func main() {
	app := fx.New(
		observability.Module,
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
