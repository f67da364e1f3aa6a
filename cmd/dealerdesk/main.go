package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/dealerdesk/platform/internal/config"
	"github.com/dealerdesk/platform/internal/governance"
	"github.com/dealerdesk/platform/internal/identity"
	"github.com/dealerdesk/platform/internal/logger"
	"github.com/dealerdesk/platform/internal/migration"
	"github.com/dealerdesk/platform/internal/observability/metrics"
	"github.com/dealerdesk/platform/internal/providers/email"
	"github.com/dealerdesk/platform/internal/reconciliation"
	"github.com/dealerdesk/platform/internal/server"
	"github.com/dealerdesk/platform/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		metrics.Module,

		// Functional domains
		identity.Module,
		reconciliation.Module,
		governance.Module,
		email.Module,

		// HTTP surface
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
