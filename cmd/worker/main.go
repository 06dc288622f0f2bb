package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"creatorconnect-gamification/pkg/config"
	"creatorconnect-gamification/pkg/db"
	"creatorconnect-gamification/pkg/hashistack/secretmanager"
	"creatorconnect-gamification/pkg/logger"
	"creatorconnect-gamification/pkg/redis"
	"creatorconnect-gamification/pkg/sequence"
	"creatorconnect-gamification/pkg/task"
	"creatorconnect-gamification/services/ledger"
	"creatorconnect-gamification/services/membership"
	"creatorconnect-gamification/services/reconcile"
	"creatorconnect-gamification/services/rule"
	"creatorconnect-gamification/services/scoring"
	"creatorconnect-gamification/services/tier"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		task.Client,
		task.Server,
		fx.Provide(
			provideSnowflakeNode,
		),
		tier.Module,
		ledger.Module,
		rule.Module,
		membership.Module,
		scoring.Worker,
		reconcile.Worker,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(2)
}
