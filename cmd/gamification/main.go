package main

import (
	"context"
	"log"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"creatorconnect-gamification/pkg/config"
	"creatorconnect-gamification/pkg/db"
	"creatorconnect-gamification/pkg/featureflags"
	"creatorconnect-gamification/pkg/hashistack/secretmanager"
	"creatorconnect-gamification/pkg/hashistack/servicediscover"
	"creatorconnect-gamification/pkg/health"
	"creatorconnect-gamification/pkg/logger"
	"creatorconnect-gamification/pkg/otelcol"
	"creatorconnect-gamification/pkg/otelcol/exporters"
	"creatorconnect-gamification/pkg/profiling"
	"creatorconnect-gamification/pkg/redis"
	"creatorconnect-gamification/pkg/sequence"
	"creatorconnect-gamification/pkg/server"
	"creatorconnect-gamification/pkg/task"
	"creatorconnect-gamification/services/brand"
	"creatorconnect-gamification/services/campaign"
	"creatorconnect-gamification/services/leaderboard"
	"creatorconnect-gamification/services/ledger"
	"creatorconnect-gamification/services/membership"
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
		featureflags.Module,
		task.Client,
		fx.Provide(
			provideSnowflakeNode,
			provideMeterProvider,
			exporters.ProvideHttp,
			provideTracerProvider,
		),
		fx.Invoke(registerTracerProvider),
		profiling.Module,
		servicediscover.Module,
		health.Module,
		server.ProvideHTTPServer,
		brand.Server,
		tier.Server,
		campaign.Server,
		scoring.Server,
		ledger.Server,
		membership.Server,
		leaderboard.Server,
		rule.Server,
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
	return snowflake.NewNode(1)
}

func provideTracerProvider(exporter *otlptrace.Exporter) *sdktrace.TracerProvider {
	return otelcol.ProvideTrace(exporter)
}

func provideMeterProvider() metric.MeterProvider {
	return otel.GetMeterProvider()
}

func registerTracerProvider(lc fx.Lifecycle, tp *sdktrace.TracerProvider) {
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
}
