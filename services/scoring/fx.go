package scoring

import (
	"creatorconnect-gamification/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("scoring.module",
	fx.Provide(
		NewService,
	),
)

var Server = fx.Module("scoring.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

// Worker registers the asynq handlers instead of HTTP routes.
var Worker = fx.Module("scoring.worker",
	Module,
	fx.Invoke(RegisterTaskHandlers),
)

func RegisterRoutes(r *gin.Engine, s *Service) {
	cfgGroup := r.Group("/v1/scoring", middleware.BrandID())
	cfgGroup.PUT("/rules", s.handlePutRules)
	cfgGroup.GET("/rules", s.handleGetRules)
	cfgGroup.PUT("/caps", s.handlePutCaps)
	cfgGroup.GET("/caps", s.handleGetCaps)

	events := r.Group("/v1/events", middleware.BrandID())
	events.POST("", s.handleScoreEvent)
	events.POST("/async", s.handleScoreEventAsync)
}
