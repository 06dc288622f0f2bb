package leaderboard

import (
	"creatorconnect-gamification/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("leaderboard.module",
	fx.Provide(
		NewService,
	),
)

var Server = fx.Module("leaderboard.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

func RegisterRoutes(r *gin.Engine, s *Service) {
	g := r.Group("/v1/campaigns", middleware.BrandID())
	g.GET("/:campaign_id/leaderboard", s.handleGetLeaderboard)
}
