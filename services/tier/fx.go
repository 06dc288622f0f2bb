package tier

import (
	"creatorconnect-gamification/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("tier.module",
	fx.Provide(
		NewService,
	),
)

var Server = fx.Module("tier.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

func RegisterRoutes(r *gin.Engine, s *Service) {
	g := r.Group("/v1/tiers", middleware.BrandID())
	g.PUT("", s.handleReplaceTiers)
	g.GET("", s.handleListTiers)
}
