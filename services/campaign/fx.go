package campaign

import (
	"creatorconnect-gamification/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("campaign.module",
	fx.Provide(
		NewService,
	),
)

var Server = fx.Module("campaign.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

func RegisterRoutes(r *gin.Engine, s *Service) {
	g := r.Group("/v1/campaigns", middleware.BrandID())
	g.POST("", s.handleCreate)
	g.GET("/:campaign_id", s.handleGet)
}
