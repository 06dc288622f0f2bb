package membership

import (
	"creatorconnect-gamification/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("membership.module",
	fx.Provide(
		NewService,
	),
)

var Server = fx.Module("membership.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

func RegisterRoutes(r *gin.Engine, s *Service) {
	g := r.Group("/v1/memberships", middleware.BrandID())
	g.POST("", s.handleJoin)
	g.GET("", s.handleList)
	g.POST("/:membership_id/suspend", s.handleTransition(s.Suspend))
	g.POST("/:membership_id/reactivate", s.handleTransition(s.Reactivate))
	g.POST("/:membership_id/archive", s.handleTransition(s.Archive))
	g.POST("/:membership_id/rebuild", s.handleTransition(s.Rebuild))
}
