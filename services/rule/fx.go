package rule

import (
	"creatorconnect-gamification/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("rule.module",
	fx.Provide(
		NewService,
	),
)

var Server = fx.Module("rule.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

func RegisterRoutes(r *gin.Engine, s *Service) {
	g := r.Group("/v1/rules", middleware.BrandID())
	g.POST("", s.handleCreate)
	g.GET("", s.handleList)
	g.DELETE("/:rule_id", s.handleDelete)
}
