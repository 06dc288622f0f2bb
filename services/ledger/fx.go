package ledger

import (
	"creatorconnect-gamification/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.module",
	fx.Provide(
		NewService,
	),
)

var Server = fx.Module("ledger.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

func RegisterRoutes(r *gin.Engine, s *Service) {
	g := r.Group("/v1/ledger", middleware.BrandID())
	g.GET("/entries", s.handleListEntries)
	g.GET("/verify", s.handleVerifyChain)
}
