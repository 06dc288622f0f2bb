package brand

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("brand.module",
	fx.Provide(
		NewService,
	),
)

var Server = fx.Module("brand.server",
	Module,
	fx.Invoke(RegisterRoutes),
)

// Brand creation is not brand-scoped, so no X-Brand-ID requirement here.
func RegisterRoutes(r *gin.Engine, s *Service) {
	g := r.Group("/v1/brands")
	g.POST("", s.handleCreate)
	g.GET("/:brand_id", s.handleGet)
}
