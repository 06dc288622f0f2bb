package middleware

import (
	"context"

	"creatorconnect-gamification/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Key type biar aman di context (tidak bentrok)
type brandKey struct{}

var BrandContextKey = brandKey{}

const BrandHeader = "X-Brand-ID"

// BrandID extracts the brand scope from the X-Brand-ID header and stores
// it on the request context. Requests without the header are rejected.
func BrandID() gin.HandlerFunc {
	return func(c *gin.Context) {
		brandID := c.GetHeader(BrandHeader)
		if brandID == "" {
			c.Error(errutil.BadRequest("X-Brand-ID header is required", nil))
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), BrandContextKey, brandID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetBrandID mengembalikan brand id dari context (default "")
func GetBrandID(ctx context.Context) string {
	id, ok := ctx.Value(BrandContextKey).(string)
	if !ok {
		return ""
	}
	return id
}
