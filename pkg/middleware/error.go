package middleware

import (
	"creatorconnect-gamification/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Error renders the last error attached to the gin context as a JSON body.
// Handlers report failures with c.Error(err) and return without writing.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil || c.Writer.Written() {
			return
		}

		status, body := errutil.ToHTTP(err.Err)
		c.JSON(status, body)
	}
}
