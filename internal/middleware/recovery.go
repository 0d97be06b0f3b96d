package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/oops"
)

func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := oops.
					In("http").
					With("method", c.Request.Method).
					With("path", c.Request.URL.Path).
					Errorf("panic: %v", r)
				log.Error().
					Err(err).
					Str("request_id", requestIDFrom(c)).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":  "internal_server_error",
					"detail": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
