package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"sand/api/internal/apperr"
)

// AbortWithError renders err as {"error": kind, "detail": message}. Causes
// behind storage errors are logged, never sent.
func AbortWithError(c *gin.Context, log zerolog.Logger, err error) {
	kind := apperr.KindOf(err)

	if kind == apperr.KindStorage {
		event := log.Error().
			Err(err).
			Str("request_id", requestIDFrom(c)).
			Str("path", c.Request.URL.Path)
		if oopsErr, ok := oops.AsOops(err); ok {
			event = event.
				Str("domain", oopsErr.Domain()).
				Interface("context", oopsErr.Context())
		}
		event.Msg("request failed")
	}

	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), gin.H{
		"error":  string(kind),
		"detail": apperr.Message(err),
	})
}
