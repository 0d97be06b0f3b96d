package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sand/api/internal/models"
	"sand/api/internal/service"
)

const (
	currentUserKey    = "current_user"
	currentSessionKey = "current_session"
)

// Authorize runs check against the session cookie and stores the resolved
// user and session on the context. Failures abort with the mapped status.
func Authorize(cookieName string, check service.RoleCheck, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(cookieName)

		session, user, err := check(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, log, err)
			return
		}

		c.Set(currentUserKey, user)
		c.Set(currentSessionKey, session)

		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.PublicUser, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.PublicUser{}, false
	}
	user, ok := v.(models.PublicUser)
	return user, ok
}

func CurrentSession(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(currentSessionKey)
	if !ok {
		return models.Session{}, false
	}
	session, ok := v.(models.Session)
	return session, ok
}
