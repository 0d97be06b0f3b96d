package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sand/api/internal/config"
	"sand/api/internal/models"
)

// SetSessionCookie writes the session token cookie. Production uses
// SameSite=None with the configured domain so a separately hosted frontend
// can send it; browsers only accept that combination over Secure.
func SetSessionCookie(c *gin.Context, cfg *config.AppConfig, session models.Session) {
	http.SetCookie(c.Writer, sessionCookie(cfg, session.SessionID, session.ExpiresAt))
}

// ClearSessionCookie expires the cookie with the same attributes it was set with.
func ClearSessionCookie(c *gin.Context, cfg *config.AppConfig) {
	cookie := sessionCookie(cfg, "", time.Unix(0, 0))
	cookie.MaxAge = -1
	http.SetCookie(c.Writer, cookie)
}

func sessionCookie(cfg *config.AppConfig, value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     cfg.Cookie.Name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   cfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.IsProduction() {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Secure = true
		cookie.Domain = cfg.Cookie.Domain
	}
	return cookie
}
