package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sand/api/internal/config"
	"sand/api/internal/middleware"
	"sand/api/internal/models"
	"sand/api/internal/service"
)

// PingFunc reports whether a backing dependency is reachable.
type PingFunc func(ctx context.Context) error

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	auth      *service.AuthService
	dbPing    PingFunc
	cachePing PingFunc
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, auth *service.AuthService, dbPing, cachePing PingFunc) HandlerSet {
	return HandlerSet{
		log:       log,
		cfg:       cfg,
		auth:      auth,
		dbPing:    dbPing,
		cachePing: cachePing,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	user := router.Group("/user")
	user.POST("/login", h.Login)
	user.POST("/logout", h.Logout)

	admins := user.Group("", h.authorize(models.UserRoleAdmin, models.UserRoleSuperAdmin))
	admins.GET("/me", h.Me)

	super := user.Group("", h.authorize(models.UserRoleSuperAdmin))
	super.POST("/signup", h.Signup)
	super.GET("/users", h.ListUsers)
	super.GET("/users/:id", h.GetUser)
	super.PUT("/users/:id", h.UpdateUser)
	super.DELETE("/users/:id", h.DeleteUser)
	super.PUT("/users/:id/password", h.ChangePassword)
	super.PUT("/admin/users/:id/password", h.AdminResetPassword)
}

func (h HandlerSet) authorize(roles ...models.UserRole) gin.HandlerFunc {
	return middleware.Authorize(h.cfg.Cookie.Name, h.auth.RequireRoles(roles...), h.log)
}

func (h HandlerSet) fail(c *gin.Context, err error) {
	middleware.AbortWithError(c, h.log, err)
}
