package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sand/api/internal/metrics"
	"sand/api/internal/middleware"
)

// MetricsServer exposes a process's registry for processes without an API
// router, such as the worker.
type MetricsServer struct {
	engine *gin.Engine
	server *http.Server
	log    zerolog.Logger
}

func NewMetricsServer(addr string, m *metrics.Metrics, log zerolog.Logger) *MetricsServer {
	engine := gin.New()
	engine.Use(middleware.Recovery(log))
	engine.GET("/metrics", gin.WrapH(m.Handler()))

	return &MetricsServer{
		engine: engine,
		server: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

func (s *MetricsServer) Handler() http.Handler {
	return s.engine
}

func (s *MetricsServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("metrics server starting")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics listen and serve: %w", err)
	}
	return nil
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
