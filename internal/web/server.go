// internal/web/server.go
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"iconsmd/internal/catalog"
	"iconsmd/internal/compose"
	"iconsmd/internal/config"
	"iconsmd/internal/metrics"
)

type Server struct {
	config     *config.Config
	index      *catalog.Index
	compositor *compose.Compositor
	cache      metrics.Sizer
	metrics    *metrics.Collector
	router     *gin.Engine
	hub        *Hub
	server     *http.Server
}

// NewServer wires the HTTP surface. cache is only inspected for its size;
// metricsCollector may be nil.
func NewServer(cfg *config.Config, index *catalog.Index, compositor *compose.Compositor, cache metrics.Sizer, metricsCollector *metrics.Collector) *Server {
	if cfg.Logging.Level != "debug" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger())
	router.Use(metricsMiddleware(metricsCollector))
	router.Use(corsMiddleware())

	server := &Server{
		config:     cfg,
		index:      index,
		compositor: compositor,
		cache:      cache,
		metrics:    metricsCollector,
		router:     router,
		hub:        newHub(metricsCollector),
	}

	index.OnRefresh(func(count int) {
		server.hub.broadcast(WSMessage{Type: "index.refreshed", Data: gin.H{"count": count}})
	})

	server.setupRoutes()
	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	logrus.WithField("port", s.config.Server.Port).Info("Starting web server")

	go s.updateMetricsRoutine(ctx)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.hub.closeAll()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/icons", s.getIcons)
	s.router.GET("/favicon.ico", s.serveFavicon)

	api := s.router.Group("/api")
	{
		api.GET("/icons", s.listIcons)
		api.POST("/index/refresh", s.refreshIndex)
		api.GET("/health", s.healthCheck)
		api.GET("/version", s.getBuildInfo)
	}

	s.router.GET("/ws", s.handleWebSocket)

	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) updateMetricsRoutine(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	s.metrics.UpdateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.metrics.UpdateSystemMetrics()
		}
	}
}
