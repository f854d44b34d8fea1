package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gpolydatas/marketing-generator/api/handlers"
	"github.com/gpolydatas/marketing-generator/config"
	"github.com/gpolydatas/marketing-generator/internal/metrics"
	"github.com/gpolydatas/marketing-generator/internal/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server API 与 metrics 两个 HTTP 服务
type Server struct {
	cfg       *config.Config
	app       *App
	collector *metrics.Collector
	limiter   *TieredRateLimiter
	logger    *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager
}

// NewServer 创建服务器
func NewServer(cfg *config.Config, app *App, collector *metrics.Collector, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		app:       app,
		collector: collector,
		logger:    logger,
	}
	var recorder RateLimitRecorder
	if collector != nil {
		recorder = collector
	}
	s.limiter = NewTieredRateLimiter(cfg.Auth.Tiers, recorder, logger)
	s.httpManager = server.NewManager(s.Handler(), server.APIConfig(cfg.Server), logger)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	s.metricsManager = server.NewManager(metricsMux, server.MetricsConfig(cfg.Server), logger)
	return s
}

// routes 注册 API 路由
func (s *Server) routes() *http.ServeMux {
	health := handlers.NewHealthHandler(Version, s.logger)
	for _, c := range s.app.HealthChecks() {
		health.RegisterCheck(c)
	}
	generate := handlers.NewGenerateHandler(s.app.workflow, s.app.sessions, s.app.artifacts, s.cfg.Server.RequestTimeout, s.logger)
	outputs := handlers.NewOutputsHandler(s.app.artifacts, s.logger)
	sessions := handlers.NewSessionHandler(s.app.sessions, s.logger)

	var counter handlers.GenerationCounter
	if s.app.records != nil {
		counter = s.app.records
	}
	var statsCache handlers.JSONCache
	if s.app.cache != nil {
		statsCache = s.app.cache
	}
	admin := handlers.NewAdminHandler(s.limiter, counter, statsCache, s.app.artifacts, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", health.HandleHealth)
	mux.HandleFunc("GET /healthz", health.HandleHealthz)
	mux.HandleFunc("GET /ready", health.HandleHealth)
	mux.HandleFunc("GET /v1/banner-types", handlers.HandleBannerTypes)

	mux.HandleFunc("POST /v1/generate", generate.HandleTurn)
	mux.HandleFunc("POST /v1/generate/banner", generate.HandleBanner)
	mux.HandleFunc("POST /v1/generate/video", generate.HandleVideo)

	mux.HandleFunc("GET /v1/outputs", outputs.HandleList)
	mux.HandleFunc("GET "+handlers.FilesPrefix+"{name}", outputs.HandleDownload)

	mux.HandleFunc("GET /v1/sessions/{id}", sessions.HandleGet)
	mux.HandleFunc("DELETE /v1/sessions/{id}", sessions.HandleDelete)

	mux.HandleFunc("GET /v1/admin/stats", admin.HandleStats)
	return mux
}

// Handler 带完整中间件链的 API handler
func (s *Server) Handler() http.Handler {
	auth := s.authMiddleware()
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RequestLogger(s.logger),
	}
	if s.collector != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.collector))
	}
	middlewares = append(middlewares, OTelTracing())
	if auth != nil {
		middlewares = append(middlewares, auth)
	}
	middlewares = append(middlewares, s.limiter.Middleware(publicPaths))
	return Chain(s.routes(), middlewares...)
}

// authMiddleware JWT 优先于 API Key；都未启用时返回 nil
func (s *Server) authMiddleware() Middleware {
	auth := s.cfg.Auth
	switch {
	case auth.JWT.Enabled:
		return JWTAuth(auth.JWT, publicPaths, s.logger)
	case auth.Enabled:
		return APIKeyAuth(auth.APIKeys, publicPaths, auth.AllowQueryAPIKey, s.logger)
	}
	s.logger.Warn("authentication disabled, requests are limited per client IP")
	return nil
}

// Run 启动两个服务并阻塞到 ctx 结束；任一服务异常退出时一并关闭
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.httpManager.Run(ctx) })
	g.Go(func() error { return s.metricsManager.Run(ctx) })
	g.Go(func() error {
		s.limiter.Cleanup(ctx, time.Minute, 10*time.Minute)
		return nil
	})

	s.logger.Info("starting servers",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.String("session_backend", s.cfg.Session.Backend),
		zap.Bool("database", s.app.records != nil))

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
