package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/guardflow/api/handlers"
	"github.com/BaSui01/guardflow/config"
	"github.com/BaSui01/guardflow/events"
	"github.com/BaSui01/guardflow/guardrail"
	"github.com/BaSui01/guardflow/hub"
	"github.com/BaSui01/guardflow/internal/cache"
	"github.com/BaSui01/guardflow/internal/metrics"
	"github.com/BaSui01/guardflow/internal/server"
	"github.com/BaSui01/guardflow/internal/telemetry"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 GuardFlow 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// Handlers
	healthHandler   *handlers.HealthHandler
	validateHandler *handlers.ValidateHandler

	// 领域组件
	registry  *guardrail.Registry
	resolver  *hub.Resolver
	hubClient *hub.Client
	cacheMgr  *cache.Manager
	emitter   *events.Emitter

	// 指标收集器
	metricsCollector *metrics.Collector

	// 遥测
	otelProviders *telemetry.Providers

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("guardflow", s.logger)

	// 2. 初始化护栏管道组件
	if err := s.initGuardrails(); err != nil {
		return fmt.Errorf("failed to init guardrails: %w", err)
	}

	// 3. 初始化 Handlers
	s.initHandlers()

	// 4. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 5. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("hub_enabled", s.hubClient != nil),
		zap.Bool("redis_enabled", s.cacheMgr != nil),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initGuardrails 组装护栏管道的领域组件：
// Redis 缓存 → 目录客户端 → 解析器/调用器 → 检查注册表 → 事件发射器
func (s *Server) initGuardrails() error {
	// Redis 清单缓存（可选）
	if s.cfg.Redis.Enabled {
		mgr, err := cache.NewManager(cache.Config{
			Addr:         s.cfg.Redis.Addr,
			Password:     s.cfg.Redis.Password,
			DB:           s.cfg.Redis.DB,
			PoolSize:     s.cfg.Redis.PoolSize,
			MinIdleConns: s.cfg.Redis.MinIdleConns,
		}, s.metricsCollector, s.logger)
		if err != nil {
			s.logger.Warn("Redis not available, manifest caching disabled", zap.Error(err))
		} else {
			s.cacheMgr = mgr
		}
	}

	// 远端目录客户端（可选）
	if s.cfg.Hub.BaseURL != "" {
		s.hubClient = hub.NewClient(hub.ClientConfig{
			BaseURL:         s.cfg.Hub.BaseURL,
			APIKey:          s.cfg.Hub.APIKey,
			Timeout:         s.cfg.Hub.Timeout,
			RateLimit:       s.cfg.Hub.RateLimit,
			RateBurst:       s.cfg.Hub.RateBurst,
			ManifestTTL:     s.cfg.Hub.ManifestTTL,
			AvailabilityTTL: s.cfg.Hub.AvailabilityTTL,
		}, s.cacheMgr, s.metricsCollector, s.logger)
	} else {
		s.logger.Info("Hub base URL not configured, remote validators disabled")
	}

	// 解析器 + 调用器 + 委托检查
	s.resolver = hub.NewResolver(s.hubClient, s.metricsCollector, s.logger)
	invoker := hub.NewInvoker(s.logger)
	hubCheck := hub.NewHubCheck(s.resolver, invoker, s.logger).
		WithLocalFirst(s.cfg.Guardrails.UseLocalFirst)

	// 检查注册表：检测类 + 委托类
	s.registry = guardrail.NewRegistry(s.logger)
	s.registry.RegisterDetectionChecks(s.logger)
	hub.RegisterHubChecks(s.registry, hubCheck)

	// 校验事件发射器
	sinks := []events.Sink{events.NewZapSink(s.logger)}
	if s.cfg.Telemetry.Enabled {
		sinks = append(sinks, events.NewSpanSink())
	}
	s.emitter = events.NewEmitter(s.logger, sinks...)

	s.logger.Info("Guardrail components initialized",
		zap.Int("registered_checks", s.registry.Len()),
		zap.Bool("use_local_first", s.cfg.Guardrails.UseLocalFirst),
	)
	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	// 健康检查 handler + 依赖探测
	s.healthHandler = handlers.NewHealthHandler(s.logger, Version)
	if s.cacheMgr != nil {
		s.healthHandler.RegisterCheck(handlers.HealthCheckFunc{
			CheckName: "redis",
			Fn:        s.cacheMgr.Ping,
		})
	}
	if s.hubClient != nil {
		s.healthHandler.RegisterCheck(handlers.HealthCheckFunc{
			CheckName: "hub",
			Fn: func(ctx context.Context) error {
				if !s.hubClient.Available(ctx) {
					return fmt.Errorf("hub catalog unreachable")
				}
				return nil
			},
		})
	}

	// 文本校验 handler
	s.validateHandler = handlers.NewValidateHandler(
		guardrail.PipelineConfig{Timeout: s.cfg.Guardrails.Timeout},
		s.registry,
		s.emitter,
		s.metricsCollector,
		s.resolver,
		s.hubClient,
		s.cfg.Guardrails,
		s.logger,
	)

	s.logger.Info("Handlers initialized")
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealthz)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)

	// ========================================
	// API 路由
	// ========================================
	mux.HandleFunc("/validate", s.validateHandler.HandleValidate)
	mux.HandleFunc("/api/v1/validate", s.validateHandler.HandleValidate)

	// ========================================
	// 构建中间件链
	// ========================================
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
	}
	if s.cfg.Telemetry.Enabled {
		middlewares = append(middlewares, OTelTracing())
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		middlewares = append(middlewares,
			RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger))
	}
	handler := Chain(mux, middlewares...)

	// ========================================
	// 使用 internal/server.Manager
	// ========================================
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                      // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	// 启动服务器（非阻塞）
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	// 使用 httpManager 的 WaitForShutdown（它会监听信号）
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	// 执行清理
	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 0. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 1. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭 Redis 连接
	if s.cacheMgr != nil {
		if err := s.cacheMgr.Close(); err != nil {
			s.logger.Error("Cache manager shutdown error", zap.Error(err))
		}
	}

	// 4. 关闭遥测
	if s.otelProviders != nil {
		if err := s.otelProviders.Shutdown(ctx); err != nil {
			s.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	// 5. 等待所有 goroutine 完成
	s.wg.Wait()

	s.logger.Info("Graceful shutdown completed")
}
