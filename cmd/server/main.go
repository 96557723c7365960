// @title MailDrop API
// @version 1.0
// @description 临时邮箱代理服务，转发到 mail.tm 兼容的上游
// @BasePath /
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"maildrop/backend/internal/cache"
	"maildrop/backend/internal/config"
	"maildrop/backend/internal/health"
	"maildrop/backend/internal/logger"
	"maildrop/backend/internal/monitoring"
	"maildrop/backend/internal/service"
	"maildrop/backend/internal/storage"
	"maildrop/backend/internal/storage/memory"
	"maildrop/backend/internal/storage/redis"
	httptransport "maildrop/backend/internal/transport/http"
	"maildrop/backend/internal/upstream"
)

// main 启动 HTTP 代理服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.FromConfig(cfg.Log))
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting maildrop server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化注册表
	registry, err := newRegistry(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize registry", zap.Error(err))
	}
	defer func() {
		if err := registry.Close(); err != nil {
			log.Warn("registry close warning", zap.Error(err))
		}
	}()

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 上游客户端与域名解析
	client := upstream.NewClient(upstream.Options{
		BaseURL:   cfg.Upstream.BaseURL,
		Timeout:   cfg.Upstream.Timeout,
		RateLimit: cfg.Upstream.RateLimit,
		Observer:  metrics,
		Logger:    log,
	})
	domainCache := cache.NewLocalCache(cfg.Upstream.DomainCacheTTL, time.Minute)
	defer domainCache.Close()
	resolver := upstream.NewDomainResolver(cfg.Upstream.Domain, client, domainCache, log)

	// 初始化服务层
	generationService := service.NewGenerationService(registry, client, resolver, metrics, cfg.Upstream, cfg.Generation, log)
	messageService := service.NewMessageService(registry, client, log)

	// 初始化健康检查
	healthChecker := health.NewHealthChecker(registry, cfg.Upstream.BaseURL, log)

	// 创建 HTTP 服务器
	httpAddr := cfg.Server.Addr()
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:            cfg,
		GenerationService: generationService,
		MessageService:    messageService,
		HealthChecker:     healthChecker,
		Metrics:           metrics,
		Logger:            log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Error("server error", zap.Error(err))
		return
	}

	log.Info("server exited cleanly")
}

// newRegistry 根据配置创建账户注册表
func newRegistry(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.AccountRepository, error) {
	switch cfg.Registry.Backend {
	case config.RegistryBackendRedis:
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		log.Info("using redis registry",
			zap.String("address", cfg.Redis.Address),
			zap.Duration("ttl", cfg.Registry.TTL),
		)
		return redis.NewStore(client, cfg.Registry.TTL, log), nil
	default:
		log.Info("using memory registry", zap.Duration("ttl", cfg.Registry.TTL))
		return memory.NewStore(cfg.Registry.TTL), nil
	}
}
