package health

import (
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"maildrop/backend/internal/storage"
)

const (
	maxGoroutines   = 10000
	upstreamTimeout = 5 * time.Second
)

// HealthChecker 健康检查器
type HealthChecker struct {
	health   healthcheck.Handler
	registry storage.AccountRepository
	logger   *zap.Logger
}

// NewHealthChecker 创建健康检查器。upstreamBaseURL 为空时不检查上游。
func NewHealthChecker(registry storage.AccountRepository, upstreamBaseURL string, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := &HealthChecker{
		health:   healthcheck.NewHandler(),
		registry: registry,
		logger:   logger,
	}

	hc.addChecks(upstreamBaseURL)

	return hc
}

// addChecks 添加健康检查
func (hc *HealthChecker) addChecks(upstreamBaseURL string) {
	// 协程数量检查
	hc.health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(maxGoroutines))

	// 注册表连接检查
	hc.health.AddReadinessCheck("registry", RegistryHealthCheck(hc.registry))

	// 上游服务可用性
	if upstreamBaseURL != "" {
		hc.health.AddReadinessCheck("upstream", healthcheck.HTTPGetCheck(upstreamBaseURL+"/domains", upstreamTimeout))
	}
}

// LiveHandler 存活检查
func (hc *HealthChecker) LiveHandler() http.HandlerFunc {
	return hc.health.LiveEndpoint
}

// ReadyHandler 就绪检查
func (hc *HealthChecker) ReadyHandler() http.HandlerFunc {
	return hc.health.ReadyEndpoint
}

// CheckHealth 执行一次注册表检查
func (hc *HealthChecker) CheckHealth() map[string]string {
	results := make(map[string]string)

	if err := hc.registry.Health(); err != nil {
		hc.logger.Warn("registry unhealthy", zap.Error(err))
		results["registry"] = fmt.Sprintf("ERROR: %v", err)
	} else {
		results["registry"] = "OK"
	}
	results["timestamp"] = time.Now().Format(time.RFC3339)

	return results
}

// RegistryHealthCheck 注册表健康检查
func RegistryHealthCheck(registry storage.AccountRepository) healthcheck.Check {
	return func() error {
		return registry.Health()
	}
}
