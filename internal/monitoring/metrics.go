package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 邮箱生成指标
	GenerationAttempts *prometheus.CounterVec
	GenerationResults  *prometheus.CounterVec

	// 上游调用指标
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// 注册表指标
	RegistryAccounts prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标，每个实例使用独立的注册表
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildrop_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maildrop_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		GenerationAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildrop_generation_attempts_total",
				Help: "Account creation attempts by candidate strategy and result",
			},
			[]string{"strategy", "result"},
		),

		GenerationResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildrop_generation_results_total",
				Help: "Generation requests by final outcome",
			},
			[]string{"outcome"},
		),

		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildrop_upstream_requests_total",
				Help: "Total number of calls to the upstream mail provider",
			},
			[]string{"operation", "outcome"},
		),

		UpstreamRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maildrop_upstream_request_duration_seconds",
				Help:    "Upstream call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		RegistryAccounts: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "maildrop_registry_accounts",
				Help: "Number of accounts held in the registry",
			},
		),

		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildrop_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "maildrop_panics_total",
				Help: "Total number of panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordGenerationAttempt 记录一次候选前缀尝试
func (m *Metrics) RecordGenerationAttempt(strategy string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.GenerationAttempts.WithLabelValues(strategy, result).Inc()
}

// RecordGenerationResult 记录生成请求的最终结果: created, cached, invalid, exhausted
func (m *Metrics) RecordGenerationResult(outcome string) {
	m.GenerationResults.WithLabelValues(outcome).Inc()
}

// ObserveUpstreamCall 记录上游调用
func (m *Metrics) ObserveUpstreamCall(operation, outcome string, duration time.Duration) {
	m.UpstreamRequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.UpstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateRegistryAccounts 更新注册表账户数
func (m *Metrics) UpdateRegistryAccounts(count int) {
	m.RegistryAccounts.Set(float64(count))
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// Gatherer 返回底层注册表
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
