package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec
	rateLimitRejections *prometheus.CounterVec

	// 工作流指标
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	runAttempts    *prometheus.HistogramVec
	stageDuration  *prometheus.HistogramVec
	validations    *prometheus.CounterVec
	providerErrors *prometheus.CounterVec
	videoPolls     *prometheus.HistogramVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器，指标注册到默认 Registry
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the per-key rate limiter",
		},
		[]string{"tier", "window"},
	)

	// 工作流指标
	c.runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_runs_total",
			Help:      "Completed generation runs by kind and terminal state",
		},
		[]string{"kind", "state"},
	)

	c.runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_run_duration_seconds",
			Help:      "End-to-end generation run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 900},
		},
		[]string{"kind"},
	)

	c.runAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_attempts",
			Help:      "Generation attempts used per run",
			Buckets:   []float64{1, 2, 3},
		},
		[]string{"kind"},
	)

	c.stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_stage_duration_seconds",
			Help:      "Duration of extract, generate and validate stages",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage", "kind", "outcome"},
	)

	c.validations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Validation verdicts by status",
		},
		[]string{"kind", "status"},
	)

	c.providerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider failures by error code",
		},
		[]string{"stage", "code"},
	)

	c.videoPolls = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "video_job_polls",
			Help:      "Status polls needed per video job",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)

	// 数据库指标
	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordRateLimited 记录限流拒绝；window 为 minute 或 hour
func (c *Collector) RecordRateLimited(tier, window string) {
	c.rateLimitRejections.WithLabelValues(tier, window).Inc()
}

// =============================================================================
// 🎨 工作流指标记录
// =============================================================================

// RunFinished 记录一次运行的终态
func (c *Collector) RunFinished(kind, state string, attempts int, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	c.runsTotal.WithLabelValues(kind, state).Inc()
	c.runDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if attempts > 0 {
		c.runAttempts.WithLabelValues(kind).Observe(float64(attempts))
	}
}

// StageFinished 记录单个阶段耗时；失败时 code 为错误码
func (c *Collector) StageFinished(stage, kind, outcome, code string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	c.stageDuration.WithLabelValues(stage, kind, outcome).Observe(duration.Seconds())
	if code != "" {
		c.providerErrors.WithLabelValues(stage, code).Inc()
	}
}

// ValidationRecorded 记录校验结果
func (c *Collector) ValidationRecorded(kind, status string) {
	c.validations.WithLabelValues(kind, status).Inc()
}

// VideoPolled 记录视频任务完成所需轮询次数
func (c *Collector) VideoPolled(provider string, polls int) {
	c.videoPolls.WithLabelValues(provider).Observe(float64(polls))
}

// =============================================================================
// 🗄️ 数据库指标记录
// =============================================================================

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
