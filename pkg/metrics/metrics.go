// Package metrics 提供 Prometheus helper，包含投递管线各阶段的 counter/histogram
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 队列消息消费计数
	JobsConsumedTotal prometheus.Counter
	// 解码失败丢弃计数
	JobsDroppedTotal prometheus.Counter
	// 投递成功计数（含 partial）
	JobsDeliveredTotal *prometheus.CounterVec
	// 策略抑制计数，按抑制原因区分，保证静默丢弃对运维可见
	JobsSuppressedTotal *prometheus.CounterVec
	// 投递失败计数，按是否可重试区分
	JobsFailedTotal *prometheus.CounterVec
	// 投递耗时
	DispatchDuration prometheus.Histogram
	// 失效推送令牌清理计数
	TokensPrunedTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "notifyhub",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		JobsConsumedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Subsystem: serviceName,
			Name:      "jobs_consumed_total",
			Help:      "Total notification jobs consumed from the queue",
		}),
		JobsDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Subsystem: serviceName,
			Name:      "jobs_dropped_total",
			Help:      "Total jobs dropped because the payload could not be decoded",
		}),
		JobsDeliveredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Subsystem: serviceName,
			Name:      "jobs_delivered_total",
			Help:      "Total jobs delivered, by final status (sent/partial)",
		}, []string{"status"}),
		JobsSuppressedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Subsystem: serviceName,
			Name:      "jobs_suppressed_total",
			Help:      "Total jobs suppressed by delivery policy, by reason code",
		}, []string{"reason"}),
		JobsFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Subsystem: serviceName,
			Name:      "jobs_failed_total",
			Help:      "Total jobs that failed processing, by retry class",
		}, []string{"retryable"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "notifyhub",
			Subsystem: serviceName,
			Name:      "dispatch_duration_seconds",
			Help:      "Provider dispatch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		TokensPrunedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Subsystem: serviceName,
			Name:      "tokens_pruned_total",
			Help:      "Total invalid push tokens scheduled for removal",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.JobsConsumedTotal,
		m.JobsDroppedTotal,
		m.JobsDeliveredTotal,
		m.JobsSuppressedTotal,
		m.JobsFailedTotal,
		m.DispatchDuration,
		m.TokensPrunedTotal,
	)

	return m
}

// Handler 返回 Prometheus 指标的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
