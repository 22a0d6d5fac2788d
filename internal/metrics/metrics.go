// Package metrics 收集 Prometheus 指標並提供 /metrics。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder 給 service / middleware 用；測試可以換成 Nop
type Recorder interface {
	RecordRequest(method string, status int, d time.Duration)
	RecordAuditFailure(action string)
	RecordInquirySubmitted(category string)
	RecordRateLimited(route string)
}

type Collector struct {
	requests    *prometheus.CounterVec
	latency     prometheus.Histogram
	auditFail   *prometheus.CounterVec
	inquiries   *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_http_requests_total",
			Help: "HTTP 請求數（依方法與狀態碼）",
		}, []string{"method", "status_code"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portfolio_http_request_duration_seconds",
			Help:    "HTTP 請求處理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		auditFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_audit_write_failures_total",
			Help: "寫入失敗的管理操作紀錄數",
		}, []string{"action"}),
		inquiries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_inquiries_submitted_total",
			Help: "收到的詢問數",
		}, []string{"category"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_rate_limited_total",
			Help: "被限流拒絕的請求數",
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.auditFail,
		c.inquiries,
		c.rateLimited,
	)
	return c
}

func (c *Collector) RecordRequest(method string, status int, d time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.latency.Observe(d.Seconds())
}

func (c *Collector) RecordAuditFailure(action string) {
	c.auditFail.WithLabelValues(action).Inc()
}

func (c *Collector) RecordInquirySubmitted(category string) {
	c.inquiries.WithLabelValues(category).Inc()
}

func (c *Collector) RecordRateLimited(route string) {
	c.rateLimited.WithLabelValues(route).Inc()
}

// Handler 回傳只輸出 reg 內容的 promhttp handler
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

type nop struct{}

func (nop) RecordRequest(string, int, time.Duration) {}
func (nop) RecordAuditFailure(string)                {}
func (nop) RecordInquirySubmitted(string)            {}
func (nop) RecordRateLimited(string)                 {}

// Nop 不記錄任何東西
func Nop() Recorder { return nop{} }
