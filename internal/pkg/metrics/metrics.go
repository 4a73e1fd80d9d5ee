package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 管線相關的 Prometheus 指標
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	generationSeconds  *prometheus.HistogramVec
	generationAttempts *prometheus.CounterVec
	restrictionWarns   prometheus.Counter
	historyRecords     prometheus.Counter
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New 建立獨立的 registry，避免測試之間互相干擾
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_requests_total",
			Help: "Pipeline invocations by input modality and outcome code",
		}, []string{"modality", "outcome"}),
		generationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intake_generation_seconds",
			Help:    "Latency of upstream generation calls",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"provider"}),
		generationAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_generation_attempts_total",
			Help: "Upstream generation attempts by kind (first, retry, strict)",
		}, []string{"kind"}),
		restrictionWarns: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_restriction_warnings_total",
			Help: "Warnings added by the local safety annotator",
		}),
		historyRecords: f.NewCounter(prometheus.CounterOpts{
			Name: "intake_history_records_total",
			Help: "History entries recorded",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Registry 回傳底層 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 端點
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest 記錄一次管線結果；outcome 為 "ok" 或錯誤代碼
func (m *Metrics) ObserveRequest(modality, outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(modality, outcome).Inc()
}

// ObserveGeneration 記錄一次上游生成耗時
func (m *Metrics) ObserveGeneration(provider, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.generationSeconds.WithLabelValues(provider).Observe(d.Seconds())
	m.generationAttempts.WithLabelValues(kind).Inc()
}

// AddWarnings 累加安全警告數
func (m *Metrics) AddWarnings(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.restrictionWarns.Add(float64(n))
}

// IncHistory 記錄一次歷史寫入
func (m *Metrics) IncHistory() {
	if m == nil {
		return
	}
	m.historyRecords.Inc()
}

// ObserveHTTP 記錄一次 HTTP 請求
func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
