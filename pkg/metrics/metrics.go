// Package metrics Prometheus 指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 应用指标集合；nil 接收者上的记录方法为空操作
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	booked         prometheus.Counter
	swept          prometheus.Counter
	statusChanges  *prometheus.CounterVec
	realtimeEvents *prometheus.CounterVec
	streams        prometheus.Gauge
}

// New 创建独立 Registry 并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appointment_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		booked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointment_booked_total",
			Help: "Appointments created by students.",
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointment_auto_cancelled_total",
			Help: "Past pending appointments cancelled by the sweeper.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_status_changes_total",
			Help: "Staff status changes by target status.",
		}, []string{"status"}),
		realtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "appointment_realtime_events_total",
			Help: "Change events published by table and type.",
		}, []string{"table", "type"}),
		streams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "appointment_realtime_streams",
			Help: "Open realtime event streams.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.booked, m.swept,
		m.statusChanges, m.realtimeEvents, m.streams,
	)
	return m
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry 供测试读取
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP 记录一次请求
func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}

// IncBooked 新增预约
func (m *Metrics) IncBooked() {
	if m == nil {
		return
	}
	m.booked.Inc()
}

// AddSwept 自动取消的预约数
func (m *Metrics) AddSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}

// IncStatusChange 员工修改状态
func (m *Metrics) IncStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// IncEvent 发布变更事件
func (m *Metrics) IncEvent(table, typ string) {
	if m == nil {
		return
	}
	m.realtimeEvents.WithLabelValues(table, typ).Inc()
}

// StreamOpened 打开事件流
func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.streams.Inc()
}

// StreamClosed 关闭事件流
func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.streams.Dec()
}
