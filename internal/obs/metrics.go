package obs

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics groups Prometheus collectors for HTTP observability.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers and returns HTTP metrics collectors.
func NewHTTPMetrics(namespace string, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	m.ReqTotal = registerOrReuse(reg, m.ReqTotal).(*prometheus.CounterVec)
	m.ReqDur = registerOrReuse(reg, m.ReqDur).(*prometheus.HistogramVec)
	m.InFlight = registerOrReuse(reg, m.InFlight).(prometheus.Gauge)
	return m
}

// ShopMetrics groups Prometheus collectors for storefront activity.
type ShopMetrics struct {
	OrdersCreated        *prometheus.CounterVec
	OrderStatusChanges   *prometheus.CounterVec
	CustomRequestsTotal  prometheus.Counter
	CartOperationsTotal  *prometheus.CounterVec
	NotificationAttempts *prometheus.CounterVec
	RateLimitRejections  *prometheus.CounterVec
}

// NewShopMetrics registers and returns storefront metrics collectors.
func NewShopMetrics(namespace string, reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &ShopMetrics{
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders accepted at checkout, labelled by order type.",
		}, []string{"order_type"}),
		OrderStatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_changes_total",
			Help:      "Order status transitions applied by the back office.",
		}, []string{"to_status"}),
		CustomRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "custom_requests_total",
			Help:      "Custom design requests submitted by visitors.",
		}),
		CartOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_operations_total",
			Help:      "Cart mutations, labelled by operation.",
		}, []string{"op"}),
		NotificationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_attempts_total",
			Help:      "Outbound notification deliveries, labelled by channel and outcome.",
		}, []string{"channel", "outcome"}),
		RateLimitRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Requests rejected by the rate limiter, labelled by scope.",
		}, []string{"scope"}),
	}
	m.OrdersCreated = registerOrReuse(reg, m.OrdersCreated).(*prometheus.CounterVec)
	m.OrderStatusChanges = registerOrReuse(reg, m.OrderStatusChanges).(*prometheus.CounterVec)
	m.CustomRequestsTotal = registerOrReuse(reg, m.CustomRequestsTotal).(prometheus.Counter)
	m.CartOperationsTotal = registerOrReuse(reg, m.CartOperationsTotal).(*prometheus.CounterVec)
	m.NotificationAttempts = registerOrReuse(reg, m.NotificationAttempts).(*prometheus.CounterVec)
	m.RateLimitRejections = registerOrReuse(reg, m.RateLimitRejections).(*prometheus.CounterVec)
	return m
}

// registerOrReuse registers the collector, returning the previously registered
// instance when one with the same descriptor already exists.
func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
	return c
}
