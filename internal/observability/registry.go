package observability

import "time"

// MetricsRegistry provides an interface for recording application metrics.
// Components take the interface instead of touching the global Prometheus
// collectors so tests can inject the no-op implementation.
type MetricsRegistry interface {
	// HTTP request metrics
	IncrementRequests(endpoint, method, status string)
	RecordRequestLatency(endpoint, method string, duration time.Duration)

	// Auction metrics
	IncrementAuctions(outcome string)
	RecordAuctionDuration(duration time.Duration)
	RecordWinPrice(price float64)

	// Adapter metrics
	IncrementAdapterBids(platform, result string)
	RecordAdapterBidDuration(platform string, duration time.Duration)
	IncrementWinNotifications(platform, result string)

	// Cache metrics
	IncrementCacheLookups(result string)

	// Event metrics
	IncrementEvent(eventType string)
	IncrementEventSinkErrors(sink string)
}

// PrometheusRegistry implements MetricsRegistry using the global Prometheus collectors.
type PrometheusRegistry struct{}

// NewPrometheusRegistry creates a new PrometheusRegistry.
func NewPrometheusRegistry() *PrometheusRegistry {
	return &PrometheusRegistry{}
}

func (r *PrometheusRegistry) IncrementRequests(endpoint, method, status string) {
	RequestCount.WithLabelValues(endpoint, method, status).Inc()
}

func (r *PrometheusRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
	RequestLatency.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementAuctions(outcome string) {
	AuctionCount.WithLabelValues(outcome).Inc()
}

func (r *PrometheusRegistry) RecordAuctionDuration(duration time.Duration) {
	AuctionDuration.Observe(duration.Seconds())
}

func (r *PrometheusRegistry) RecordWinPrice(price float64) {
	WinPrice.Observe(price)
}

func (r *PrometheusRegistry) IncrementAdapterBids(platform, result string) {
	AdapterBidCount.WithLabelValues(platform, result).Inc()
}

func (r *PrometheusRegistry) RecordAdapterBidDuration(platform string, duration time.Duration) {
	AdapterBidDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

func (r *PrometheusRegistry) IncrementWinNotifications(platform, result string) {
	WinNotifyCount.WithLabelValues(platform, result).Inc()
}

func (r *PrometheusRegistry) IncrementCacheLookups(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

func (r *PrometheusRegistry) IncrementEvent(eventType string) {
	EventCount.WithLabelValues(eventType).Inc()
}

func (r *PrometheusRegistry) IncrementEventSinkErrors(sink string) {
	EventSinkErrors.WithLabelValues(sink).Inc()
}

// NoOpRegistry implements MetricsRegistry with no-op methods for testing.
type NoOpRegistry struct{}

// NewNoOpRegistry creates a new NoOpRegistry.
func NewNoOpRegistry() *NoOpRegistry {
	return &NoOpRegistry{}
}

func (r *NoOpRegistry) IncrementRequests(endpoint, method, status string)                    {}
func (r *NoOpRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {}
func (r *NoOpRegistry) IncrementAuctions(outcome string)                                     {}
func (r *NoOpRegistry) RecordAuctionDuration(duration time.Duration)                         {}
func (r *NoOpRegistry) RecordWinPrice(price float64)                                         {}
func (r *NoOpRegistry) IncrementAdapterBids(platform, result string)                         {}
func (r *NoOpRegistry) RecordAdapterBidDuration(platform string, duration time.Duration)     {}
func (r *NoOpRegistry) IncrementWinNotifications(platform, result string)                    {}
func (r *NoOpRegistry) IncrementCacheLookups(result string)                                  {}
func (r *NoOpRegistry) IncrementEvent(eventType string)                                      {}
func (r *NoOpRegistry) IncrementEventSinkErrors(sink string)                                 {}
