package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total API requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediation_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// auction rounds by outcome (win, no_fill, error)
	AuctionCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_auctions_total",
			Help: "Total auction rounds by outcome",
		},
		[]string{"outcome"},
	)

	// end-to-end auction round duration
	AuctionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediation_auction_duration_seconds",
			Help:    "Duration of complete auction rounds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// per-platform adapter bid calls by result (bid, no_bid, error, timeout)
	AdapterBidCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_adapter_bids_total",
			Help: "Total adapter bid calls by platform and result",
		},
		[]string{"platform", "result"},
	)

	// per-platform adapter bid latency
	AdapterBidDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediation_adapter_bid_duration_seconds",
			Help:    "Duration of adapter bid calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	// winning bid prices
	WinPrice = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediation_win_price_dollars",
			Help:    "Histogram of winning bid prices",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)

	// auction cache lookups by result (hit, miss, error)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_cache_lookups_total",
			Help: "Total auction cache lookups by result",
		},
		[]string{"result"},
	)

	// events recorded, labelled by type
	EventCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_events_total",
			Help: "Total events recorded",
		},
		[]string{"type"},
	)

	// failures writing to an event sink, labelled by sink
	EventSinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_event_sink_errors_total",
			Help: "Total event sink write failures",
		},
		[]string{"sink"},
	)

	// win notifications by result (ok, rejected, error)
	WinNotifyCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediation_win_notifications_total",
			Help: "Total win notifications by platform and result",
		},
		[]string{"platform", "result"},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		AuctionCount,
		AuctionDuration,
		AdapterBidCount,
		AdapterBidDuration,
		WinPrice,
		CacheLookups,
		EventCount,
		EventSinkErrors,
		WinNotifyCount,
	)
}
