// internal/metrics/prometheus.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iconsmd_http_requests_total",
			Help: "Total inbound HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iconsmd_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iconsmd_cache_lookups_total",
			Help: "Icon cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iconsmd_cache_entries",
			Help: "Number of icon sources held in the cache, including stale ones",
		},
	)

	CacheSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "iconsmd_cache_swept_total",
			Help: "Stale cache entries removed by the sweeper",
		},
	)

	UpstreamFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iconsmd_upstream_fetches_total",
			Help: "Requests made to the icon repository",
		},
		[]string{"kind", "status"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iconsmd_upstream_fetch_duration_seconds",
			Help:    "Time spent fetching from the icon repository",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	IconsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iconsmd_icons_skipped_total",
			Help: "Requested icons left out of a composite",
		},
		[]string{"reason"},
	)

	IndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iconsmd_index_size",
			Help: "Number of icon names in the index",
		},
	)

	CompositionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iconsmd_composition_duration_seconds",
			Help:    "Time spent building a composite image",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "iconsmd_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

// Skip reasons.
const (
	ReasonFetch     = "fetch"
	ReasonMalformed = "malformed"
)

// Sizer reports how many items a component holds.
type Sizer interface {
	Len() int
}

// Collector records domain events. A nil *Collector records nothing, so
// components can run without metrics.
type Collector struct {
	index Sizer
	cache Sizer
}

func NewCollector(index, cache Sizer) *Collector {
	return &Collector{index: index, cache: cache}
}

func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func (c *Collector) RecordCacheLookup(hit bool) {
	if c == nil {
		return
	}
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
	} else {
		CacheLookups.WithLabelValues("miss").Inc()
	}
}

func (c *Collector) RecordFetch(kind string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	UpstreamFetches.WithLabelValues(kind, getStatusLabel(err)).Inc()
	UpstreamDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (c *Collector) RecordSkipped(reason string) {
	if c == nil {
		return
	}
	IconsSkipped.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordSweep(removed int) {
	if c == nil {
		return
	}
	CacheSwept.Add(float64(removed))
	c.UpdateSystemMetrics()
}

func (c *Collector) RecordComposition(format string, duration time.Duration) {
	if c == nil {
		return
	}
	CompositionDuration.WithLabelValues(format).Observe(duration.Seconds())
}

func (c *Collector) RecordWebSocketConnection(delta int) {
	if c == nil {
		return
	}
	WebSocketConnections.Add(float64(delta))
}

// UpdateSystemMetrics refreshes the size gauges.
func (c *Collector) UpdateSystemMetrics() {
	if c == nil {
		return
	}
	if c.index != nil {
		IndexSize.Set(float64(c.index.Len()))
	}
	if c.cache != nil {
		CacheEntries.Set(float64(c.cache.Len()))
	}
}

func getStatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
