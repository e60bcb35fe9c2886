// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	assetReads          *prometheus.CounterVec
	assetReadDuration   *prometheus.HistogramVec
	fanoutSize          *prometheus.HistogramVec
	itemFetches         *prometheus.CounterVec
	itemCacheHits       prometheus.Counter
	tileCache           *prometheus.CounterVec
	itemsRegistered     prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "stac_tiler"
	}

	return &Collector{
		assetReads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "asset_reads_total",
				Help:      "Total number of per-asset raster reads",
			},
			[]string{"operation", "status"},
		),

		assetReadDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "asset_read_duration_seconds",
				Help:      "Per-asset raster read duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		fanoutSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fanout_assets",
				Help:      "Number of assets read per merged operation",
				Buckets:   []float64{1, 2, 3, 4, 6, 8, 12, 16, 24},
			},
			[]string{"operation"},
		),

		itemFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "item_fetches_total",
				Help:      "Total number of item document fetches",
			},
			[]string{"scheme", "status"},
		),

		itemCacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "item_cache_hits_total",
				Help:      "Total number of item fetch cache hits",
			},
		),

		tileCache: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tile_cache_total",
				Help:      "Tile cache lookups by outcome",
			},
			[]string{"outcome"},
		),

		itemsRegistered: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "items_registered",
				Help:      "Number of registered items",
			},
		),

		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// IncAssetReads increments the per-asset read counter.
func (c *Collector) IncAssetReads(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.assetReads.WithLabelValues(operation, status).Inc()
}

// ObserveAssetReadDuration records one asset read duration.
func (c *Collector) ObserveAssetReadDuration(operation string, duration time.Duration) {
	c.assetReadDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveFanoutSize records how many assets a merged operation touched.
func (c *Collector) ObserveFanoutSize(operation string, assets int) {
	c.fanoutSize.WithLabelValues(operation).Observe(float64(assets))
}

// IncItemFetches increments the item fetch counter.
func (c *Collector) IncItemFetches(scheme string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.itemFetches.WithLabelValues(scheme, status).Inc()
}

// IncItemCacheHits increments the item cache hit counter.
func (c *Collector) IncItemCacheHits() {
	c.itemCacheHits.Inc()
}

// IncTileCache counts a tile cache lookup ("hit" or "miss").
func (c *Collector) IncTileCache(outcome string) {
	c.tileCache.WithLabelValues(outcome).Inc()
}

// SetItemsRegistered sets the registered item gauge.
func (c *Collector) SetItemsRegistered(count int) {
	c.itemsRegistered.Set(float64(count))
}

// IncHTTPRequests increments the HTTP request counter.
func (c *Collector) IncHTTPRequests(method, path, status string) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveHTTPDuration records HTTP request duration.
func (c *Collector) ObserveHTTPDuration(method, path string, duration time.Duration) {
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns HTTP middleware for metrics collection.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		path := normalizePath(r.URL.Path)
		status := statusToString(wrapped.statusCode)

		c.IncHTTPRequests(r.Method, path, status)
		c.ObserveHTTPDuration(r.Method, path, duration)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes the URL path for metrics.
func normalizePath(path string) string {
	// Replace dynamic segments with placeholders
	// This prevents high cardinality metrics
	switch {
	case len(path) > 20:
		return path[:20] + "..."
	default:
		return path
	}
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
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
