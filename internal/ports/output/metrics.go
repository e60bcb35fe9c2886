package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncAssetReads increments the per-asset read counter.
	IncAssetReads(operation string, success bool)

	// ObserveAssetReadDuration records one asset read's duration.
	ObserveAssetReadDuration(operation string, duration time.Duration)

	// ObserveFanoutSize records the number of assets in a fan-out.
	ObserveFanoutSize(operation string, assets int)

	// IncItemFetches increments the item fetch counter.
	IncItemFetches(scheme string, success bool)

	// IncItemCacheHits increments the fetch cache hit counter.
	IncItemCacheHits()

	// IncTileCache increments tile cache lookups by outcome (hit/miss).
	IncTileCache(outcome string)

	// SetItemsRegistered sets the number of registered items.
	SetItemsRegistered(count int)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncAssetReads implements MetricsCollector.
func (n *NoOpMetrics) IncAssetReads(_ string, _ bool) {}

// ObserveAssetReadDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveAssetReadDuration(_ string, _ time.Duration) {}

// ObserveFanoutSize implements MetricsCollector.
func (n *NoOpMetrics) ObserveFanoutSize(_ string, _ int) {}

// IncItemFetches implements MetricsCollector.
func (n *NoOpMetrics) IncItemFetches(_ string, _ bool) {}

// IncItemCacheHits implements MetricsCollector.
func (n *NoOpMetrics) IncItemCacheHits() {}

// IncTileCache implements MetricsCollector.
func (n *NoOpMetrics) IncTileCache(_ string) {}

// SetItemsRegistered implements MetricsCollector.
func (n *NoOpMetrics) SetItemsRegistered(_ int) {}
