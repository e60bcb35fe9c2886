// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/developmentseed/stac-tiler/internal/domain"
)

// ItemRegistry defines the primary port for pre-registered item
// management.
type ItemRegistry interface {
	// ListItems returns all registered items.
	ListItems(ctx context.Context) []RegisteredItem

	// GetItem returns a registered item's parsed document by id.
	GetItem(ctx context.Context, id string) (*domain.Item, error)

	// Location returns the source location of a registered item.
	Location(id string) (string, bool)
}

// RegisteredItem describes one entry in the registry.
type RegisteredItem struct {
	ID       string // Registry identifier from configuration
	Location string // Source location (path, URL, s3://, az://)
	Loaded   bool   // Document fetched and parsed successfully
	Error    string // Last load error, empty when Loaded
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy     bool              // Overall health status
	Ready       bool              // Ready to accept requests
	ItemsLoaded int               // Number of loaded registry items
	ItemsFailed int               // Number of registry items that failed to load
	Components  map[string]string // Component statuses
}
