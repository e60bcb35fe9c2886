package application

import (
	"context"

	"github.com/developmentseed/stac-tiler/internal/ports/input"
)

// HealthService provides health check functionality.
type HealthService struct {
	registry *ItemRegistry
}

// NewHealthService creates a new health service.
func NewHealthService(registry *ItemRegistry) *HealthService {
	return &HealthService{
		registry: registry,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(ctx context.Context) bool {
	return true // Basic health check
}

// IsReady returns true if the service is ready to accept requests.
// Ready when at least one item loaded, or when none are configured.
func (s *HealthService) IsReady(ctx context.Context) bool {
	loaded, _ := s.registry.LoadedCounts()
	if loaded > 0 {
		return true
	}
	return s.registry.Count() == 0
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	loaded, failed := s.registry.LoadedCounts()

	components := map[string]string{
		"registry": "ok",
	}
	if failed > 0 {
		components["registry"] = "degraded"
	}

	return input.HealthDetails{
		Healthy:     s.IsHealthy(ctx),
		Ready:       s.IsReady(ctx),
		ItemsLoaded: loaded,
		ItemsFailed: failed,
		Components:  components,
	}
}
