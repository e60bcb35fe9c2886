package application

import (
	"context"
	"testing"

	"github.com/developmentseed/stac-tiler/internal/domain"
)

func TestHealthServiceEmptyRegistryIsReady(t *testing.T) {
	registry := newTestRegistry(t, &mockFetcher{})
	service := NewHealthService(registry)
	ctx := context.Background()

	if !service.IsHealthy(ctx) {
		t.Error("IsHealthy = false, want true")
	}
	if !service.IsReady(ctx) {
		t.Error("IsReady = false, want true for empty registry")
	}
}

func TestHealthServiceNotReadyUntilLoaded(t *testing.T) {
	item := mustItem(t, testItemDoc("B01"))
	fetcher := &mockFetcher{items: map[string]*domain.Item{"/data/item.json": item}}
	registry := newTestRegistry(t, fetcher)
	service := NewHealthService(registry)
	ctx := context.Background()

	registry.Register("a", "/data/item.json")
	if service.IsReady(ctx) {
		t.Error("IsReady = true before any item loaded")
	}

	if err := registry.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if !service.IsReady(ctx) {
		t.Error("IsReady = false after load")
	}

	details := service.GetHealthDetails(ctx)
	if details.ItemsLoaded != 1 || details.ItemsFailed != 0 {
		t.Errorf("details = %+v, want 1 loaded, 0 failed", details)
	}
	if details.Components["registry"] != "ok" {
		t.Errorf("registry component = %q, want ok", details.Components["registry"])
	}
}

func TestHealthServiceDegradedOnFailures(t *testing.T) {
	registry := newTestRegistry(t, &mockFetcher{})
	service := NewHealthService(registry)
	ctx := context.Background()

	registry.Register("broken", "/data/missing.json")
	_ = registry.LoadAll(ctx)

	details := service.GetHealthDetails(ctx)
	if details.ItemsFailed != 1 {
		t.Errorf("ItemsFailed = %d, want 1", details.ItemsFailed)
	}
	if details.Components["registry"] != "degraded" {
		t.Errorf("registry component = %q, want degraded", details.Components["registry"])
	}
}
