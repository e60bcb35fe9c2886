package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/developmentseed/stac-tiler/internal/domain"
	"github.com/developmentseed/stac-tiler/internal/ports/input"
	"github.com/developmentseed/stac-tiler/internal/ports/output"
)

// ItemRegistry manages the pre-registered item documents the service
// exposes over HTTP. Entries are configured at startup and re-fetched
// on demand or when the source file changes.
type ItemRegistry struct {
	mu      sync.RWMutex
	items   map[string]*itemEntry
	fetcher output.ItemFetcher
	metrics output.MetricsCollector
	logger  *slog.Logger
}

type itemEntry struct {
	Location string
	Item     *domain.Item
	Error    error
	LoadedAt time.Time
}

// NewItemRegistry creates a new item registry.
func NewItemRegistry(
	fetcher output.ItemFetcher,
	metrics output.MetricsCollector,
	logger *slog.Logger,
) *ItemRegistry {
	return &ItemRegistry{
		items:   make(map[string]*itemEntry),
		fetcher: fetcher,
		metrics: metrics,
		logger:  logger,
	}
}

// Register adds an item location under the given id without loading it.
func (r *ItemRegistry) Register(id, location string) {
	r.mu.Lock()
	r.items[id] = &itemEntry{Location: location}
	r.mu.Unlock()

	r.updateMetrics()
}

// Load fetches and parses one registered item.
func (r *ItemRegistry) Load(ctx context.Context, id string) error {
	r.mu.RLock()
	entry, ok := r.items[id]
	r.mu.RUnlock()
	if !ok {
		return domain.ErrItemNotFound
	}

	r.logger.Info("loading item", "id", id, "location", entry.Location)

	item, err := r.fetcher.Fetch(ctx, entry.Location)

	r.mu.Lock()
	if current, still := r.items[id]; still {
		current.Item = item
		current.Error = err
		current.LoadedAt = time.Now()
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("failed to load item", "id", id, "location", entry.Location, "error", err)
		return err
	}

	r.updateMetrics()
	r.logger.Info("item loaded", "id", id, "assets", len(item.AssetNames()))
	return nil
}

// LoadAll loads every registered item. Individual failures are recorded
// on the entry and do not stop the remaining loads; they are returned
// joined so the caller can report them.
func (r *ItemRegistry) LoadAll(ctx context.Context) error {
	var errs []error
	for _, id := range r.ids() {
		if err := r.Load(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("loading %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Reload re-fetches every entry whose source matches the given
// location. Used by the filesystem watcher when an item file changes.
func (r *ItemRegistry) Reload(ctx context.Context, location string) {
	if inv, ok := r.fetcher.(output.ItemInvalidator); ok {
		inv.Invalidate(location)
	}

	for _, id := range r.ids() {
		r.mu.RLock()
		entry := r.items[id]
		match := entry != nil && entry.Location == location
		r.mu.RUnlock()

		if !match {
			continue
		}
		if err := r.Load(ctx, id); err != nil {
			r.logger.Warn("reload failed", "id", id, "location", location, "error", err)
		}
	}
}

// Remove drops a registered item.
func (r *ItemRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.items, id)
	r.mu.Unlock()

	r.updateMetrics()
}

// ListItems returns all registered items, sorted by id.
func (r *ItemRegistry) ListItems(_ context.Context) []input.RegisteredItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]input.RegisteredItem, 0, len(r.items))
	for id, entry := range r.items {
		ri := input.RegisteredItem{
			ID:       id,
			Location: entry.Location,
			Loaded:   entry.Item != nil && entry.Error == nil,
		}
		if entry.Error != nil {
			ri.Error = entry.Error.Error()
		}
		list = append(list, ri)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// GetItem returns a registered item's parsed document by id. Entries
// that never loaded successfully are fetched on first use.
func (r *ItemRegistry) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	r.mu.RLock()
	entry, ok := r.items[id]
	var item *domain.Item
	if ok {
		item = entry.Item
	}
	r.mu.RUnlock()

	if !ok {
		return nil, domain.ErrItemNotFound
	}
	if item != nil {
		return item, nil
	}

	if err := r.Load(ctx, id); err != nil {
		return nil, err
	}

	// The entry may have been removed while Load ran unlocked.
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok = r.items[id]
	if !ok || entry.Item == nil {
		return nil, domain.ErrItemNotFound
	}
	return entry.Item, nil
}

// Location returns the source location of a registered item.
func (r *ItemRegistry) Location(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.items[id]
	if !ok {
		return "", false
	}
	return entry.Location, true
}

// Count returns the number of registered items.
func (r *ItemRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// LoadedCounts returns how many entries loaded and how many failed.
func (r *ItemRegistry) LoadedCounts() (loaded, failed int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.items {
		switch {
		case entry.Error != nil:
			failed++
		case entry.Item != nil:
			loaded++
		}
	}
	return loaded, failed
}

func (r *ItemRegistry) ids() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *ItemRegistry) updateMetrics() {
	r.mu.RLock()
	total := len(r.items)
	r.mu.RUnlock()

	r.metrics.SetItemsRegistered(total)
}
