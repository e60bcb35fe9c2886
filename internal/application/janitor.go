package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/developmentseed/stac-tiler/internal/ports/output"
)

// ErrRateLimited is returned when the prune API rate limit is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// PruneResult contains the result of a tile cache prune.
type PruneResult struct {
	TilesRemoved    int64     `json:"tiles_removed"`
	PrunedAt        time.Time `json:"pruned_at"`
	NextScheduledAt time.Time `json:"next_scheduled_at,omitempty"`
}

// CacheJanitor removes expired tiles from the tile cache on a schedule.
type CacheJanitor struct {
	cache    output.TileCache
	interval time.Duration
	logger   *slog.Logger

	// Lifecycle management
	stopCh chan struct{}
	wg     sync.WaitGroup

	// Rate limiting for API triggers
	lastAPIPrune time.Time
	apiMutex     sync.Mutex

	// Prevents concurrent prune operations
	pruneOpMutex sync.Mutex

	// Track next scheduled prune for reporting
	nextPrune time.Time
	pruneMu   sync.RWMutex
}

// NewCacheJanitor creates a new cache janitor.
func NewCacheJanitor(cache output.TileCache, interval time.Duration, logger *slog.Logger) *CacheJanitor {
	return &CacheJanitor{
		cache:    cache,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		// Initialize to past time to allow immediate first API call
		lastAPIPrune: time.Now().Add(-31 * time.Second),
	}
}

// Start begins the periodic prune scheduler.
func (j *CacheJanitor) Start(ctx context.Context) {
	j.logger.Info("starting cache janitor", "interval", j.interval)

	j.wg.Add(1)
	go j.run(ctx)
}

// run is the main prune loop.
func (j *CacheJanitor) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.setNextPrune(time.Now().Add(j.interval))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cache janitor stopped: context canceled")
			return
		case <-j.stopCh:
			j.logger.Info("cache janitor stopped")
			return
		case <-ticker.C:
			j.logger.Debug("scheduled prune triggered")
			j.doPrune(ctx)
			j.setNextPrune(time.Now().Add(j.interval))
		}
	}
}

// Stop gracefully stops the janitor.
func (j *CacheJanitor) Stop() {
	j.logger.Info("stopping cache janitor")
	close(j.stopCh)
	j.wg.Wait()
}

// TriggerPrune manually triggers a prune with rate limiting.
// Returns ErrRateLimited if called more than 2 times per minute.
func (j *CacheJanitor) TriggerPrune(ctx context.Context) (PruneResult, error) {
	j.apiMutex.Lock()
	defer j.apiMutex.Unlock()

	// Rate limit: 30 seconds cooldown (allows ~2 requests per minute)
	if time.Since(j.lastAPIPrune) < 30*time.Second {
		return PruneResult{}, ErrRateLimited
	}
	j.lastAPIPrune = time.Now()

	return j.doPruneWithResult(ctx)
}

// doPrune performs the prune without returning detailed results.
func (j *CacheJanitor) doPrune(ctx context.Context) {
	j.pruneOpMutex.Lock()
	defer j.pruneOpMutex.Unlock()

	removed, err := j.cache.Prune(ctx)
	if err != nil {
		j.logger.Error("prune failed", "error", err)
		return
	}
	j.logger.Info("prune completed", "removed", removed)
}

// doPruneWithResult performs the prune and returns detailed results.
func (j *CacheJanitor) doPruneWithResult(ctx context.Context) (PruneResult, error) {
	j.pruneOpMutex.Lock()
	defer j.pruneOpMutex.Unlock()

	removed, err := j.cache.Prune(ctx)
	if err != nil {
		return PruneResult{}, err
	}

	return PruneResult{
		TilesRemoved:    removed,
		PrunedAt:        time.Now(),
		NextScheduledAt: j.getNextPrune(),
	}, nil
}

func (j *CacheJanitor) setNextPrune(t time.Time) {
	j.pruneMu.Lock()
	defer j.pruneMu.Unlock()
	j.nextPrune = t
}

func (j *CacheJanitor) getNextPrune() time.Time {
	j.pruneMu.RLock()
	defer j.pruneMu.RUnlock()
	return j.nextPrune
}

// Interval returns the prune interval.
func (j *CacheJanitor) Interval() time.Duration {
	return j.interval
}
