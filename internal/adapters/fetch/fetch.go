// Package fetch provides item document retrieval adapters.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/developmentseed/stac-tiler/internal/domain"
	"github.com/developmentseed/stac-tiler/internal/ports/output"
)

// DefaultCacheSize is the number of parsed item documents kept in the
// fetch cache.
const DefaultCacheSize = 512

// Source retrieves the raw bytes of an item document.
type Source interface {
	Read(ctx context.Context, location string) ([]byte, error)
}

// Config holds fetch adapter configuration.
type Config struct {
	CacheSize int           // 0: DefaultCacheSize
	Timeout   time.Duration // HTTP timeout
	Username  string        // HTTP basic auth
	Password  string
	S3        S3Config
	Azure     AzureConfig
}

// Resolver implements output.ItemFetcher. It dispatches on the location
// scheme, parses the document, and caches the result by the exact
// location string.
type Resolver struct {
	local   Source
	http    Source
	ftp     Source
	s3      Source
	azure   Source
	cache   *lru.Cache[string, *domain.Item]
	metrics output.MetricsCollector
	logger  *slog.Logger
}

// NewResolver creates a new resolver with all sources wired.
func NewResolver(cfg Config, metrics output.MetricsCollector, logger *slog.Logger) (*Resolver, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *domain.Item](size)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		local:   &LocalSource{},
		http:    NewHTTPSource(HTTPConfig{Timeout: cfg.Timeout, Username: cfg.Username, Password: cfg.Password}),
		ftp:     NewFTPSource(FTPConfig{Timeout: cfg.Timeout, Username: cfg.Username, Password: cfg.Password}),
		s3:      NewS3Source(cfg.S3),
		azure:   NewAzureSource(cfg.Azure),
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Fetch retrieves and parses the item at the given location.
func (r *Resolver) Fetch(ctx context.Context, location string) (*domain.Item, error) {
	if item, ok := r.cache.Get(location); ok {
		r.metrics.IncItemCacheHits()
		return item, nil
	}

	scheme := classify(location)
	source, err := r.source(scheme)
	if err != nil {
		return nil, &domain.FetchError{Location: location, Err: err}
	}

	raw, err := source.Read(ctx, location)
	r.metrics.IncItemFetches(scheme, err == nil)
	if err != nil {
		r.logger.Error("item fetch failed", "location", location, "scheme", scheme, "error", err)
		return nil, &domain.FetchError{Location: location, Err: err}
	}

	item, err := domain.ParseItem(raw)
	if err != nil {
		return nil, &domain.FetchError{Location: location, Err: err}
	}

	r.cache.Add(location, item)
	r.logger.Debug("item fetched", "location", location, "scheme", scheme, "assets", len(item.AssetNames()))
	return item, nil
}

// Invalidate removes a location from the fetch cache.
func (r *Resolver) Invalidate(location string) {
	r.cache.Remove(location)
}

func (r *Resolver) source(scheme string) (Source, error) {
	switch scheme {
	case "file":
		return r.local, nil
	case "http":
		return r.http, nil
	case "ftp":
		return r.ftp, nil
	case "s3":
		return r.s3, nil
	case "az":
		return r.azure, nil
	default:
		return nil, fmt.Errorf("%w: scheme %q", domain.ErrUnsupported, scheme)
	}
}

// classify maps a location string to the source scheme handling it.
// Locations without a recognized scheme are treated as local paths.
func classify(location string) string {
	switch {
	case strings.HasPrefix(location, "s3://"):
		return "s3"
	case strings.HasPrefix(location, "az://"):
		return "az"
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return "http"
	case strings.Contains(location, "://") && !strings.HasPrefix(location, "file://"):
		return strings.SplitN(location, "://", 2)[0]
	default:
		return "file"
	}
}
