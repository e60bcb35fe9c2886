package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/developmentseed/stac-tiler/internal/domain"
)

// HTTPSource reads item documents over HTTP(S).
type HTTPSource struct {
	client   *http.Client
	username string
	password string
}

// HTTPConfig holds HTTP source configuration.
type HTTPConfig struct {
	Timeout  time.Duration
	Username string
	Password string
}

// NewHTTPSource creates a new HTTP source.
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &HTTPSource{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		username: cfg.Username,
		password: cfg.Password,
	}
}

// Read downloads the document at the given URL.
func (s *HTTPSource) Read(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}

	if s.username != "" && s.password != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", location, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: HTTP 404 for %s", domain.ErrNotFound, location)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, location)
	}

	return io.ReadAll(resp.Body)
}
