package fetch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/developmentseed/stac-tiler/internal/domain"
)

// LocalSource reads item documents from the local filesystem.
type LocalSource struct{}

// Read returns the file contents. A file:// prefix is accepted and
// stripped.
func (s *LocalSource) Read(_ context.Context, location string) ([]byte, error) {
	path := strings.TrimPrefix(location, "file://")

	raw, err := os.ReadFile(path) //#nosec G304 -- path comes from operator configuration
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, err
	}
	return raw, nil
}
