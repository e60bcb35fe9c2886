package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/developmentseed/stac-tiler/internal/adapters/render"
	"github.com/developmentseed/stac-tiler/internal/adapters/tilecache"
	"github.com/developmentseed/stac-tiler/internal/application"
	"github.com/developmentseed/stac-tiler/internal/domain"
)

// openReader builds a per-request multi-asset reader for a registered
// item.
func (s *Server) openReader(r *http.Request) (*application.Reader, error) {
	itemID := mux.Vars(r)["itemId"]

	item, err := s.registry.GetItem(r.Context(), itemID)
	if err != nil {
		return nil, err
	}

	cfg := application.ReaderConfig{
		Item:          item,
		Concurrency:   s.readerCfg.Concurrency,
		AllAssetTypes: s.readerCfg.AllAssetTypes,
		Evaluator:     s.eval,
		Metrics:       s.metrics,
		Logger:        s.logger,
	}
	if len(s.readerCfg.IncludeTypes) > 0 {
		cfg.IncludeTypes = s.readerCfg.IncludeTypes
	}
	if len(s.readerCfg.ExcludeTypes) > 0 {
		cfg.ExcludeTypes = s.readerCfg.ExcludeTypes
	}

	return application.Open(r.Context(), "", nil, s.opener, cfg)
}

// parseReadRequest extracts the shared read parameters.
func parseReadRequest(r *http.Request) (application.ReadRequest, error) {
	q := r.URL.Query()

	req := application.ReadRequest{
		Expression:      q.Get("expression"),
		AssetExpression: q.Get("asset_expression"),
	}
	if assets := q.Get("assets"); assets != "" {
		req.Assets = strings.Split(assets, ",")
	}
	if ts := q.Get("tilesize"); ts != "" {
		v, err := strconv.Atoi(ts)
		if err != nil || v <= 0 {
			return req, errors.New("invalid tilesize parameter")
		}
		req.TileSize = v
	}
	if ms := q.Get("max_size"); ms != "" {
		v, err := strconv.Atoi(ms)
		if err != nil || v <= 0 {
			return req, errors.New("invalid max_size parameter")
		}
		req.MaxSize = v
	}
	return req, nil
}

// parseRenderOptions extracts the float-to-PNG conversion parameters.
func parseRenderOptions(r *http.Request) (render.Options, error) {
	var opts render.Options
	q := r.URL.Query()

	if rescale := q.Get("rescale"); rescale != "" {
		parts := strings.Split(rescale, ",")
		if len(parts) != 2 {
			return opts, errors.New("rescale must be min,max")
		}
		lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil || lo >= hi {
			return opts, errors.New("invalid rescale parameter")
		}
		opts.Rescale = [2]float64{lo, hi}
	}
	return opts, nil
}

// parsePercentiles extracts pmin/pmax with the usual 2/98 defaults.
func parsePercentiles(r *http.Request) (pmin, pmax float64, err error) {
	pmin, pmax = 2, 98
	q := r.URL.Query()

	if v := q.Get("pmin"); v != "" {
		if pmin, err = strconv.ParseFloat(v, 64); err != nil {
			return 0, 0, errors.New("invalid pmin parameter")
		}
	}
	if v := q.Get("pmax"); v != "" {
		if pmax, err = strconv.ParseFloat(v, 64); err != nil {
			return 0, 0, errors.New("invalid pmax parameter")
		}
	}
	if pmin < 0 || pmax > 100 || pmin >= pmax {
		return 0, 0, errors.New("percentiles must satisfy 0 <= pmin < pmax <= 100")
	}
	return pmin, pmax, nil
}

// cacheKey canonicalizes the request into a tile cache key. Encode
// sorts the query parameters, so equivalent requests hash to the same
// key.
func cacheKey(r *http.Request) string {
	return tilecache.Key(mux.Vars(r)["itemId"], r.URL.Query().Encode())
}

// handleTile renders one map tile.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	z, _ := strconv.Atoi(vars["z"])
	x, _ := strconv.Atoi(vars["x"])
	y, _ := strconv.Atoi(vars["y"])

	req, err := parseReadRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ropts, err := parseRenderOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var key string
	if s.tiles != nil {
		key = cacheKey(r)
		data, ok, cerr := s.tiles.Get(r.Context(), key, z, x, y)
		if cerr != nil {
			s.logger.Warn("tile cache get failed", "error", cerr)
		}
		if ok {
			s.metrics.IncTileCache("hit")
			s.writePNG(w, data)
			return
		}
		s.metrics.IncTileCache("miss")
	}

	rdr, err := s.openReader(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer func() { _ = rdr.Close() }()

	if z < rdr.MinZoom() || z > rdr.MaxZoom() {
		s.writeError(w, http.StatusBadRequest, "zoom outside the item's range")
		return
	}

	img, err := rdr.Tile(r.Context(), x, y, z, req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	data, err := render.PNG(img, ropts)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if key != "" {
		if cerr := s.tiles.Set(r.Context(), key, z, x, y, data, 0); cerr != nil {
			s.logger.Warn("tile cache set failed", "error", cerr)
		}
	}
	s.writePNG(w, data)
}

// handlePreview renders a downsampled overview.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, err := parseReadRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ropts, err := parseRenderOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rdr, err := s.openReader(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer func() { _ = rdr.Close() }()

	img, err := rdr.Preview(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	data, err := render.PNG(img, ropts)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writePNG(w, data)
}

// handleCrop renders a bounding-box window.
func (s *Server) handleCrop(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bbox, err := parseBBox(vars["minx"], vars["miny"], vars["maxx"], vars["maxy"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := parseReadRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ropts, err := parseRenderOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rdr, err := s.openReader(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer func() { _ = rdr.Close() }()

	img, err := rdr.Part(r.Context(), bbox, req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	data, err := render.PNG(img, ropts)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writePNG(w, data)
}

// handlePoint samples the item's assets at a coordinate.
func (s *Server) handlePoint(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	lon, err1 := strconv.ParseFloat(vars["lon"], 64)
	lat, err2 := strconv.ParseFloat(vars["lat"], 64)
	if err1 != nil || err2 != nil {
		s.writeError(w, http.StatusBadRequest, "invalid coordinate")
		return
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		s.writeError(w, http.StatusBadRequest, "coordinate outside WGS84 bounds")
		return
	}

	req, err := parseReadRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rdr, err := s.openReader(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer func() { _ = rdr.Close() }()

	values, err := rdr.Point(r.Context(), lon, lat, req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"coordinates": []float64{lon, lat},
		"values":      values,
	})
}

// handleStatistics returns per-asset statistics.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	pmin, pmax, err := parsePercentiles(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := parseReadRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rdr, err := s.openReader(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer func() { _ = rdr.Close() }()

	stats, err := rdr.Stats(r.Context(), pmin, pmax, req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

// handleInfo returns per-asset raster descriptions. Without an assets
// or expression parameter it covers every eligible asset.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	req, err := parseReadRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rdr, err := s.openReader(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer func() { _ = rdr.Close() }()

	if len(req.Assets) == 0 && req.Expression == "" {
		req.Assets = rdr.Assets()
	}

	info, err := rdr.Info(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

// handleMetadata returns per-asset info plus statistics.
func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	pmin, pmax, err := parsePercentiles(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := parseReadRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rdr, err := s.openReader(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer func() { _ = rdr.Close() }()

	if len(req.Assets) == 0 && req.Expression == "" {
		req.Assets = rdr.Assets()
	}

	meta, err := rdr.Metadata(r.Context(), pmin, pmax, req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, meta)
}

// handleAssets describes a registered item's eligible assets.
func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	rdr, err := s.openReader(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer func() { _ = rdr.Close() }()

	lon, lat, zoom := rdr.Center()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"item_id": rdr.Item().ID,
		"assets":  rdr.Assets(),
		"bounds":  rdr.Bounds(),
		"center":  []interface{}{lon, lat, zoom},
		"minzoom": rdr.MinZoom(),
		"maxzoom": rdr.MaxZoom(),
	})
}

// handleListItems returns all registered items.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items := s.registry.ListItems(r.Context())

	response := make([]map[string]interface{}, len(items))
	for i, item := range items {
		entry := map[string]interface{}{
			"id":       item.ID,
			"location": item.Location,
			"loaded":   item.Loaded,
		}
		if item.Error != "" {
			entry["error"] = item.Error
		}
		response[i] = entry
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": response,
		"count": len(items),
	})
}

// handlePrune triggers a tile cache prune.
func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	result, err := s.janitor.TriggerPrune(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrRateLimited) {
			w.Header().Set("Retry-After", "30")
			s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Try again in 30 seconds.")
			return
		}
		s.logger.Error("prune failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Prune failed")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":       boolToStatus(details.Healthy),
		"ready":        details.Ready,
		"items_loaded": details.ItemsLoaded,
		"items_failed": details.ItemsFailed,
		"components":   details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// parseBBox parses the four crop path segments into a bounding box.
func parseBBox(minx, miny, maxx, maxy string) (domain.Bounds, error) {
	var bbox domain.Bounds
	for i, raw := range []string{minx, miny, maxx, maxy} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return bbox, errors.New("invalid bbox coordinate")
		}
		bbox[i] = v
	}
	if bbox.West() >= bbox.East() || bbox.South() >= bbox.North() {
		return bbox, errors.New("bbox must be minx,miny,maxx,maxy with min < max")
	}
	return bbox, nil
}

// writeDomainError maps application errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var unknownAsset *domain.UnknownAssetError
	var fetchErr *domain.FetchError
	var readErr *domain.ReadError

	switch {
	case errors.As(err, &unknownAsset):
		s.writeError(w, http.StatusBadRequest, unknownAsset.Error())
	case errors.Is(err, domain.ErrNoAssets):
		s.writeError(w, http.StatusBadRequest, domain.ErrNoAssets.Error())
	case errors.Is(err, domain.ErrItemNotFound):
		s.writeError(w, http.StatusNotFound, "Item not found")
	case errors.As(err, &fetchErr):
		s.logger.Error("item fetch failed", "location", fetchErr.Location, "error", err)
		s.writeError(w, http.StatusBadGateway, "Failed to fetch item document")
	case errors.As(err, &readErr):
		s.logger.Error("asset read failed", "href", readErr.Href, "operation", readErr.Operation, "error", err)
		s.writeError(w, http.StatusBadGateway, "Failed to read asset")
	case errors.Is(err, domain.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnsupported):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Not found")
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writePNG writes a rendered tile.
func (s *Server) writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
