package place

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/havenstay/haven-go/internal/httpx"
)

// flightKey identifies the collection fetch in the single-flight group.
const flightKey = "places"

// Config holds place service configuration.
type Config struct {
	BaseURL string // API base, e.g. http://localhost:5000
	Client  *httpx.Client
	Logger  *slog.Logger
}

// Service provides enriched listing data while minimizing redundant network
// calls. The collection cache and the single in-flight collection fetch are
// guarded for concurrent use.
type Service struct {
	client  *httpx.Client
	baseURL string
	log     *slog.Logger

	mu     sync.RWMutex
	cache  []Place // nil until the first successful collection fetch
	flight singleflight.Group
}

// NewService creates a place service. Client is required; Logger defaults to
// the process logger.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		client:  cfg.Client,
		baseURL: cfg.BaseURL,
		log:     cfg.Logger,
	}
}

// Places returns the enriched listing collection. The cached collection is
// returned unless force is set; otherwise concurrent callers share a single
// network fetch. On failure any stale cache is left untouched and the error
// propagates to every waiting caller.
func (s *Service) Places(ctx context.Context, force bool) ([]Place, error) {
	if !force {
		s.mu.RLock()
		if s.cache != nil {
			out := make([]Place, len(s.cache))
			copy(out, s.cache)
			s.mu.RUnlock()
			return out, nil
		}
		s.mu.RUnlock()
	}

	v, err, _ := s.flight.Do(flightKey, func() (any, error) {
		var records []apiPlace
		if err := s.client.JSON(ctx, http.MethodGet, s.baseURL+"/api/v1/places/", nil, &records); err != nil {
			return nil, fmt.Errorf("fetch places: %w", err)
		}
		places := make([]Place, 0, len(records))
		for _, r := range records {
			places = append(places, enrich(r))
		}
		s.mu.Lock()
		s.cache = places
		s.mu.Unlock()
		s.log.Debug("places cache refreshed", "count", len(places))
		return places, nil
	})
	if err != nil {
		return nil, err
	}

	cached := v.([]Place)
	out := make([]Place, len(cached))
	copy(out, cached)
	return out, nil
}

// PlaceByID returns one enriched listing. An empty id and a 404 response
// both yield (nil, nil): "no such place" is not an error. A cached entry is
// returned without a network call unless force is set. A fresh record merges
// into the cached collection, replacing any entry with the same id.
func (s *Service) PlaceByID(ctx context.Context, id string, force bool) (*Place, error) {
	if id == "" {
		return nil, nil
	}

	if !force {
		s.mu.RLock()
		for i := range s.cache {
			if s.cache[i].ID == id {
				p := s.cache[i]
				s.mu.RUnlock()
				return &p, nil
			}
		}
		s.mu.RUnlock()
	}

	resp, err := s.client.Do(ctx, http.MethodGet, s.baseURL+"/api/v1/places/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch place %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if err := httpx.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("fetch place %s: %w", id, err)
	}

	var record apiPlace
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode place %s: %w", id, err)
	}
	p := enrich(record)

	s.mu.Lock()
	replaced := false
	for i := range s.cache {
		if s.cache[i].ID == p.ID {
			s.cache[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.cache = append(s.cache, p)
	}
	s.mu.Unlock()

	return &p, nil
}

// ClearCache drops the cached collection and forgets any in-flight fetch,
// so the next Places call hits the network. Used on logout.
func (s *Service) ClearCache() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
	s.flight.Forget(flightKey)
}
