// Package geo resolves location names to coordinates.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agrisage/agrisage/internal/cache"
	"github.com/agrisage/agrisage/internal/models"
)

// Place is a resolved location.
type Place struct {
	Name   string
	Coords models.Coordinates
	State  string
}

// GeocodeError reports a failed location resolution. It is the only error
// the weather service propagates to callers; provider failures degrade
// instead.
type GeocodeError struct {
	Location string
	Status   string
	Err      error
}

func (e *GeocodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geocoding %q failed: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("geocoding %q failed: %s", e.Location, e.Status)
}

func (e *GeocodeError) Unwrap() error { return e.Err }

// Geocoder resolves a free-text location to a Place.
type Geocoder interface {
	Geocode(ctx context.Context, location string) (*Place, error)
}

// GoogleGeocoder resolves locations via the Google Geocoding API with a
// TTL cache in front. Without an API key it falls back to the static table.
type GoogleGeocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cache   *cache.TTL[*Place]
	logger  *zap.Logger
}

// Option configures a GoogleGeocoder.
type Option func(*GoogleGeocoder)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *GoogleGeocoder) { g.logger = logger }
}

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(u string) Option {
	return func(g *GoogleGeocoder) { g.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *GoogleGeocoder) { g.client = c }
}

// NewGoogleGeocoder creates a geocoder with the given cache TTL.
func NewGoogleGeocoder(apiKey string, ttl time.Duration, opts ...Option) *GoogleGeocoder {
	g := &GoogleGeocoder{
		apiKey:  apiKey,
		baseURL: "https://maps.googleapis.com/maps/api/geocode/json",
		client:  &http.Client{Timeout: 20 * time.Second},
		cache:   cache.NewTTL[*Place](ttl),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// Geocode resolves location, consulting the cache first. Cache hits are
// keyed by the lowercased, trimmed location string.
func (g *GoogleGeocoder) Geocode(ctx context.Context, location string) (*Place, error) {
	key := strings.ToLower(strings.TrimSpace(location))
	if key == "" {
		return nil, &GeocodeError{Location: location, Status: "empty location"}
	}
	if p, ok := g.cache.Get(key); ok {
		g.logger.Debug("geocode cache hit", zap.String("location", key))
		return p, nil
	}

	if g.apiKey == "" {
		p, ok := lookupStatic(key)
		if !ok {
			return nil, &GeocodeError{Location: location, Status: "no API key and location not in static table"}
		}
		g.cache.Set(key, p)
		return p, nil
	}

	q := url.Values{"address": {location}, "key": {g.apiKey}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &GeocodeError{Location: location, Err: err}
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &GeocodeError{Location: location, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &GeocodeError{Location: location, Status: resp.Status}
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &GeocodeError{Location: location, Err: err}
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		return nil, &GeocodeError{Location: location, Status: body.Status}
	}

	res := body.Results[0]
	place := &Place{
		Name:   location,
		Coords: models.Coordinates{Lat: res.Geometry.Location.Lat, Lon: res.Geometry.Location.Lng},
	}
	for _, c := range res.AddressComponents {
		for _, t := range c.Types {
			if t == "administrative_area_level_1" {
				place.State = c.LongName
			}
		}
	}

	g.cache.Set(key, place)
	g.logger.Info("geocoded location",
		zap.String("location", key),
		zap.Float64("lat", place.Coords.Lat),
		zap.Float64("lon", place.Coords.Lon))
	return place, nil
}
