package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agrisage/agrisage/internal/cache"
	"github.com/agrisage/agrisage/internal/geo"
	"github.com/agrisage/agrisage/internal/models"
)

// ServiceConfig bundles the tunables for the Service.
type ServiceConfig struct {
	SnapshotTTL      time.Duration
	SoilTTL          time.Duration
	UltraFastMaxDays int
	FastMaxDays      int
	MaxTimelineDays  int
	Workers          int
	CallTimeout      time.Duration
	DefaultHumidity  float64
	DataDir          string
}

// ApplyDefaults fills in zero values.
func (c *ServiceConfig) ApplyDefaults() {
	if c.SnapshotTTL == 0 {
		c.SnapshotTTL = 5 * time.Minute
	}
	if c.SoilTTL == 0 {
		c.SoilTTL = 30 * time.Minute
	}
	if c.UltraFastMaxDays == 0 {
		c.UltraFastMaxDays = 60
	}
	if c.FastMaxDays == 0 {
		c.FastMaxDays = 90
	}
	if c.MaxTimelineDays == 0 {
		c.MaxTimelineDays = 120
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 15 * time.Second
	}
	if c.DefaultHumidity == 0 {
		c.DefaultHumidity = 65.0
	}
}

// Service aggregates the providers into snapshots and forecast series.
// Provider failures never surface to callers; only geocoding errors do.
type Service struct {
	geocoder   geo.Geocoder
	primary    Adapter
	secondary  Adapter
	fallback   Adapter
	soil       Adapter
	aggregator *Aggregator
	est        *Estimator
	cfg        ServiceConfig
	logger     *zap.Logger

	snapshots *cache.TTL[*models.WeatherSnapshot]
	soilCache *cache.TTL[*Reading]

	mu sync.Mutex // guards the daily cache file
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates the aggregation service. primary/secondary/fallback/
// soil map to the per-field precedence chains; any of them may be a
// disabled adapter.
func NewService(
	geocoder geo.Geocoder,
	primary, secondary, fallback, soil Adapter,
	cfg ServiceConfig,
	opts ...ServiceOption,
) *Service {
	cfg.ApplyDefaults()
	est := NewEstimator()
	s := &Service{
		geocoder:   geocoder,
		primary:    primary,
		secondary:  secondary,
		fallback:   fallback,
		soil:       soil,
		aggregator: NewAggregator(est, cfg.DefaultHumidity),
		est:        est,
		cfg:        cfg,
		logger:     zap.NewNop(),
		snapshots:  cache.NewTTL[*models.WeatherSnapshot](cfg.SnapshotTTL),
		soilCache:  cache.NewTTL[*Reading](cfg.SoilTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns merged current conditions for a location. All four
// providers are queried concurrently; whatever fails is estimated. The
// result is cached for the snapshot TTL.
func (s *Service) Snapshot(ctx context.Context, location string) (*models.WeatherSnapshot, error) {
	key := cacheKey(location)
	if snap, ok := s.snapshots.Get(key); ok {
		s.logger.Debug("snapshot cache hit", zap.String("location", key))
		return snap, nil
	}

	place, err := s.geocoder.Geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	readings := s.fetchCurrent(ctx, place.Coords)
	snap := s.aggregator.MergeCurrent(
		location, place.Coords, time.Now().UTC(),
		readings[0], readings[1], readings[2], readings[3],
	)
	if snap.Degraded {
		s.logger.Warn("all providers failed, serving estimated snapshot",
			zap.String("location", key))
	}

	s.snapshots.Set(key, snap)
	return snap, nil
}

// fetchCurrent queries the four providers concurrently and returns their
// readings in primary/secondary/fallback/soil order, nil where failed.
func (s *Service) fetchCurrent(ctx context.Context, coords models.Coordinates) [4]*Reading {
	adapters := [4]Adapter{s.primary, s.secondary, s.fallback, s.soil}
	var readings [4]*Reading

	// Soil readings change slowly, so they get their own longer cache.
	soilKey := fmt.Sprintf("%.3f,%.3f", coords.Lat, coords.Lon)
	soilCached, soilHit := s.soilCache.Get(soilKey)

	var wg sync.WaitGroup
	for i, a := range adapters {
		if a == nil {
			continue
		}
		if i == 3 && soilHit {
			readings[3] = soilCached
			continue
		}
		wg.Add(1)
		go func(i int, a Adapter) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
			defer cancel()
			r, err := a.Current(callCtx, coords)
			if err != nil {
				if !errors.Is(err, ErrDisabled) {
					s.logger.Warn("provider failed",
						zap.String("provider", a.Name()), zap.Error(err))
				}
				return
			}
			readings[i] = r
		}(i, a)
	}
	wg.Wait()

	if !soilHit && readings[3] != nil {
		s.soilCache.Set(soilKey, readings[3])
	}
	return readings
}

// Series returns the forecast series for a location over the timeline
// horizon, picking the fetch strategy by its length.
func (s *Service) Series(ctx context.Context, location string, tl models.Timeline) (*models.WeatherSeries, error) {
	days := tl.Days
	if days < 1 {
		days = 1
	}
	if days > s.cfg.MaxTimelineDays {
		days = s.cfg.MaxTimelineDays
	}

	snap, err := s.Snapshot(ctx, location)
	if err != nil {
		return nil, err
	}

	series := &models.WeatherSeries{
		Location: location,
		Coords:   snap.Coords,
		Current:  snap,
	}

	switch {
	case days <= s.cfg.UltraFastMaxDays:
		series.Mode = models.ModeUltraFast
		series.Days = s.aggregator.MergeDaily(snap.Coords, today(), days, nil, nil, nil, nil)
		series.CropHints = SimpleCropHints(snap)
	case days <= s.cfg.FastMaxDays:
		series.Mode = models.ModeFast
		primary := s.fetchDaily(ctx, s.primary, snap.Coords, 10)
		series.Days = s.aggregator.MergeDaily(snap.Coords, today(), days, primary, nil, nil, nil)
	default:
		series.Mode = models.ModeComprehensive
		primary, extended, fallback, soil := s.fetchDailyParallel(ctx, snap.Coords, days)
		series.Days = s.aggregator.MergeDaily(snap.Coords, today(), days, primary, extended, fallback, soil)
	}

	if err := s.saveDailyCache(location, series); err != nil {
		s.logger.Warn("failed to persist daily cache", zap.Error(err))
	}
	return series, nil
}

func (s *Service) fetchDaily(ctx context.Context, a Adapter, coords models.Coordinates, days int) []DailyReading {
	if a == nil {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	readings, err := a.Daily(callCtx, coords, days)
	if err != nil {
		if !errors.Is(err, ErrDisabled) {
			s.logger.Warn("daily fetch failed",
				zap.String("provider", a.Name()), zap.Error(err))
		}
		return nil
	}
	return readings
}

// fetchDailyParallel runs the four daily fetches on a fixed worker pool
// with per-call timeouts.
func (s *Service) fetchDailyParallel(ctx context.Context, coords models.Coordinates, days int) (primary, extended, fallback, soil []DailyReading) {
	type job struct {
		adapter Adapter
		days    int
		dest    *[]DailyReading
	}
	jobs := []job{
		{s.primary, 10, &primary},
		{s.secondary, days, &extended},
		{s.fallback, 16, &fallback},
		{s.soil, 30, &soil},
	}

	jobCh := make(chan job)
	var wg sync.WaitGroup
	workers := s.cfg.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				*j.dest = s.fetchDaily(ctx, j.adapter, coords, j.days)
			}
		}()
	}
	for _, j := range jobs {
		if j.adapter != nil {
			jobCh <- j
		}
	}
	close(jobCh)
	wg.Wait()
	return primary, extended, fallback, soil
}

// SimpleCropHints returns quick crop suggestions from current conditions,
// used by the ultra-fast strategy.
func SimpleCropHints(snap *models.WeatherSnapshot) []string {
	var hints []string
	if snap.TemperatureC >= 25 && snap.HumidityPct >= 70 {
		hints = append(hints, "rice", "sugarcane", "vegetables", "cotton")
	}
	if snap.TemperatureC >= 20 && snap.TemperatureC <= 30 {
		hints = append(hints, "wheat", "barley", "mustard", "peas", "lentils")
	}
	return hints
}

// cachedSeries is the on-disk form of a location's daily series.
type cachedSeries struct {
	Location  string                `json:"location"`
	UpdatedAt time.Time             `json:"updated_at"`
	Days      []models.DailyWeather `json:"days"`
}

type dailyCacheFile struct {
	Locations map[string]cachedSeries `json:"locations"`
}

func (s *Service) cachePath() string {
	return filepath.Join(s.cfg.DataDir, "weather_cache.json")
}

func (s *Service) loadCacheFile() dailyCacheFile {
	var f dailyCacheFile
	data, err := os.ReadFile(s.cachePath())
	if err == nil {
		_ = json.Unmarshal(data, &f)
	}
	if f.Locations == nil {
		f.Locations = make(map[string]cachedSeries)
	}
	return f
}

// saveDailyCache writes the series for one location, atomically replacing
// the cache file.
func (s *Service) saveDailyCache(location string, series *models.WeatherSeries) error {
	if s.cfg.DataDir == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	f := s.loadCacheFile()
	f.Locations[cacheKey(location)] = cachedSeries{
		Location:  location,
		UpdatedAt: time.Now().UTC(),
		Days:      series.Days,
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.cachePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.cachePath())
}

// CachedSeries returns the persisted daily series for a location, if any.
func (s *Service) CachedSeries(location string) ([]models.DailyWeather, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.loadCacheFile()
	cs, ok := f.Locations[cacheKey(location)]
	if !ok {
		return nil, time.Time{}, false
	}
	return cs.Days, cs.UpdatedAt, true
}

// CachedLocations lists the locations present in the daily cache.
func (s *Service) CachedLocations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.loadCacheFile()
	out := make([]string, 0, len(f.Locations))
	for loc := range f.Locations {
		out = append(out, loc)
	}
	return out
}

// CacheAge returns the age of the oldest cached series, or false when the
// cache is empty.
func (s *Service) CacheAge() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.loadCacheFile()
	if len(f.Locations) == 0 {
		return 0, false
	}
	oldest := time.Now().UTC()
	for _, cs := range f.Locations {
		if cs.UpdatedAt.Before(oldest) {
			oldest = cs.UpdatedAt
		}
	}
	return time.Since(oldest), true
}

// ClearCache removes the daily cache file and the in-memory snapshot
// caches. Used by refresh, together with the index unit removal.
func (s *Service) ClearCache() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots.Clear()
	s.soilCache.Clear()
	err := os.Remove(s.cachePath())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove weather cache: %w", err)
	}
	return nil
}

func cacheKey(location string) string {
	return strings.ToLower(strings.TrimSpace(location))
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
