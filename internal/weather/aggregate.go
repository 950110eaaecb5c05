package weather

import (
	"time"

	"github.com/agrisage/agrisage/internal/models"
)

// Validity windows for provider humidity readings. Values outside the
// window are treated as absent and the chain falls through.
const (
	primaryHumidityMin   = 10
	primaryHumidityMax   = 100
	secondaryHumidityMin = 20
	secondaryHumidityMax = 95
)

// Wind clamps per provider tier.
const (
	primaryWindMax   = 150
	secondaryWindMax = 100
)

// Aggregator merges provider readings into a complete snapshot by
// per-field precedence. A field whose whole chain failed is estimated, so
// the snapshot is always fully populated.
type Aggregator struct {
	est             *Estimator
	defaultHumidity float64
}

// NewAggregator creates an Aggregator.
func NewAggregator(est *Estimator, defaultHumidity float64) *Aggregator {
	if defaultHumidity <= 0 {
		defaultHumidity = 65.0
	}
	return &Aggregator{est: est, defaultHumidity: defaultHumidity}
}

// MergeCurrent merges readings for one location. Any reading may be nil.
// primary is the Google reading, secondary Visual Crossing, fallback
// Open-Meteo, soil NASA POWER.
func (a *Aggregator) MergeCurrent(
	location string,
	coords models.Coordinates,
	now time.Time,
	primary, secondary, fallback, soil *Reading,
) *models.WeatherSnapshot {
	snap := &models.WeatherSnapshot{
		Location:  location,
		Coords:    coords,
		Sources:   make(map[string]string),
		FetchedAt: now,
	}

	// Temperature: primary, then secondary, then seasonal estimate.
	switch {
	case primary != nil && primary.TemperatureC != nil:
		snap.TemperatureC = *primary.TemperatureC
		snap.Sources["temperature"] = primary.Provider
	case secondary != nil && secondary.TemperatureC != nil:
		snap.TemperatureC = *secondary.TemperatureC
		snap.Sources["temperature"] = secondary.Provider
	default:
		snap.TemperatureC = a.est.SeasonalTemperature(coords.Lat, now)
		snap.Sources["temperature"] = "estimate"
	}

	// Humidity: validated primary, validated secondary, validated
	// fallback, then the configured default.
	switch {
	case validHumidity(primary, primaryHumidityMin, primaryHumidityMax):
		snap.HumidityPct = *primary.HumidityPct
		snap.Sources["humidity"] = primary.Provider
	case validHumidity(secondary, secondaryHumidityMin, secondaryHumidityMax):
		snap.HumidityPct = *secondary.HumidityPct
		snap.Sources["humidity"] = secondary.Provider
	case validHumidity(fallback, secondaryHumidityMin, secondaryHumidityMax):
		snap.HumidityPct = *fallback.HumidityPct
		snap.Sources["humidity"] = fallback.Provider
	default:
		snap.HumidityPct = a.defaultHumidity
		snap.Sources["humidity"] = "default"
	}

	// Wind: clamped primary, clamped secondary, latitude estimate.
	switch {
	case primary != nil && primary.WindSpeedKmh != nil:
		snap.WindSpeedKmh = Clamp(*primary.WindSpeedKmh, 0, primaryWindMax)
		snap.Sources["wind"] = primary.Provider
	case secondary != nil && secondary.WindSpeedKmh != nil:
		snap.WindSpeedKmh = Clamp(*secondary.WindSpeedKmh, 0, secondaryWindMax)
		snap.Sources["wind"] = secondary.Provider
	default:
		snap.WindSpeedKmh = a.est.Wind(coords.Lat)
		snap.Sources["wind"] = "estimate"
	}
	snap.WindSpeedMs = snap.WindSpeedKmh / 3.6

	// Soil moisture: NASA POWER, Open-Meteo, then derived from humidity.
	switch {
	case soil != nil && soil.SoilMoisturePct != nil:
		snap.SoilMoisturePct = *soil.SoilMoisturePct
		snap.Sources["soil_moisture"] = soil.Provider
	case fallback != nil && fallback.SoilMoisturePct != nil:
		snap.SoilMoisturePct = *fallback.SoilMoisturePct
		snap.Sources["soil_moisture"] = fallback.Provider
	default:
		snap.SoilMoisturePct = a.est.SoilFromHumidity(snap.HumidityPct)
		snap.Sources["soil_moisture"] = "estimate"
	}

	snap.Degraded = primary == nil && secondary == nil && fallback == nil && soil == nil
	snap.Description = Describe(snap)
	return snap
}

// MergeDaily merges per-provider daily series into one contiguous series
// of length days starting at start. Per day and per field the precedence
// is primary, then extended, then fallback, then estimate. Soil moisture
// uses the soil series with its last value carried forward.
func (a *Aggregator) MergeDaily(
	coords models.Coordinates,
	start time.Time,
	days int,
	primary, extended, fallback, soil []DailyReading,
) []models.DailyWeather {
	primaryByDay := indexByDay(primary)
	extendedByDay := indexByDay(extended)
	fallbackByDay := indexByDay(fallback)
	soilByDay := indexByDay(soil)

	lastSoil := 0.0
	haveSoil := false
	for _, r := range soil {
		if r.SoilMoisturePct != nil {
			lastSoil = *r.SoilMoisturePct
			haveSoil = true
		}
	}

	out := make([]models.DailyWeather, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		key := dayKey(date)
		day := models.DailyWeather{Date: date}

		chain := []*DailyReading{primaryByDay[key], extendedByDay[key], fallbackByDay[key]}

		if v := firstFloat(chain, func(r *DailyReading) *float64 { return r.TempMeanC }); v != nil {
			day.TempMeanC = *v
			day.Source = "provider"
		} else {
			day.TempMeanC = a.est.SeasonalTemperature(coords.Lat, date) + a.est.DailyWobble(i)
			day.Source = "estimate"
		}
		if v := firstFloat(chain, func(r *DailyReading) *float64 { return r.TempMaxC }); v != nil {
			day.TempMaxC = *v
		} else {
			day.TempMaxC = day.TempMeanC + 4
		}
		if v := firstFloat(chain, func(r *DailyReading) *float64 { return r.TempMinC }); v != nil {
			day.TempMinC = *v
		} else {
			day.TempMinC = day.TempMeanC - 4
		}
		if v := firstFloat(chain, func(r *DailyReading) *float64 { return r.HumidityPct }); v != nil {
			day.HumidityPct = Clamp(*v, 0, 100)
		} else {
			day.HumidityPct = a.est.Humidity(coords.Lat, date)
		}
		if v := firstFloat(chain, func(r *DailyReading) *float64 { return r.WindSpeedKmh }); v != nil {
			day.WindSpeedKmh = Clamp(*v, 0, primaryWindMax)
		} else {
			day.WindSpeedKmh = a.est.Wind(coords.Lat)
		}
		if v := firstFloat(chain, func(r *DailyReading) *float64 { return r.PrecipMm }); v != nil {
			day.PrecipMm = *v
		} else {
			day.PrecipMm = a.est.Precipitation(coords.Lat, date)
		}

		if r := soilByDay[key]; r != nil && r.SoilMoisturePct != nil {
			day.SoilMoisturePct = *r.SoilMoisturePct
		} else if haveSoil {
			day.SoilMoisturePct = lastSoil
		} else {
			day.SoilMoisturePct = a.est.SoilFromHumidity(day.HumidityPct)
		}

		out = append(out, day)
	}
	return out
}

func validHumidity(r *Reading, lo, hi float64) bool {
	return r != nil && r.HumidityPct != nil && *r.HumidityPct >= lo && *r.HumidityPct <= hi
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func indexByDay(readings []DailyReading) map[string]*DailyReading {
	m := make(map[string]*DailyReading, len(readings))
	for i := range readings {
		m[dayKey(readings[i].Date)] = &readings[i]
	}
	return m
}

func firstFloat(chain []*DailyReading, get func(*DailyReading) *float64) *float64 {
	for _, r := range chain {
		if r == nil {
			continue
		}
		if v := get(r); v != nil {
			return v
		}
	}
	return nil
}
