// Package weather aggregates readings from multiple providers into
// complete snapshots and forecast series.
package weather

import (
	"context"
	"errors"
	"time"

	"github.com/agrisage/agrisage/internal/models"
)

// ErrDisabled is returned by adapters that cannot run, typically because
// no API key is configured. The aggregator treats it like any other
// provider failure and moves down the precedence chain.
var ErrDisabled = errors.New("provider disabled")

// Reading is one provider's view of current conditions. Nil fields mean
// the provider did not report that measurement.
type Reading struct {
	Provider        string
	TemperatureC    *float64
	HumidityPct     *float64
	WindSpeedKmh    *float64
	SoilMoisturePct *float64
	FetchedAt       time.Time
}

// DailyReading is one provider's view of a single forecast day.
type DailyReading struct {
	Date            time.Time
	TempMaxC        *float64
	TempMinC        *float64
	TempMeanC       *float64
	HumidityPct     *float64
	WindSpeedKmh    *float64
	PrecipMm        *float64
	SoilMoisturePct *float64
}

// Adapter is a weather data source. Implementations live in the providers
// subpackage; each one carries its own circuit breaker and retry policy.
type Adapter interface {
	Name() string
	Current(ctx context.Context, coords models.Coordinates) (*Reading, error)
	Daily(ctx context.Context, coords models.Coordinates, days int) ([]DailyReading, error)
}

// Float returns a pointer to v. Convenience for building readings.
func Float(v float64) *float64 { return &v }
