package weather

import (
	"math"
	"time"
)

// Estimator produces deterministic climatological values used when every
// provider fails, and to fill gaps in long forecast series. The same
// (latitude, date) input always yields the same output.
type Estimator struct{}

// NewEstimator creates an Estimator.
func NewEstimator() *Estimator { return &Estimator{} }

// latitude band boundaries in degrees of absolute latitude.
const (
	tropicalLat    = 23.5
	subtropicalLat = 35.0
	temperateLat   = 50.0
)

// SeasonalTemperature estimates the mean temperature for a latitude and
// date. The annual cycle is a sinusoid peaking near the summer solstice;
// the southern hemisphere runs phase-inverted.
func (e *Estimator) SeasonalTemperature(lat float64, date time.Time) float64 {
	dayOfYear := float64(date.YearDay())
	seasonal := math.Sin(2 * math.Pi * (dayOfYear - 81) / 365)
	if lat < 0 {
		seasonal = -seasonal
	}

	var base, amplitude float64
	switch abs := math.Abs(lat); {
	case abs < tropicalLat:
		base, amplitude = 28, 4
	case abs < subtropicalLat:
		base, amplitude = 24, 8
	case abs < temperateLat:
		base, amplitude = 18, 12
	default:
		base, amplitude = 10, 15
	}
	return base + amplitude*seasonal
}

// Humidity estimates relative humidity for a latitude and date, clamped
// to [30, 90].
func (e *Estimator) Humidity(lat float64, date time.Time) float64 {
	dayOfYear := float64(date.YearDay())
	seasonal := math.Sin(2 * math.Pi * (dayOfYear - 81) / 365)
	if lat < 0 {
		seasonal = -seasonal
	}

	var base float64
	switch abs := math.Abs(lat); {
	case abs < 15:
		base = 80
	case abs < tropicalLat:
		base = 75
	case abs < subtropicalLat:
		base = 65
	case abs < temperateLat:
		base = 60
	default:
		base = 55
	}
	return Clamp(base+10*seasonal, 30, 90)
}

// Wind estimates wind speed in km/h by latitude band; the result is
// always within [5, 25].
func (e *Estimator) Wind(lat float64) float64 {
	switch abs := math.Abs(lat); {
	case abs < 15:
		return 8
	case abs < 30:
		return 12
	case abs < temperateLat:
		return 15
	default:
		return 18
	}
}

// Precipitation estimates expected daily precipitation in mm as rain
// chance times typical amount per latitude band. The tropical band adds
// a monsoon term peaking mid-year, phase-inverted south of the equator.
func (e *Estimator) Precipitation(lat float64, date time.Time) float64 {
	switch abs := math.Abs(lat); {
	case abs < 10:
		return 0.4 * 5.0
	case abs < tropicalLat:
		dayOfYear := float64(date.YearDay())
		monsoon := math.Sin(2 * math.Pi * (dayOfYear - 150) / 365)
		if lat < 0 {
			monsoon = -monsoon
		}
		monsoon = math.Max(0, monsoon)
		return (0.2 + 0.3*monsoon) * (3.0 + 7.0*monsoon)
	case abs < temperateLat:
		return 0.25 * 2.5
	default:
		return 0.15 * 1.5
	}
}

// SoilFromHumidity derives a soil moisture percentage from relative
// humidity when no soil provider responded, clamped to [8, 35].
func (e *Estimator) SoilFromHumidity(humidityPct float64) float64 {
	return Clamp(0.25*humidityPct, 8, 35)
}

// DailyWobble is a small deterministic day-to-day variation added to
// estimated series so consecutive days are not identical.
func (e *Estimator) DailyWobble(dayIndex int) float64 {
	return float64(dayIndex%7-3) * 0.5
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
