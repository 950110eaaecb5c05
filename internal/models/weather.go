package models

import "time"

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// WeatherSnapshot is the merged current-conditions view for a location.
// Every field is always populated: when no provider supplied a value the
// climatological estimator did, and Sources records which.
type WeatherSnapshot struct {
	Location        string            `json:"location"`
	Coords          Coordinates       `json:"coords"`
	TemperatureC    float64           `json:"temperature_c"`
	HumidityPct     float64           `json:"humidity_pct"`
	WindSpeedKmh    float64           `json:"wind_speed_kmh"`
	WindSpeedMs     float64           `json:"wind_speed_ms"`
	SoilMoisturePct float64           `json:"soil_moisture_pct"`
	Description     string            `json:"description"`
	Sources         map[string]string `json:"sources"`
	FetchedAt       time.Time         `json:"fetched_at"`
	Degraded        bool              `json:"degraded"`
}

// DailyWeather is one day of a forecast series.
type DailyWeather struct {
	Date            time.Time `json:"date"`
	TempMaxC        float64   `json:"temp_max_c"`
	TempMinC        float64   `json:"temp_min_c"`
	TempMeanC       float64   `json:"temp_mean_c"`
	HumidityPct     float64   `json:"humidity_pct"`
	WindSpeedKmh    float64   `json:"wind_speed_kmh"`
	PrecipMm        float64   `json:"precip_mm"`
	SoilMoisturePct float64   `json:"soil_moisture_pct"`
	Source          string    `json:"source"`
}

// WeatherSeries is a contiguous daily forecast starting today.
type WeatherSeries struct {
	Location  string           `json:"location"`
	Coords    Coordinates      `json:"coords"`
	Days      []DailyWeather   `json:"days"`
	Mode      string           `json:"mode"`
	Current   *WeatherSnapshot `json:"current,omitempty"`
	CropHints []string         `json:"crop_hints,omitempty"`
}

// Timeline is the horizon extracted from a query.
type Timeline struct {
	Days         int    `json:"days"`
	Source       string `json:"source"`
	Agricultural bool   `json:"agricultural"`
}

// Timeline sources.
const (
	TimelineExplicit            = "explicit"
	TimelineSeason              = "season"
	TimelineAgriculturalDefault = "agricultural-default"
	TimelineGeneralDefault      = "general-default"
)

// Fetch strategy names, selected by timeline length.
const (
	ModeUltraFast     = "ultra-fast"
	ModeFast          = "fast"
	ModeComprehensive = "comprehensive"
)
