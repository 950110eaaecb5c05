package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/agrisage/agrisage/internal/models"
	"github.com/agrisage/agrisage/internal/weather"
)

// OpenMeteo is the keyless fallback provider: humidity and soil moisture
// when the keyed providers fail, and up to 16 days of daily forecasts.
type OpenMeteo struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// OpenMeteoOption configures an OpenMeteo adapter.
type OpenMeteoOption func(*OpenMeteo)

// WithOpenMeteoBaseURL overrides the endpoint, for tests.
func WithOpenMeteoBaseURL(base string) OpenMeteoOption {
	return func(o *OpenMeteo) { o.baseURL = base }
}

// NewOpenMeteo creates the adapter.
func NewOpenMeteo(client *http.Client, opts ...OpenMeteoOption) *OpenMeteo {
	o := &OpenMeteo{
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuit("openmeteo"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name implements weather.Adapter.
func (o *OpenMeteo) Name() string { return "openmeteo" }

type openMeteoResponse struct {
	Current struct {
		Temperature2m      *float64 `json:"temperature_2m"`
		RelativeHumidity2m *float64 `json:"relative_humidity_2m"`
		WindSpeed10m       *float64 `json:"wind_speed_10m"`
		SoilMoisture0to7cm *float64 `json:"soil_moisture_0_to_7cm"`
	} `json:"current"`
	Daily struct {
		Time                   []string  `json:"time"`
		Temperature2mMax       []float64 `json:"temperature_2m_max"`
		Temperature2mMin       []float64 `json:"temperature_2m_min"`
		RelativeHumidity2mMean []float64 `json:"relative_humidity_2m_mean"`
		WindSpeed10mMax        []float64 `json:"wind_speed_10m_max"`
		PrecipitationSum       []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

func (o *OpenMeteo) fetch(ctx context.Context, values url.Values) (*openMeteoResponse, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, o.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, o.httpCfg, o.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("openmeteo: %w", err)
	}
	defer resp.Body.Close()

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("openmeteo: %w", err)
	}
	return &payload, nil
}

// Current returns current conditions including top-layer soil moisture.
// Soil moisture arrives as m³/m³ and is converted to a percentage.
func (o *OpenMeteo) Current(ctx context.Context, coords models.Coordinates) (*weather.Reading, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", coords.Lat))
	values.Set("longitude", fmt.Sprintf("%f", coords.Lon))
	values.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,soil_moisture_0_to_7cm")
	values.Set("wind_speed_unit", "kmh")

	payload, err := o.fetch(ctx, values)
	if err != nil {
		return nil, err
	}

	reading := &weather.Reading{
		Provider:     o.Name(),
		TemperatureC: payload.Current.Temperature2m,
		HumidityPct:  payload.Current.RelativeHumidity2m,
		WindSpeedKmh: payload.Current.WindSpeed10m,
		FetchedAt:    time.Now().UTC(),
	}
	if sm := payload.Current.SoilMoisture0to7cm; sm != nil {
		reading.SoilMoisturePct = weather.Float(*sm * 100)
	}
	return reading, nil
}

// Daily returns up to 16 forecast days.
func (o *OpenMeteo) Daily(ctx context.Context, coords models.Coordinates, days int) ([]weather.DailyReading, error) {
	if days < 1 {
		days = 1
	}
	if days > 16 {
		days = 16
	}

	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", coords.Lat))
	values.Set("longitude", fmt.Sprintf("%f", coords.Lon))
	values.Set("daily", "temperature_2m_max,temperature_2m_min,relative_humidity_2m_mean,wind_speed_10m_max,precipitation_sum")
	values.Set("forecast_days", fmt.Sprintf("%d", days))
	values.Set("wind_speed_unit", "kmh")

	payload, err := o.fetch(ctx, values)
	if err != nil {
		return nil, err
	}

	d := payload.Daily
	out := make([]weather.DailyReading, 0, len(d.Time))
	for i, ts := range d.Time {
		date, err := time.Parse("2006-01-02", ts)
		if err != nil {
			continue
		}
		r := weather.DailyReading{Date: date}
		if i < len(d.Temperature2mMax) {
			r.TempMaxC = weather.Float(d.Temperature2mMax[i])
		}
		if i < len(d.Temperature2mMin) {
			r.TempMinC = weather.Float(d.Temperature2mMin[i])
		}
		if r.TempMaxC != nil && r.TempMinC != nil {
			r.TempMeanC = weather.Float((*r.TempMaxC + *r.TempMinC) / 2)
		}
		if i < len(d.RelativeHumidity2mMean) {
			r.HumidityPct = weather.Float(d.RelativeHumidity2mMean[i])
		}
		if i < len(d.WindSpeed10mMax) {
			r.WindSpeedKmh = weather.Float(d.WindSpeed10mMax[i])
		}
		if i < len(d.PrecipitationSum) {
			r.PrecipMm = weather.Float(d.PrecipitationSum[i])
		}
		out = append(out, r)
	}
	return out, nil
}
