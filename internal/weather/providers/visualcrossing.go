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

// VisualCrossing is the secondary provider: humidity primary source, wind
// and temperature fallback, and the only source of daily forecasts past
// the 10-day primary horizon (up to 120 days).
type VisualCrossing struct {
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// VisualCrossingOption configures a VisualCrossing adapter.
type VisualCrossingOption func(*VisualCrossing)

// WithVisualCrossingBaseURL overrides the endpoint, for tests.
func WithVisualCrossingBaseURL(base string) VisualCrossingOption {
	return func(v *VisualCrossing) { v.baseURL = base }
}

// NewVisualCrossing creates the adapter.
func NewVisualCrossing(apiKey string, client *http.Client, opts ...VisualCrossingOption) *VisualCrossing {
	v := &VisualCrossing{
		apiKey:  apiKey,
		baseURL: "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuit("visual-crossing"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Name implements weather.Adapter.
func (v *VisualCrossing) Name() string { return "visualcrossing" }

type vcResponse struct {
	CurrentConditions *vcConditions `json:"currentConditions"`
	Days              []vcDay       `json:"days"`
}

type vcConditions struct {
	Temp      *float64 `json:"temp"`
	Humidity  *float64 `json:"humidity"`
	WindSpeed *float64 `json:"windspeed"`
}

type vcDay struct {
	Datetime  string   `json:"datetime"`
	TempMax   *float64 `json:"tempmax"`
	TempMin   *float64 `json:"tempmin"`
	Temp      *float64 `json:"temp"`
	Humidity  *float64 `json:"humidity"`
	WindSpeed *float64 `json:"windspeed"`
	Precip    *float64 `json:"precip"`
}

func (v *VisualCrossing) fetch(ctx context.Context, coords models.Coordinates, include string, days int) (*vcResponse, error) {
	if v.apiKey == "" {
		return nil, weather.ErrDisabled
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("unitGroup", "metric")
		values.Set("key", v.apiKey)
		values.Set("include", include)
		values.Set("contentType", "json")
		u := fmt.Sprintf("%s/%f,%f", v.baseURL, coords.Lat, coords.Lon)
		if days > 0 {
			u = fmt.Sprintf("%s/%s/%s", u,
				time.Now().UTC().Format("2006-01-02"),
				time.Now().UTC().AddDate(0, 0, days-1).Format("2006-01-02"))
		}
		return http.NewRequest(http.MethodGet, u+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, v.httpCfg, v.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("visual crossing: %w", err)
	}
	defer resp.Body.Close()

	var payload vcResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("visual crossing: %w", err)
	}
	return &payload, nil
}

// Current returns current conditions.
func (v *VisualCrossing) Current(ctx context.Context, coords models.Coordinates) (*weather.Reading, error) {
	payload, err := v.fetch(ctx, coords, "current", 0)
	if err != nil {
		return nil, err
	}
	if payload.CurrentConditions == nil {
		return nil, fmt.Errorf("visual crossing: no current conditions")
	}
	cc := payload.CurrentConditions
	return &weather.Reading{
		Provider:     v.Name(),
		TemperatureC: cc.Temp,
		HumidityPct:  cc.Humidity,
		WindSpeedKmh: cc.WindSpeed,
		FetchedAt:    time.Now().UTC(),
	}, nil
}

// Daily returns up to 120 forecast days.
func (v *VisualCrossing) Daily(ctx context.Context, coords models.Coordinates, days int) ([]weather.DailyReading, error) {
	if days < 1 {
		days = 1
	}
	if days > 120 {
		days = 120
	}
	payload, err := v.fetch(ctx, coords, "days", days)
	if err != nil {
		return nil, err
	}

	out := make([]weather.DailyReading, 0, len(payload.Days))
	for _, d := range payload.Days {
		date, err := time.Parse("2006-01-02", d.Datetime)
		if err != nil {
			continue
		}
		r := weather.DailyReading{
			Date:         date,
			TempMaxC:     d.TempMax,
			TempMinC:     d.TempMin,
			TempMeanC:    d.Temp,
			HumidityPct:  d.Humidity,
			WindSpeedKmh: d.WindSpeed,
			PrecipMm:     d.Precip,
		}
		if r.TempMeanC == nil && r.TempMaxC != nil && r.TempMinC != nil {
			r.TempMeanC = weather.Float((*r.TempMaxC + *r.TempMinC) / 2)
		}
		out = append(out, r)
	}
	return out, nil
}
