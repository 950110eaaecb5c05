package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sony/gobreaker"

	"github.com/agrisage/agrisage/internal/models"
	"github.com/agrisage/agrisage/internal/weather"
)

// NASAPower reads top-layer soil wetness (GWETTOP, 0-10 cm, fraction) from
// the NASA POWER daily archive. It is keyless. The archive trails real time
// by a few days, so the request window looks back a week and the most
// recent valid value wins.
type NASAPower struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NASAPowerOption configures a NASAPower adapter.
type NASAPowerOption func(*NASAPower)

// WithNASAPowerBaseURL overrides the endpoint, for tests.
func WithNASAPowerBaseURL(base string) NASAPowerOption {
	return func(n *NASAPower) { n.baseURL = base }
}

// NewNASAPower creates the adapter.
func NewNASAPower(client *http.Client, opts ...NASAPowerOption) *NASAPower {
	n := &NASAPower{
		baseURL: "https://power.larc.nasa.gov/api/temporal/daily/point",
		httpCfg: defaultHTTPConfig(client),
		circuit: newCircuit("nasa-power"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name implements weather.Adapter.
func (n *NASAPower) Name() string { return "nasapower" }

type nasaResponse struct {
	Properties struct {
		Parameter struct {
			Gwettop map[string]float64 `json:"GWETTOP"`
		} `json:"parameter"`
	} `json:"properties"`
}

func (n *NASAPower) fetch(ctx context.Context, coords models.Coordinates, start, end time.Time) (map[string]float64, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("parameters", "GWETTOP")
		values.Set("community", "ag")
		values.Set("latitude", fmt.Sprintf("%f", coords.Lat))
		values.Set("longitude", fmt.Sprintf("%f", coords.Lon))
		values.Set("start", start.Format("20060102"))
		values.Set("end", end.Format("20060102"))
		values.Set("format", "JSON")
		return http.NewRequest(http.MethodGet, n.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, n.httpCfg, n.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("nasa power: %w", err)
	}
	defer resp.Body.Close()

	var payload nasaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("nasa power: %w", err)
	}
	return payload.Properties.Parameter.Gwettop, nil
}

// Current returns the latest valid soil wetness as a percentage.
// Missing archive values are reported as -999 and skipped.
func (n *NASAPower) Current(ctx context.Context, coords models.Coordinates) (*weather.Reading, error) {
	end := time.Now().UTC()
	values, err := n.fetch(ctx, coords, end.AddDate(0, 0, -7), end)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(values))
	for d := range values {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	for _, d := range dates {
		v := values[d]
		if v >= 0 && v <= 1 {
			return &weather.Reading{
				Provider:        n.Name(),
				SoilMoisturePct: weather.Float(v * 100),
				FetchedAt:       time.Now().UTC(),
			}, nil
		}
	}
	return nil, fmt.Errorf("nasa power: no valid soil wetness in window")
}

// Daily returns recent daily soil wetness percentages. The archive has no
// forward forecast, so the series covers the trailing window only; the
// aggregator carries the last value forward.
func (n *NASAPower) Daily(ctx context.Context, coords models.Coordinates, days int) ([]weather.DailyReading, error) {
	if days < 1 {
		days = 1
	}
	if days > 30 {
		days = 30
	}
	end := time.Now().UTC()
	values, err := n.fetch(ctx, coords, end.AddDate(0, 0, -days), end)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(values))
	for d := range values {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]weather.DailyReading, 0, len(dates))
	for _, d := range dates {
		v := values[d]
		if v < 0 || v > 1 {
			continue
		}
		date, err := time.Parse("20060102", d)
		if err != nil {
			continue
		}
		out = append(out, weather.DailyReading{
			Date:            date,
			SoilMoisturePct: weather.Float(v * 100),
		})
	}
	return out, nil
}
