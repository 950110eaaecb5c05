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

// GoogleWeather is the primary provider: current temperature, humidity and
// wind from the hourly endpoint, plus daily forecasts up to 10 days.
// Without an API key every call returns weather.ErrDisabled.
type GoogleWeather struct {
	apiKey   string
	hoursURL string
	daysURL  string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

// GoogleOption configures a GoogleWeather adapter.
type GoogleOption func(*GoogleWeather)

// WithGoogleBaseURL overrides both endpoints, for tests. The hours endpoint
// becomes base+"/hours" and the days endpoint base+"/days".
func WithGoogleBaseURL(base string) GoogleOption {
	return func(g *GoogleWeather) {
		g.hoursURL = base + "/hours"
		g.daysURL = base + "/days"
	}
}

// NewGoogleWeather creates the adapter.
func NewGoogleWeather(apiKey string, client *http.Client, opts ...GoogleOption) *GoogleWeather {
	g := &GoogleWeather{
		apiKey:   apiKey,
		hoursURL: "https://weather.googleapis.com/v1/forecast/hours:lookup",
		daysURL:  "https://weather.googleapis.com/v1/forecast/days:lookup",
		httpCfg:  defaultHTTPConfig(client),
		circuit:  newCircuit("google-weather"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements weather.Adapter.
func (g *GoogleWeather) Name() string { return "google" }

type googleHoursResponse struct {
	ForecastHours []struct {
		Temperature struct {
			Degrees *float64 `json:"degrees"`
		} `json:"temperature"`
		RelativeHumidity *float64 `json:"relativeHumidity"`
		Wind             struct {
			Speed struct {
				Value *float64 `json:"value"`
				Unit  string   `json:"unit"`
			} `json:"speed"`
		} `json:"wind"`
	} `json:"forecastHours"`
}

// Current returns the first forecast hour as current conditions.
func (g *GoogleWeather) Current(ctx context.Context, coords models.Coordinates) (*weather.Reading, error) {
	if g.apiKey == "" {
		return nil, weather.ErrDisabled
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", g.apiKey)
		values.Set("location.latitude", fmt.Sprintf("%f", coords.Lat))
		values.Set("location.longitude", fmt.Sprintf("%f", coords.Lon))
		values.Set("hours", "1")
		return http.NewRequest(http.MethodGet, g.hoursURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, g.httpCfg, g.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("google current: %w", err)
	}
	defer resp.Body.Close()

	var payload googleHoursResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("google current: %w", err)
	}
	if len(payload.ForecastHours) == 0 {
		return nil, fmt.Errorf("google current: empty forecast")
	}

	hour := payload.ForecastHours[0]
	reading := &weather.Reading{
		Provider:     g.Name(),
		TemperatureC: hour.Temperature.Degrees,
		HumidityPct:  hour.RelativeHumidity,
		FetchedAt:    time.Now().UTC(),
	}
	if v := hour.Wind.Speed.Value; v != nil {
		reading.WindSpeedKmh = weather.Float(windToKmh(*v, hour.Wind.Speed.Unit))
	}
	return reading, nil
}

type googleDaysResponse struct {
	ForecastDays []struct {
		DisplayDate struct {
			Year  int `json:"year"`
			Month int `json:"month"`
			Day   int `json:"day"`
		} `json:"displayDate"`
		MaxTemperature struct {
			Degrees *float64 `json:"degrees"`
		} `json:"maxTemperature"`
		MinTemperature struct {
			Degrees *float64 `json:"degrees"`
		} `json:"minTemperature"`
		DaytimeForecast   googleDayPart `json:"daytimeForecast"`
		NighttimeForecast googleDayPart `json:"nighttimeForecast"`
	} `json:"forecastDays"`
}

type googleDayPart struct {
	RelativeHumidity *float64 `json:"relativeHumidity"`
	Wind             struct {
		Speed struct {
			Value *float64 `json:"value"`
			Unit  string   `json:"unit"`
		} `json:"speed"`
	} `json:"wind"`
	Precipitation struct {
		Qpf struct {
			Quantity *float64 `json:"quantity"`
			Unit     string   `json:"unit"`
		} `json:"qpf"`
	} `json:"precipitation"`
}

// Daily returns up to 10 forecast days; requests beyond that are clamped.
func (g *GoogleWeather) Daily(ctx context.Context, coords models.Coordinates, days int) ([]weather.DailyReading, error) {
	if g.apiKey == "" {
		return nil, weather.ErrDisabled
	}
	if days < 1 {
		days = 1
	}
	if days > 10 {
		days = 10
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", g.apiKey)
		values.Set("location.latitude", fmt.Sprintf("%f", coords.Lat))
		values.Set("location.longitude", fmt.Sprintf("%f", coords.Lon))
		values.Set("days", fmt.Sprintf("%d", days))
		return http.NewRequest(http.MethodGet, g.daysURL+"?"+values.Encode(), nil)
	}

	resp, err := doRequestWithResilience(ctx, g.httpCfg, g.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("google daily: %w", err)
	}
	defer resp.Body.Close()

	var payload googleDaysResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("google daily: %w", err)
	}

	out := make([]weather.DailyReading, 0, len(payload.ForecastDays))
	for _, d := range payload.ForecastDays {
		r := weather.DailyReading{
			Date:     time.Date(d.DisplayDate.Year, time.Month(d.DisplayDate.Month), d.DisplayDate.Day, 0, 0, 0, 0, time.UTC),
			TempMaxC: d.MaxTemperature.Degrees,
			TempMinC: d.MinTemperature.Degrees,
		}
		if r.TempMaxC != nil && r.TempMinC != nil {
			r.TempMeanC = weather.Float((*r.TempMaxC + *r.TempMinC) / 2)
		} else if r.TempMaxC != nil {
			r.TempMeanC = r.TempMaxC
		} else if r.TempMinC != nil {
			r.TempMeanC = r.TempMinC
		}
		r.HumidityPct = averagePtr(d.DaytimeForecast.RelativeHumidity, d.NighttimeForecast.RelativeHumidity)

		var winds []float64
		for _, part := range []googleDayPart{d.DaytimeForecast, d.NighttimeForecast} {
			if v := part.Wind.Speed.Value; v != nil {
				winds = append(winds, windToKmh(*v, part.Wind.Speed.Unit))
			}
		}
		if len(winds) > 0 {
			sum := 0.0
			for _, w := range winds {
				sum += w
			}
			r.WindSpeedKmh = weather.Float(sum / float64(len(winds)))
		}

		precip := 0.0
		for _, part := range []googleDayPart{d.DaytimeForecast, d.NighttimeForecast} {
			if q := part.Precipitation.Qpf.Quantity; q != nil {
				precip += *q
			}
		}
		r.PrecipMm = weather.Float(precip)

		out = append(out, r)
	}
	return out, nil
}

// windToKmh converts a wind speed to km/h. Unqualified values are assumed
// to be m/s, matching the API's default unit.
func windToKmh(v float64, unit string) float64 {
	switch unit {
	case "KILOMETERS_PER_HOUR":
		return v
	case "MILES_PER_HOUR":
		return v * 1.60934
	default:
		return v * 3.6
	}
}

func averagePtr(a, b *float64) *float64 {
	switch {
	case a != nil && b != nil:
		return weather.Float((*a + *b) / 2)
	case a != nil:
		return a
	case b != nil:
		return b
	default:
		return nil
	}
}
