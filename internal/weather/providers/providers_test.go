package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agrisage/agrisage/internal/models"
	"github.com/agrisage/agrisage/internal/weather"
)

var testCoords = models.Coordinates{Lat: 18.52, Lon: 73.86}

func TestGoogle_DisabledWithoutKey(t *testing.T) {
	g := NewGoogleWeather("", nil)
	if _, err := g.Current(context.Background(), testCoords); err != weather.ErrDisabled {
		t.Errorf("Current err = %v, want ErrDisabled", err)
	}
	if _, err := g.Daily(context.Background(), testCoords, 5); err != weather.ErrDisabled {
		t.Errorf("Daily err = %v, want ErrDisabled", err)
	}
}

func TestGoogle_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hours" {
			t.Errorf("path = %s, want /hours", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("missing api key")
		}
		_, _ = w.Write([]byte(`{
			"forecastHours": [{
				"temperature": {"degrees": 31.5},
				"relativeHumidity": 64,
				"wind": {"speed": {"value": 5, "unit": "KILOMETERS_PER_HOUR"}}
			}]
		}`))
	}))
	defer srv.Close()

	g := NewGoogleWeather("test-key", srv.Client(), WithGoogleBaseURL(srv.URL))
	reading, err := g.Current(context.Background(), testCoords)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if reading.Provider != "google" {
		t.Errorf("Provider = %s", reading.Provider)
	}
	if reading.TemperatureC == nil || *reading.TemperatureC != 31.5 {
		t.Errorf("TemperatureC = %v", reading.TemperatureC)
	}
	if reading.HumidityPct == nil || *reading.HumidityPct != 64 {
		t.Errorf("HumidityPct = %v", reading.HumidityPct)
	}
	if reading.WindSpeedKmh == nil || *reading.WindSpeedKmh != 5 {
		t.Errorf("WindSpeedKmh = %v", reading.WindSpeedKmh)
	}
}

func TestGoogle_Daily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("days"); got != "10" {
			t.Errorf("days = %s, want clamp to 10", got)
		}
		_, _ = w.Write([]byte(`{
			"forecastDays": [{
				"displayDate": {"year": 2026, "month": 8, "day": 24},
				"maxTemperature": {"degrees": 32},
				"minTemperature": {"degrees": 24},
				"daytimeForecast": {
					"relativeHumidity": 70,
					"wind": {"speed": {"value": 10, "unit": "KILOMETERS_PER_HOUR"}},
					"precipitation": {"qpf": {"quantity": 3, "unit": "MILLIMETERS"}}
				},
				"nighttimeForecast": {
					"relativeHumidity": 80,
					"wind": {"speed": {"value": 6, "unit": "KILOMETERS_PER_HOUR"}},
					"precipitation": {"qpf": {"quantity": 1, "unit": "MILLIMETERS"}}
				}
			}]
		}`))
	}))
	defer srv.Close()

	g := NewGoogleWeather("test-key", srv.Client(), WithGoogleBaseURL(srv.URL))
	days, err := g.Daily(context.Background(), testCoords, 30)
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("len = %d", len(days))
	}
	d := days[0]
	if d.Date.Day() != 24 {
		t.Errorf("Date = %v", d.Date)
	}
	if d.TempMeanC == nil || *d.TempMeanC != 28 {
		t.Errorf("TempMeanC = %v, want mean of max/min", d.TempMeanC)
	}
	if d.HumidityPct == nil || *d.HumidityPct != 75 {
		t.Errorf("HumidityPct = %v, want day/night average", d.HumidityPct)
	}
	if d.WindSpeedKmh == nil || *d.WindSpeedKmh != 8 {
		t.Errorf("WindSpeedKmh = %v", d.WindSpeedKmh)
	}
	if d.PrecipMm == nil || *d.PrecipMm != 4 {
		t.Errorf("PrecipMm = %v, want day+night sum", d.PrecipMm)
	}
}

func TestWindToKmh(t *testing.T) {
	tests := []struct {
		v    float64
		unit string
		want float64
	}{
		{10, "KILOMETERS_PER_HOUR", 10},
		{10, "MILES_PER_HOUR", 16.0934},
		{10, "", 36}, // default unit is m/s
	}
	for _, tt := range tests {
		got := windToKmh(tt.v, tt.unit)
		if got < tt.want-0.001 || got > tt.want+0.001 {
			t.Errorf("windToKmh(%v, %q) = %f, want %f", tt.v, tt.unit, got, tt.want)
		}
	}
}

func TestVisualCrossing_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("unitGroup") != "metric" {
			t.Error("unitGroup not metric")
		}
		_, _ = w.Write([]byte(`{
			"currentConditions": {"temp": 27.2, "humidity": 78, "windspeed": 9}
		}`))
	}))
	defer srv.Close()

	v := NewVisualCrossing("test-key", srv.Client(), WithVisualCrossingBaseURL(srv.URL))
	reading, err := v.Current(context.Background(), testCoords)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if *reading.TemperatureC != 27.2 || *reading.HumidityPct != 78 || *reading.WindSpeedKmh != 9 {
		t.Errorf("reading = %+v", reading)
	}
}

func TestVisualCrossing_Daily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"days": [
				{"datetime": "2026-08-24", "tempmax": 30, "tempmin": 22, "humidity": 70, "precip": 2},
				{"datetime": "not-a-date"},
				{"datetime": "2026-08-25", "temp": 25}
			]
		}`))
	}))
	defer srv.Close()

	v := NewVisualCrossing("test-key", srv.Client(), WithVisualCrossingBaseURL(srv.URL))
	days, err := v.Daily(context.Background(), testCoords, 2)
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	// The malformed date row is dropped.
	if len(days) != 2 {
		t.Fatalf("len = %d, want 2", len(days))
	}
	if days[0].TempMeanC == nil || *days[0].TempMeanC != 26 {
		t.Errorf("TempMeanC = %v, want derived 26", days[0].TempMeanC)
	}
	if days[1].TempMeanC == nil || *days[1].TempMeanC != 25 {
		t.Errorf("TempMeanC = %v, want provided 25", days[1].TempMeanC)
	}
}

func TestVisualCrossing_DisabledWithoutKey(t *testing.T) {
	v := NewVisualCrossing("", nil)
	if _, err := v.Current(context.Background(), testCoords); err != weather.ErrDisabled {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}

func TestOpenMeteo_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("wind_speed_unit") != "kmh" {
			t.Error("wind unit not kmh")
		}
		_, _ = w.Write([]byte(`{
			"current": {
				"temperature_2m": 26.1,
				"relative_humidity_2m": 81,
				"wind_speed_10m": 12,
				"soil_moisture_0_to_7cm": 0.23
			}
		}`))
	}))
	defer srv.Close()

	o := NewOpenMeteo(srv.Client(), WithOpenMeteoBaseURL(srv.URL))
	reading, err := o.Current(context.Background(), testCoords)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if reading.SoilMoisturePct == nil || *reading.SoilMoisturePct != 23 {
		t.Errorf("SoilMoisturePct = %v, want 23 (fraction to percent)", reading.SoilMoisturePct)
	}
}

func TestOpenMeteo_Daily(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("forecast_days"); got != "16" {
			t.Errorf("forecast_days = %s, want clamp to 16", got)
		}
		_, _ = w.Write([]byte(`{
			"daily": {
				"time": ["2026-08-24", "2026-08-25"],
				"temperature_2m_max": [31, 30],
				"temperature_2m_min": [23, 22],
				"relative_humidity_2m_mean": [75, 74],
				"wind_speed_10m_max": [14, 13],
				"precipitation_sum": [0.5, 12]
			}
		}`))
	}))
	defer srv.Close()

	o := NewOpenMeteo(srv.Client(), WithOpenMeteoBaseURL(srv.URL))
	days, err := o.Daily(context.Background(), testCoords, 100)
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("len = %d", len(days))
	}
	if *days[0].TempMeanC != 27 || *days[1].PrecipMm != 12 {
		t.Errorf("days = %+v", days)
	}
}

func TestNASAPower_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("parameters") != "GWETTOP" {
			t.Error("missing GWETTOP parameter")
		}
		// -999 marks a missing archive day; the latest valid value wins.
		_, _ = w.Write([]byte(`{
			"properties": {"parameter": {"GWETTOP": {
				"20260818": 0.31,
				"20260819": 0.28,
				"20260820": -999
			}}}
		}`))
	}))
	defer srv.Close()

	n := NewNASAPower(srv.Client(), WithNASAPowerBaseURL(srv.URL))
	reading, err := n.Current(context.Background(), testCoords)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if reading.SoilMoisturePct == nil || *reading.SoilMoisturePct != 28 {
		t.Errorf("SoilMoisturePct = %v, want 28 (latest valid)", reading.SoilMoisturePct)
	}
}

func TestNASAPower_NoValidValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties": {"parameter": {"GWETTOP": {"20260820": -999}}}}`))
	}))
	defer srv.Close()

	n := NewNASAPower(srv.Client(), WithNASAPowerBaseURL(srv.URL))
	if _, err := n.Current(context.Background(), testCoords); err == nil {
		t.Error("all-missing window did not error")
	}
}

func TestNASAPower_DailySortedAndFiltered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"properties": {"parameter": {"GWETTOP": {
				"20260820": 0.30,
				"20260818": 0.20,
				"20260819": -999
			}}}
		}`))
	}))
	defer srv.Close()

	n := NewNASAPower(srv.Client(), WithNASAPowerBaseURL(srv.URL))
	days, err := n.Daily(context.Background(), testCoords, 7)
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("len = %d, want 2 (missing day dropped)", len(days))
	}
	if !days[0].Date.Before(days[1].Date) {
		t.Error("days not in ascending date order")
	}
	if *days[0].SoilMoisturePct != 20 || *days[1].SoilMoisturePct != 30 {
		t.Errorf("soil = %v, %v", *days[0].SoilMoisturePct, *days[1].SoilMoisturePct)
	}
}

func TestResilience_RetriesTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"current": {"temperature_2m": 20}}`))
	}))
	defer srv.Close()

	o := NewOpenMeteo(srv.Client(), WithOpenMeteoBaseURL(srv.URL))
	o.httpCfg.Backoff.InitialInterval = 10 * time.Millisecond

	reading, err := o.Current(context.Background(), testCoords)
	if err != nil {
		t.Fatalf("Current after retry: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if *reading.TemperatureC != 20 {
		t.Errorf("TemperatureC = %v", *reading.TemperatureC)
	}
}

func TestResilience_GivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := NewOpenMeteo(srv.Client(), WithOpenMeteoBaseURL(srv.URL))
	o.httpCfg.Backoff.MaxRetries = 1
	o.httpCfg.Backoff.InitialInterval = 5 * time.Millisecond

	if _, err := o.Current(context.Background(), testCoords); err == nil {
		t.Fatal("persistent 500 did not error")
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want initial + 1 retry", calls)
	}
}

func TestResilience_ClientErrorFailsFast(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	o := NewOpenMeteo(srv.Client(), WithOpenMeteoBaseURL(srv.URL))
	o.httpCfg.Backoff.InitialInterval = 5 * time.Millisecond

	if _, err := o.Current(context.Background(), testCoords); err == nil {
		t.Fatal("400 did not error")
	}
	// A 4xx cannot succeed on retry; retries are reserved for 429/5xx.
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
