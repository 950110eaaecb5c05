package corpus

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/agrisage/agrisage/internal/models"
)

// WeatherChunks renders a location's current snapshot and daily series as
// retrievable sentences. Each day carries a relative-date tag so queries
// like "tomorrow" or "next week" match the right chunk.
func WeatherChunks(location string, snap *models.WeatherSnapshot, days []models.DailyWeather, soilType string, maxChars int) []*models.Chunk {
	var chunks []*models.Chunk
	add := func(text, sourceID string) {
		normalized := NormalizeText(text, maxChars)
		if normalized == "" {
			return
		}
		chunks = append(chunks, &models.Chunk{
			ID:       uuid.New().String(),
			SourceID: sourceID,
			Content:  normalized,
			Index:    len(chunks),
			Weather:  true,
			Location: strings.ToLower(strings.TrimSpace(location)),
		})
	}

	sourceBase := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(location)), " ", "_")

	if snap != nil {
		add(fmt.Sprintf(
			"Current weather in %s: Temperature %.1f C, Humidity %.0f percent, Soil moisture %.1f percent, Wind speed %.1f km/h, Description: %s",
			location, snap.TemperatureC, snap.HumidityPct, snap.SoilMoisturePct, snap.WindSpeedKmh, snap.Description,
		), "weather_current_"+sourceBase)
	}

	for i, day := range days {
		if i >= 120 {
			break
		}
		text := fmt.Sprintf(
			"Weather forecast for %s on day %d: Temperature %.1f C, Humidity %.0f percent, Soil moisture %.1f percent, Wind speed %.1f km/h, Precipitation %.1f mm%s",
			location, i+1, day.TempMeanC, day.HumidityPct, day.SoilMoisturePct, day.WindSpeedKmh, day.PrecipMm, dayTag(i),
		)
		add(text, fmt.Sprintf("weather_forecast_%s_day_%d", sourceBase, i+1))
	}

	if soilType != "" {
		add(fmt.Sprintf("Soil information for %s: Dominant soil type is %s", location, soilType),
			"soil_info_"+sourceBase)
	}
	return chunks
}

// dayTag labels a zero-based day offset relative to today.
func dayTag(i int) string {
	switch {
	case i == 0:
		return " (today)"
	case i == 1:
		return " (tomorrow)"
	case i < 7:
		return fmt.Sprintf(" (in %d days)", i)
	case i < 30:
		return fmt.Sprintf(" (in %d days, week %d)", i, i/7+1)
	default:
		return fmt.Sprintf(" (in %d days, month %d)", i, i/30+1)
	}
}
