package weather

import (
	"fmt"

	"github.com/agrisage/agrisage/internal/models"
)

// Describe renders a snapshot as a short human-readable sentence.
func Describe(s *models.WeatherSnapshot) string {
	return fmt.Sprintf("%s, %s, %s",
		tempWord(s.TemperatureC), humidityWord(s.HumidityPct), windWord(s.WindSpeedKmh))
}

func tempWord(t float64) string {
	switch {
	case t >= 35:
		return "hot"
	case t >= 25:
		return "warm"
	case t >= 15:
		return "mild"
	case t >= 5:
		return "cool"
	default:
		return "cold"
	}
}

func humidityWord(h float64) string {
	switch {
	case h >= 80:
		return "humid"
	case h >= 40:
		return "comfortable humidity"
	default:
		return "dry"
	}
}

func windWord(w float64) string {
	switch {
	case w >= 25:
		return "windy"
	case w >= 10:
		return "breezy"
	default:
		return "calm"
	}
}
