package answer

import (
	"github.com/agrisage/agrisage/internal/models"
)

// CropAnalysis summarizes a forecast series as crop suitability.
type CropAnalysis struct {
	AvgTempC      float64  `json:"avg_temp_c"`
	AvgHumidity   float64  `json:"avg_humidity_pct"`
	TotalPrecipMm float64  `json:"total_precip_mm"`
	Suitable      []string `json:"suitable"`
	Avoid         []string `json:"avoid"`
}

// Suitability thresholds. Hot+humid means the coming weeks favor
// water-tolerant crops; the wet-avoid list always carries at least one
// crop so advisories never say "plant anything".
const (
	hotTempC       = 25.0
	coolTempC      = 20.0
	humidPct       = 70.0
	wetSeriesMm    = 50.0
	dryHumidityPct = 50.0
)

// AnalyzeForCrops averages the series and applies fixed agronomy tables.
func AnalyzeForCrops(series *models.WeatherSeries) CropAnalysis {
	a := CropAnalysis{}
	if series == nil || len(series.Days) == 0 {
		return a
	}
	for _, d := range series.Days {
		a.AvgTempC += d.TempMeanC
		a.AvgHumidity += d.HumidityPct
		a.TotalPrecipMm += d.PrecipMm
	}
	n := float64(len(series.Days))
	a.AvgTempC /= n
	a.AvgHumidity /= n

	wet := a.AvgHumidity >= humidPct || a.TotalPrecipMm >= wetSeriesMm

	switch {
	case a.AvgTempC >= hotTempC && wet:
		a.Suitable = []string{"rice", "sugarcane", "jute", "taro"}
		a.Avoid = []string{"wheat", "chickpea", "onion"}
	case a.AvgTempC >= hotTempC:
		a.Suitable = []string{"cotton", "millet", "sorghum", "groundnut"}
		a.Avoid = []string{"peas", "mustard"}
	case a.AvgTempC >= coolTempC && a.AvgHumidity < dryHumidityPct:
		a.Suitable = []string{"maize", "soybean", "cotton"}
		a.Avoid = []string{"rice"}
	case a.AvgTempC >= coolTempC:
		a.Suitable = []string{"maize", "soybean", "vegetables"}
		a.Avoid = []string{"mustard"}
	default:
		a.Suitable = []string{"wheat", "barley", "mustard", "peas", "lentils"}
		a.Avoid = []string{"rice", "cotton"}
	}

	// Heavy rain on a cool series still needs a moisture-tolerant option
	// and a rot-prone crop to avoid.
	if wet && a.AvgTempC < hotTempC {
		a.Suitable = appendUnique(a.Suitable, "paddy")
		a.Avoid = appendUnique(a.Avoid, "onion")
	}
	return a
}

func appendUnique(list []string, item string) []string {
	for _, v := range list {
		if v == item {
			return list
		}
	}
	return append(list, item)
}
