package models

import "time"

// Intent is the classified purpose of a user query. Classification is
// first-match in priority order, so more specific intents win.
type Intent string

const (
	IntentTomorrowTemperature Intent = "tomorrow_temperature"
	IntentWeatherFact         Intent = "weather_fact"
	IntentCropRecommendation  Intent = "crop_recommendation"
	IntentSpecificCrop        Intent = "specific_crop"
	IntentWeatherOverview     Intent = "weather_overview"
	IntentFarmingAdvice       Intent = "farming_advice"
	IntentGeneric             Intent = "generic"
)

// AnswerRecord is the result of processing one query.
type AnswerRecord struct {
	ID           string    `json:"id"`
	Query        string    `json:"query"`
	Location     string    `json:"location"`
	Answer       string    `json:"answer"`
	Confidence   float64   `json:"confidence"`
	Intent       Intent    `json:"intent"`
	Sources      []string  `json:"sources,omitempty"`
	TimelineDays int       `json:"timeline_days"`
	Degraded     bool      `json:"degraded"`
	CreatedAt    time.Time `json:"created_at"`
}
