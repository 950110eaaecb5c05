// Package answer classifies queries, composes prompts and produces the
// final answer record.
package answer

import (
	"regexp"
	"strings"

	"github.com/agrisage/agrisage/internal/models"
)

// Known crops for the specific-crop intent. Lowercase, longest names
// first is not required since detection is substring-based.
var cropNames = []string{
	"rice", "paddy", "wheat", "maize", "corn", "sugarcane", "cotton",
	"soybean", "barley", "mustard", "chickpea", "lentil", "peas",
	"groundnut", "millet", "sorghum", "jute", "onion", "potato",
	"tomato", "ragi", "bajra", "jowar", "turmeric", "banana", "mango",
}

var recommendWords = []string{
	"recommend", "suggestion", "suggest", "which crop", "what crop",
	"what to grow", "what should i grow", "what can i grow", "best crop",
	"suitable crop", "seed variety", "seed varieties", "which seed",
	"what to plant", "which variety",
}

var adviceWords = []string{
	"irrigat", "fertiliz", "fertilis", "pesticide", "harvest", "sow",
	"plant", "spray", "manure", "weed", "prune", "mulch", "transplant",
}

var reTomorrow = regexp.MustCompile(`\btomorrow\b`)
var reTemperature = regexp.MustCompile(`\btemp(erature)?\b|how (hot|cold|warm)\b`)

// factSubjects maps a weather fact question to the snapshot field it
// reads. Order matters only for reporting; detection is any-match.
var factSubjects = []string{"temperature", "humidity", "wind", "soil moisture", "rain", "precipitation"}

// ClassifyIntent assigns a query its intent. First match in priority
// order wins, so "tomorrow temperature" never falls through to the
// generic weather path.
func ClassifyIntent(query string) models.Intent {
	q := strings.ToLower(query)

	if reTomorrow.MatchString(q) && reTemperature.MatchString(q) {
		return models.IntentTomorrowTemperature
	}
	if isWeatherFact(q) {
		return models.IntentWeatherFact
	}
	if containsAny(q, recommendWords) {
		return models.IntentCropRecommendation
	}
	if crop := namedCrop(q); crop != "" {
		return models.IntentSpecificCrop
	}
	if isWeatherOverview(q) {
		return models.IntentWeatherOverview
	}
	if containsAny(q, adviceWords) || strings.Contains(q, "farming") || strings.Contains(q, "agricult") {
		return models.IntentFarmingAdvice
	}
	return models.IntentGeneric
}

// isWeatherFact matches single-metric questions about current
// conditions: "what is the humidity", "how windy is it today".
func isWeatherFact(q string) bool {
	if !strings.Contains(q, "what") && !strings.Contains(q, "how") && !strings.Contains(q, "current") {
		return false
	}
	subject := false
	for _, s := range factSubjects {
		if strings.Contains(q, s) {
			subject = true
			break
		}
	}
	if strings.Contains(q, "windy") || strings.Contains(q, "humid") ||
		strings.Contains(q, "hot") || strings.Contains(q, "cold") {
		subject = true
	}
	if !subject {
		return false
	}
	// Forward-looking questions need the series, not a current fact.
	if reTomorrow.MatchString(q) || strings.Contains(q, "next") ||
		strings.Contains(q, "forecast") || strings.Contains(q, "week") ||
		strings.Contains(q, "month") {
		return false
	}
	// Crop context makes it an advisory question.
	if namedCrop(q) != "" || containsAny(q, recommendWords) {
		return false
	}
	return true
}

func isWeatherOverview(q string) bool {
	if !strings.Contains(q, "weather") && !strings.Contains(q, "climate") &&
		!strings.Contains(q, "forecast") {
		return false
	}
	return namedCrop(q) == "" && !containsAny(q, recommendWords)
}

// namedCrop returns the first crop mentioned in the query, or "".
func namedCrop(q string) string {
	for _, crop := range cropNames {
		if containsWord(q, crop) {
			return crop
		}
	}
	return ""
}

func containsAny(q string, words []string) bool {
	for _, w := range words {
		if strings.Contains(q, w) {
			return true
		}
	}
	return false
}

// containsWord matches whole words so "corn" does not match "cornerstone".
func containsWord(q, word string) bool {
	idx := 0
	for {
		i := strings.Index(q[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordByte(q[start-1])
		afterOK := end == len(q) || !isWordByte(q[end])
		// Allow plural.
		if !afterOK && end < len(q) && q[end] == 's' {
			afterOK = end+1 == len(q) || !isWordByte(q[end+1])
		}
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
