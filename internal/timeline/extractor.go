// Package timeline extracts the forecast horizon from free-text queries.
package timeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/agrisage/agrisage/internal/models"
)

// Extractor parses queries for explicit time periods. When none is found,
// agricultural queries default to the full planning horizon and general
// queries to one week.
type Extractor struct {
	agriculturalDefault int
	generalDefault      int
	maxDays             int
}

// NewExtractor creates an Extractor with the given defaults. maxDays caps
// every result.
func NewExtractor(agriculturalDefault, generalDefault, maxDays int) *Extractor {
	if maxDays <= 0 {
		maxDays = 120
	}
	if agriculturalDefault <= 0 {
		agriculturalDefault = maxDays
	}
	if generalDefault <= 0 {
		generalDefault = 7
	}
	return &Extractor{
		agriculturalDefault: agriculturalDefault,
		generalDefault:      generalDefault,
		maxDays:             maxDays,
	}
}

var (
	reNumericDays   = regexp.MustCompile(`\b(\d+)\s*(?:days?|d)\b`)
	reNumericWeeks  = regexp.MustCompile(`\b(\d+)\s*(?:weeks?|w)\b`)
	reNumericMonths = regexp.MustCompile(`\b(\d+)\s*(?:months?|mo)\b`)
	reWordWeeks     = regexp.MustCompile(`\b(one|two|three|four|this|next|current|a)\s+weeks?\b`)
	reWordMonths    = regexp.MustCompile(`\b(one|two|three|four|this|next|a)\s+months?\b`)
	reSeason        = regexp.MustCompile(`\b(?:this|current|next|crop|planting|harvest|growing|kharif|rabi|zaid)\s+season\b|\bseason\b`)
)

var wordValues = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4,
	"this": 1, "next": 1, "current": 1, "a": 1,
}

// Extract returns the timeline for query.
func (e *Extractor) Extract(query string) models.Timeline {
	q := strings.ToLower(strings.TrimSpace(query))
	agricultural := isAgricultural(q)

	if days, ok := e.explicitDays(q); ok {
		return models.Timeline{
			Days:         e.clamp(days),
			Source:       models.TimelineExplicit,
			Agricultural: agricultural,
		}
	}
	if reSeason.MatchString(q) {
		return models.Timeline{
			Days:         e.clamp(e.maxDays),
			Source:       models.TimelineSeason,
			Agricultural: true,
		}
	}
	if agricultural {
		return models.Timeline{
			Days:         e.clamp(e.agriculturalDefault),
			Source:       models.TimelineAgriculturalDefault,
			Agricultural: true,
		}
	}
	return models.Timeline{
		Days:         e.clamp(e.generalDefault),
		Source:       models.TimelineGeneralDefault,
		Agricultural: false,
	}
}

// Days returns only the number of days for query.
func (e *Extractor) Days(query string) int {
	return e.Extract(query).Days
}

func (e *Extractor) explicitDays(q string) (int, bool) {
	if m := reNumericDays.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := reNumericWeeks.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 7, true
	}
	if m := reWordWeeks.FindStringSubmatch(q); m != nil {
		return wordValues[m[1]] * 7, true
	}
	if m := reNumericMonths.FindStringSubmatch(q); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n * 30, true
	}
	if m := reWordMonths.FindStringSubmatch(q); m != nil {
		return wordValues[m[1]] * 30, true
	}
	return 0, false
}

func (e *Extractor) clamp(days int) int {
	if days < 1 {
		return 1
	}
	if days > e.maxDays {
		return e.maxDays
	}
	return days
}

var agriculturalKeywords = []string{
	"crop", "seed", "plant", "harvest", "grow", "agriculture",
	"suitable", "variety", "soil", "moisture", "planting", "growing",
	"cultivation", "yield", "production", "irrigation", "sowing",
}

var weatherOnlyWords = []string{"weather", "forecast", "conditions"}

var strongAgriWords = []string{
	"crop", "seed", "plant", "harvest", "grow", "agriculture", "cultivation", "sowing",
}

// isAgricultural reports whether the query is about farming planning rather
// than plain weather. Pure weather queries are not agricultural even when
// they mention a farm, and "farm"/"farming" alone is not enough without a
// crop-related word.
func isAgricultural(q string) bool {
	if containsAny(q, weatherOnlyWords) && !containsAny(q, append(strongAgriWords, "farming", "farm")) {
		return false
	}
	if containsAny(q, []string{"farming", "farm"}) && !containsAny(q, strongAgriWords) {
		return false
	}
	return containsAny(q, agriculturalKeywords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
