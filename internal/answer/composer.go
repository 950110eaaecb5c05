package answer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agrisage/agrisage/internal/corpus"
	"github.com/agrisage/agrisage/internal/geo"
	"github.com/agrisage/agrisage/internal/models"
	"github.com/agrisage/agrisage/internal/retrieval"
	"github.com/agrisage/agrisage/internal/timeline"
	"github.com/agrisage/agrisage/internal/weather"
)

// Confidence values for the degraded paths.
const (
	confidenceDegraded     = 0.3
	confidenceNoResults    = 0.0
	confidenceLowRelevance = 0.1
)

const systemPrompt = "You are an agricultural advisor. Answer using only " +
	"the provided context. Be concise and practical. If the context does " +
	"not cover the question, say so."

// Composer ties weather, retrieval and generation into one answer per
// query.
type Composer struct {
	weather   *weather.Service
	extractor *timeline.Extractor
	engine    *retrieval.Engine
	geocoder  geo.Geocoder
	generator Generator
	logger    *zap.Logger

	// buildChunks supplies the weather chunks reserved ahead of the
	// corpus when the index is (re)built. Usually fed from the cached
	// locations of the weather service.
	buildChunks func(ctx context.Context) []*models.Chunk

	maxChunkChars int
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithComposerLogger sets the logger.
func WithComposerLogger(logger *zap.Logger) ComposerOption {
	return func(c *Composer) { c.logger = logger }
}

// WithBuildChunks sets the reserved-chunk source for index builds.
func WithBuildChunks(fn func(ctx context.Context) []*models.Chunk) ComposerOption {
	return func(c *Composer) { c.buildChunks = fn }
}

// WithMaxChunkChars bounds generated weather chunk length.
func WithMaxChunkChars(n int) ComposerOption {
	return func(c *Composer) { c.maxChunkChars = n }
}

// NewComposer creates a Composer. generator may be nil; every generated
// path then degrades to the deterministic answer.
func NewComposer(
	ws *weather.Service,
	extractor *timeline.Extractor,
	engine *retrieval.Engine,
	geocoder geo.Geocoder,
	generator Generator,
	opts ...ComposerOption,
) *Composer {
	c := &Composer{
		weather:       ws,
		extractor:     extractor,
		engine:        engine,
		geocoder:      geocoder,
		generator:     generator,
		logger:        zap.NewNop(),
		maxChunkChars: 1000,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Answer processes one query end to end. Only geocoding failures return
// an error; everything else degrades into a lower-confidence answer.
func (c *Composer) Answer(ctx context.Context, query, location string) (*models.AnswerRecord, error) {
	intent := ClassifyIntent(query)
	tl := c.extractor.Extract(query)

	series, err := c.weather.Series(ctx, location, tl)
	if err != nil {
		return nil, err
	}
	snap := series.Current

	record := &models.AnswerRecord{
		ID:           uuid.New().String(),
		Query:        query,
		Location:     location,
		Intent:       intent,
		TimelineDays: tl.Days,
		Degraded:     snap.Degraded,
		CreatedAt:    time.Now().UTC(),
	}

	switch intent {
	case models.IntentTomorrowTemperature:
		c.answerTomorrowTemperature(record, series)
		return record, nil
	case models.IntentWeatherFact:
		c.answerWeatherFact(record, query, snap)
		return record, nil
	case models.IntentWeatherOverview:
		c.answerWeatherOverview(record, series)
		return record, nil
	}

	return record, c.answerWithRetrieval(ctx, record, query, location, series)
}

// answerTomorrowTemperature reads day two of the series directly.
func (c *Composer) answerTomorrowTemperature(record *models.AnswerRecord, series *models.WeatherSeries) {
	if len(series.Days) < 2 {
		record.Answer = fmt.Sprintf("No forecast available for tomorrow in %s.", series.Location)
		record.Confidence = confidenceLowRelevance
		record.Degraded = true
		return
	}
	day := series.Days[1]
	record.Answer = fmt.Sprintf(
		"Tomorrow's temperature in %s is expected around %.1f C (low %.1f C, high %.1f C).",
		series.Location, day.TempMeanC, day.TempMinC, day.TempMaxC)
	record.Confidence = 0.90
	record.Sources = []string{"weather_forecast"}
}

// answerWeatherFact reads one metric from the current snapshot.
func (c *Composer) answerWeatherFact(record *models.AnswerRecord, query string, snap *models.WeatherSnapshot) {
	q := strings.ToLower(query)
	var fact string
	switch {
	case strings.Contains(q, "humid"):
		fact = fmt.Sprintf("The current humidity in %s is %.0f percent.", snap.Location, snap.HumidityPct)
	case strings.Contains(q, "wind"):
		fact = fmt.Sprintf("The current wind speed in %s is %.1f km/h (%.1f m/s).",
			snap.Location, snap.WindSpeedKmh, snap.WindSpeedMs)
	case strings.Contains(q, "soil"):
		fact = fmt.Sprintf("The current soil moisture in %s is %.1f percent.", snap.Location, snap.SoilMoisturePct)
	default:
		fact = fmt.Sprintf("The current temperature in %s is %.1f C.", snap.Location, snap.TemperatureC)
	}
	record.Answer = fact
	record.Confidence = 0.95
	if snap.Degraded {
		record.Confidence = confidenceDegraded
	}
	record.Sources = []string{"weather_current"}
}

// answerWeatherOverview summarizes current conditions and the series.
func (c *Composer) answerWeatherOverview(record *models.AnswerRecord, series *models.WeatherSeries) {
	snap := series.Current
	var b strings.Builder
	fmt.Fprintf(&b, "Weather in %s: %s. Temperature %.1f C, humidity %.0f percent, wind %.1f km/h, soil moisture %.1f percent.",
		snap.Location, snap.Description, snap.TemperatureC, snap.HumidityPct, snap.WindSpeedKmh, snap.SoilMoisturePct)
	if len(series.Days) > 1 {
		fmt.Fprintf(&b, " Over the next %d days temperatures range %.1f to %.1f C with about %.1f mm of rain expected.",
			len(series.Days), minTemp(series.Days), maxTemp(series.Days), totalPrecip(series.Days))
	}
	record.Answer = b.String()
	record.Confidence = 0.85
	if snap.Degraded {
		record.Confidence = confidenceDegraded
	}
	record.Sources = []string{"weather_current", "weather_forecast"}
}

// answerWithRetrieval runs the RAG path: live weather chunks merge with
// the indexed corpus, hits feed the generator, and any failure drops to
// the deterministic degraded answer.
func (c *Composer) answerWithRetrieval(ctx context.Context, record *models.AnswerRecord, query, location string, series *models.WeatherSeries) error {
	analysis := AnalyzeForCrops(series)
	ephemeral := c.weatherChunks(ctx, location, series)

	var reserved []*models.Chunk
	if c.buildChunks != nil {
		reserved = c.buildChunks(ctx)
	}
	if err := c.engine.EnsureIndex(ctx, reserved); err != nil {
		c.logger.Error("index unavailable", zap.Error(err))
		c.degradedAnswer(record, series, analysis)
		return nil
	}

	hits, candidates, err := c.engine.Search(ctx, query, location, ephemeral)
	if err != nil {
		c.logger.Error("search failed", zap.Error(err))
		c.degradedAnswer(record, series, analysis)
		return nil
	}

	switch {
	case candidates == 0:
		record.Answer = fmt.Sprintf("I could not find any information for %q. Try rephrasing or asking about weather or crops for a location.", query)
		record.Confidence = confidenceNoResults
		record.Degraded = true
		return nil
	case len(hits) == 0:
		record.Answer = fmt.Sprintf("I found no sufficiently relevant information for %q.", query)
		record.Confidence = confidenceLowRelevance
		record.Degraded = true
		return nil
	}

	record.Sources = sourceIDs(hits)
	confidence := c.engine.Confidence(hits)
	if floor, ok := datePrecisionFloor(query); ok && hasWeatherHit(hits) && floor > confidence {
		confidence = floor
	}
	record.Confidence = confidence

	if c.generator == nil {
		c.degradedAnswer(record, series, analysis)
		return nil
	}
	prompt := buildPrompt(record.Intent, query, location, hits, analysis)
	text, err := c.generator.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		if err != ErrGeneratorDisabled {
			c.logger.Warn("generation failed, using degraded answer", zap.Error(err))
		}
		c.degradedAnswer(record, series, analysis)
		return nil
	}
	record.Answer = strings.TrimSpace(text)
	return nil
}

// weatherChunks renders the live series as ephemeral chunks for this
// query only.
func (c *Composer) weatherChunks(ctx context.Context, location string, series *models.WeatherSeries) []*models.Chunk {
	soilType := ""
	if c.geocoder != nil {
		if place, err := c.geocoder.Geocode(ctx, location); err == nil {
			soilType = geo.SoilTypeForState(place.State)
		}
	}
	return corpus.WeatherChunks(location, series.Current, series.Days, soilType, c.maxChunkChars)
}

// degradedAnswer builds a deterministic answer from weather and crop
// tables when generation is unavailable.
func (c *Composer) degradedAnswer(record *models.AnswerRecord, series *models.WeatherSeries, analysis CropAnalysis) {
	snap := series.Current
	var b strings.Builder
	fmt.Fprintf(&b, "Based on conditions in %s (%s, %.1f C, humidity %.0f percent): ",
		snap.Location, snap.Description, snap.TemperatureC, snap.HumidityPct)
	if len(analysis.Suitable) > 0 {
		fmt.Fprintf(&b, "suitable crops include %s", strings.Join(analysis.Suitable, ", "))
		if len(analysis.Avoid) > 0 {
			fmt.Fprintf(&b, "; avoid %s", strings.Join(analysis.Avoid, ", "))
		}
		b.WriteString(".")
	} else {
		b.WriteString("no crop guidance is available for this period.")
	}
	record.Answer = b.String()
	record.Confidence = confidenceDegraded
	record.Degraded = true
}

// buildPrompt assembles the retrieval context and an intent-specific
// instruction.
func buildPrompt(intent models.Intent, query, location string, hits []models.SearchHit, analysis CropAnalysis) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for _, h := range hits {
		b.WriteString("- ")
		b.WriteString(h.Chunk.Content)
		b.WriteByte('\n')
	}
	if len(analysis.Suitable) > 0 {
		fmt.Fprintf(&b, "\nForecast analysis: avg temp %.1f C, avg humidity %.0f percent, total rain %.1f mm. Suitable: %s. Avoid: %s.\n",
			analysis.AvgTempC, analysis.AvgHumidity, analysis.TotalPrecipMm,
			strings.Join(analysis.Suitable, ", "), strings.Join(analysis.Avoid, ", "))
	}
	b.WriteString("\n")
	switch intent {
	case models.IntentCropRecommendation:
		fmt.Fprintf(&b, "Recommend crops to grow in %s with brief reasons. Question: %s", location, query)
	case models.IntentSpecificCrop:
		fmt.Fprintf(&b, "Answer the crop question for %s using the context. Question: %s", location, query)
	case models.IntentFarmingAdvice:
		fmt.Fprintf(&b, "Give practical farming advice for %s. Question: %s", location, query)
	default:
		fmt.Fprintf(&b, "Answer for %s. Question: %s", location, query)
	}
	return b.String()
}

var reInDays = regexp.MustCompile(`\bin (\d+) days?\b`)
var reWeekday = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday|day after)\b`)

// datePrecisionFloor returns the confidence floor for queries about a
// specific day, when live weather backs the answer.
func datePrecisionFloor(query string) (float64, bool) {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "today"):
		return 0.95, true
	case strings.Contains(q, "tomorrow"):
		return 0.90, true
	}
	if m := reInDays.FindStringSubmatch(q); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			floor := 0.95 - 0.05*float64(n)
			if floor < 0.60 {
				floor = 0.60
			}
			return floor, true
		}
	}
	if reWeekday.MatchString(q) {
		return 0.85, true
	}
	return 0, false
}

func hasWeatherHit(hits []models.SearchHit) bool {
	for _, h := range hits {
		if h.Chunk.Weather {
			return true
		}
	}
	return false
}

func sourceIDs(hits []models.SearchHit) []string {
	seen := make(map[string]bool, len(hits))
	var out []string
	for _, h := range hits {
		if h.Chunk.SourceID == "" || seen[h.Chunk.SourceID] {
			continue
		}
		seen[h.Chunk.SourceID] = true
		out = append(out, h.Chunk.SourceID)
	}
	return out
}

func minTemp(days []models.DailyWeather) float64 {
	m := days[0].TempMinC
	for _, d := range days[1:] {
		if d.TempMinC < m {
			m = d.TempMinC
		}
	}
	return m
}

func maxTemp(days []models.DailyWeather) float64 {
	m := days[0].TempMaxC
	for _, d := range days[1:] {
		if d.TempMaxC > m {
			m = d.TempMaxC
		}
	}
	return m
}

func totalPrecip(days []models.DailyWeather) float64 {
	var sum float64
	for _, d := range days {
		sum += d.PrecipMm
	}
	return sum
}
