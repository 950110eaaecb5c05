package config

// Default values applied to zero fields.
const (
	DefaultPort               = 8080
	DefaultSnapshotTTL        = 300
	DefaultSoilTTL            = 1800
	DefaultGeocodeTTL         = 3600
	DefaultUltraFastMaxDays   = 60
	DefaultFastMaxDays        = 90
	DefaultMaxTimelineDays    = 120
	DefaultWorkers            = 4
	DefaultCallTimeoutSec     = 15
	DefaultRequestTimeoutSec  = 10
	DefaultHumidityPct        = 65.0
	DefaultTopK               = 15
	DefaultMaxResults         = 10
	DefaultScoreThreshold     = 0.2
	DefaultLocationBoost      = 0.3
	DefaultWeatherBoost       = 0.1
	DefaultConfidenceCap      = 0.95
	DefaultDimensions         = 384
	DefaultMaxTokens          = 256
	DefaultEmbedCacheSize     = 10000
	DefaultMaxChunks          = 4000
	DefaultMaxRowsPerFile     = 1000
	DefaultMaxChunkChars      = 1000
	DefaultGenMaxTokens       = 512
	DefaultGenTimeoutSec      = 30
	DefaultRefreshIntervalMin = 30
	DefaultDataDir            = "~/.agrisage"
)

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Weather.SnapshotTTLSeconds == 0 {
		c.Weather.SnapshotTTLSeconds = DefaultSnapshotTTL
	}
	if c.Weather.SoilTTLSeconds == 0 {
		c.Weather.SoilTTLSeconds = DefaultSoilTTL
	}
	if c.Weather.UltraFastMaxDays == 0 {
		c.Weather.UltraFastMaxDays = DefaultUltraFastMaxDays
	}
	if c.Weather.FastMaxDays == 0 {
		c.Weather.FastMaxDays = DefaultFastMaxDays
	}
	if c.Weather.MaxTimelineDays == 0 {
		c.Weather.MaxTimelineDays = DefaultMaxTimelineDays
	}
	if c.Weather.Workers == 0 {
		c.Weather.Workers = DefaultWorkers
	}
	if c.Weather.CallTimeoutSeconds == 0 {
		c.Weather.CallTimeoutSeconds = DefaultCallTimeoutSec
	}
	if c.Weather.RequestTimeoutSeconds == 0 {
		c.Weather.RequestTimeoutSeconds = DefaultRequestTimeoutSec
	}
	if c.Weather.DefaultHumidity == 0 {
		c.Weather.DefaultHumidity = DefaultHumidityPct
	}

	if c.Geocode.TTLSeconds == 0 {
		c.Geocode.TTLSeconds = DefaultGeocodeTTL
	}

	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = DefaultTopK
	}
	if c.Retrieval.MaxResults == 0 {
		c.Retrieval.MaxResults = DefaultMaxResults
	}
	if c.Retrieval.ScoreThreshold == 0 {
		c.Retrieval.ScoreThreshold = DefaultScoreThreshold
	}
	if c.Retrieval.LocationBoost == 0 {
		c.Retrieval.LocationBoost = DefaultLocationBoost
	}
	if c.Retrieval.WeatherBoost == 0 {
		c.Retrieval.WeatherBoost = DefaultWeatherBoost
	}
	if c.Retrieval.ConfidenceCap == 0 {
		c.Retrieval.ConfidenceCap = DefaultConfidenceCap
	}

	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = DefaultDimensions
	}
	if c.Embedding.MaxTokens == 0 {
		c.Embedding.MaxTokens = DefaultMaxTokens
	}
	if c.Embedding.CacheSize == 0 {
		c.Embedding.CacheSize = DefaultEmbedCacheSize
	}

	if c.Corpus.MaxChunks == 0 {
		c.Corpus.MaxChunks = DefaultMaxChunks
	}
	if c.Corpus.MaxRowsPerFile == 0 {
		c.Corpus.MaxRowsPerFile = DefaultMaxRowsPerFile
	}
	if c.Corpus.MaxChunkChars == 0 {
		c.Corpus.MaxChunkChars = DefaultMaxChunkChars
	}

	if c.Generator.BaseURL == "" {
		c.Generator.BaseURL = "https://api.openai.com/v1"
	}
	if c.Generator.Model == "" {
		c.Generator.Model = "gpt-4o-mini"
	}
	if c.Generator.MaxTokens == 0 {
		c.Generator.MaxTokens = DefaultGenMaxTokens
	}
	if c.Generator.Temperature == 0 {
		c.Generator.Temperature = 0.3
	}
	if c.Generator.TimeoutSeconds == 0 {
		c.Generator.TimeoutSeconds = DefaultGenTimeoutSec
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = DefaultDataDir
	}

	if c.Scheduler.RefreshIntervalMinutes == 0 {
		c.Scheduler.RefreshIntervalMinutes = DefaultRefreshIntervalMin
	}
}
