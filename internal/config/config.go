// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Weather   WeatherConfig   `yaml:"weather"`
	Geocode   GeocodeConfig   `yaml:"geocode"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Generator GeneratorConfig `yaml:"generator"`
	Storage   StorageConfig   `yaml:"storage"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Debug     bool            `yaml:"debug"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WeatherConfig configures providers, caches and fetch strategies.
type WeatherConfig struct {
	GoogleAPIKey          string  `yaml:"google_api_key"`
	VisualCrossingAPIKey  string  `yaml:"visual_crossing_api_key"`
	SnapshotTTLSeconds    int     `yaml:"snapshot_ttl_seconds"`
	SoilTTLSeconds        int     `yaml:"soil_ttl_seconds"`
	UltraFastMaxDays      int     `yaml:"ultra_fast_max_days"`
	FastMaxDays           int     `yaml:"fast_max_days"`
	MaxTimelineDays       int     `yaml:"max_timeline_days"`
	Workers               int     `yaml:"workers"`
	CallTimeoutSeconds    int     `yaml:"call_timeout_seconds"`
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
	DefaultHumidity       float64 `yaml:"default_humidity"`
}

// GeocodeConfig configures the geocoder.
type GeocodeConfig struct {
	APIKey     string `yaml:"api_key"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// RetrievalConfig configures search behavior.
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k"`
	MaxResults     int     `yaml:"max_results"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	LocationBoost  float64 `yaml:"location_boost"`
	WeatherBoost   float64 `yaml:"weather_boost"`
	ConfidenceCap  float64 `yaml:"confidence_cap"`
}

// EmbeddingConfig configures the embedder.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// CorpusConfig configures corpus ingestion.
type CorpusConfig struct {
	Paths          []string `yaml:"paths"`
	MaxChunks      int      `yaml:"max_chunks"`
	MaxRowsPerFile int      `yaml:"max_rows_per_file"`
	MaxChunkChars  int      `yaml:"max_chunk_chars"`
	WatchEnabled   bool     `yaml:"watch_enabled"`
}

// GeneratorConfig configures the chat-completion backend.
type GeneratorConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// StorageConfig configures on-disk state.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// SchedulerConfig configures the periodic weather refresh job.
type SchedulerConfig struct {
	Enabled                bool     `yaml:"enabled"`
	Locations              []string `yaml:"locations"`
	RefreshIntervalMinutes int      `yaml:"refresh_interval_minutes"`
}

// Load reads the configuration from path. A .env file next to the config
// (or in the working directory) is loaded first so API keys can live
// outside the YAML; environment variables override key fields.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	cfg.applyEnv()
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Retrieval.ScoreThreshold < 0 || c.Retrieval.ScoreThreshold > 1 {
		return fmt.Errorf("score_threshold must be in [0,1], got %f", c.Retrieval.ScoreThreshold)
	}
	if c.Weather.UltraFastMaxDays > c.Weather.FastMaxDays {
		return fmt.Errorf("ultra_fast_max_days (%d) must not exceed fast_max_days (%d)",
			c.Weather.UltraFastMaxDays, c.Weather.FastMaxDays)
	}
	return nil
}

// applyEnv overrides secret-bearing fields from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		c.Weather.GoogleAPIKey = v
		if c.Geocode.APIKey == "" {
			c.Geocode.APIKey = v
		}
	}
	if v := os.Getenv("VISUAL_CROSSING_API_KEY"); v != "" {
		c.Weather.VisualCrossingAPIKey = v
	}
	if v := os.Getenv("GENERATOR_API_KEY"); v != "" {
		c.Generator.APIKey = v
	}
	if v := os.Getenv("GENERATOR_BASE_URL"); v != "" {
		c.Generator.BaseURL = v
	}
}

func (c *Config) expandPaths() {
	c.Storage.DataDir = expandPath(c.Storage.DataDir)
	c.Embedding.ModelPath = expandPath(c.Embedding.ModelPath)
	for i, p := range c.Corpus.Paths {
		c.Corpus.Paths[i] = expandPath(p)
	}
}

// expandPath expands a leading ~ to the user home directory.
func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
