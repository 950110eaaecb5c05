package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9090
retrieval:
  score_threshold: 0.5
corpus:
  paths:
    - /data/corpus
  watch_enabled: true
scheduler:
  enabled: true
  locations: [Pune, Nagpur]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Retrieval.ScoreThreshold != 0.5 {
		t.Errorf("ScoreThreshold = %f", cfg.Retrieval.ScoreThreshold)
	}
	if !cfg.Corpus.WatchEnabled || len(cfg.Corpus.Paths) != 1 {
		t.Errorf("corpus = %+v", cfg.Corpus)
	}
	if !cfg.Scheduler.Enabled || len(cfg.Scheduler.Locations) != 2 {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
	// Unset fields pick up defaults.
	if cfg.Retrieval.TopK != DefaultTopK {
		t.Errorf("TopK = %d, want default %d", cfg.Retrieval.TopK, DefaultTopK)
	}
	if cfg.Weather.MaxTimelineDays != DefaultMaxTimelineDays {
		t.Errorf("MaxTimelineDays = %d", cfg.Weather.MaxTimelineDays)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file did not error")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not: a: map")
	if _, err := Load(path); err == nil {
		t.Error("invalid yaml did not error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("VISUAL_CROSSING_API_KEY", "vc-key")
	t.Setenv("GENERATOR_API_KEY", "gen-key")

	path := writeConfig(t, "server:\n  port: 8080\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Weather.GoogleAPIKey != "g-key" {
		t.Errorf("GoogleAPIKey = %q", cfg.Weather.GoogleAPIKey)
	}
	// The geocoder inherits the Google key unless set explicitly.
	if cfg.Geocode.APIKey != "g-key" {
		t.Errorf("Geocode.APIKey = %q", cfg.Geocode.APIKey)
	}
	if cfg.Weather.VisualCrossingAPIKey != "vc-key" {
		t.Errorf("VisualCrossingAPIKey = %q", cfg.Weather.VisualCrossingAPIKey)
	}
	if cfg.Generator.APIKey != "gen-key" {
		t.Errorf("Generator.APIKey = %q", cfg.Generator.APIKey)
	}
}

func TestLoad_GeocodeKeyNotOverwritten(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "g-key")
	path := writeConfig(t, "geocode:\n  api_key: explicit\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Geocode.APIKey != "explicit" {
		t.Errorf("Geocode.APIKey = %q, want explicit", cfg.Geocode.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, true},
		{"threshold above one", func(c *Config) { c.Retrieval.ScoreThreshold = 1.5 }, true},
		{"mode bands inverted", func(c *Config) {
			c.Weather.UltraFastMaxDays = 100
			c.Weather.FastMaxDays = 90
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = 9999
	cfg.Corpus.Paths = []string{"/data/corpus"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Server.Port != 9999 {
		t.Errorf("Port = %d", loaded.Server.Port)
	}
	if len(loaded.Corpus.Paths) != 1 || loaded.Corpus.Paths[0] != "/data/corpus" {
		t.Errorf("Paths = %v", loaded.Corpus.Paths)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	tests := []struct {
		in   string
		want string
	}{
		{"~/.agrisage", filepath.Join(home, ".agrisage")},
		{"~", home},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
