// Package main is the AgriSage CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/agrisage/agrisage/internal/answer"
	"github.com/agrisage/agrisage/internal/config"
	"github.com/agrisage/agrisage/internal/corpus"
	"github.com/agrisage/agrisage/internal/embedding"
	"github.com/agrisage/agrisage/internal/geo"
	"github.com/agrisage/agrisage/internal/keyword"
	"github.com/agrisage/agrisage/internal/models"
	"github.com/agrisage/agrisage/internal/retrieval"
	"github.com/agrisage/agrisage/internal/scheduler"
	"github.com/agrisage/agrisage/internal/server"
	"github.com/agrisage/agrisage/internal/storage"
	"github.com/agrisage/agrisage/internal/timeline"
	"github.com/agrisage/agrisage/internal/vector"
	"github.com/agrisage/agrisage/internal/watcher"
	"github.com/agrisage/agrisage/internal/weather"
	"github.com/agrisage/agrisage/internal/weather/providers"
	"github.com/agrisage/agrisage/pkg/utils"
)

var version = "dev"

// loadConfig resolves the config path: the explicit flag, then
// ./config.yaml, then ~/.agrisage/config.yaml, then built-in defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		cfg, err := config.Load("config.yaml")
		return cfg, "config.yaml", err
	}
	if home, err := os.UserHomeDir(); err == nil {
		fallback := filepath.Join(home, ".agrisage", "config.yaml")
		if _, err := os.Stat(fallback); err == nil {
			cfg, err := config.Load(fallback)
			return cfg, fallback, err
		}
	}
	return config.DefaultConfig(), "", nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve":
		runServe()
	case "ask":
		runAsk()
	case "weather":
		runWeather()
	case "index":
		runIndex()
	case "refresh":
		runRefresh()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("agrisage version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger, shared by every subcommand.
func setup(fs *flag.FlagSet, args []string) (*config.Config, *zap.Logger) {
	configPath := fs.String("config", "", "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolved, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if resolved != "" {
		logger.Debug("config loaded", zap.String("path", resolved))
	}
	return cfg, logger
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Corpus.WatchEnabled {
		w := watcher.New(cfg.Corpus.Paths, components.Engine.MarkStale,
			watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Warn("corpus watcher failed to start", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(
			cfg.Scheduler.Locations,
			time.Duration(cfg.Scheduler.RefreshIntervalMinutes)*time.Minute,
			components.Weather,
			components.Engine.MarkStale,
			logger,
		)
		if err := sched.Start(); err != nil {
			logger.Warn("scheduler failed to start", zap.Error(err))
		} else {
			defer sched.Stop()
		}
	}

	srv := server.NewServer(
		components.Composer,
		components.Weather,
		components.Extractor,
		components.Engine,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	query := fs.String("q", "", "question to ask")
	location := fs.String("l", "", "location the question is about")
	asJSON := fs.Bool("json", false, "print the full answer record as JSON")
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	if *query == "" || *location == "" {
		fmt.Println("Usage: agrisage ask -q <question> -l <location>")
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	record, err := components.Composer.Answer(context.Background(), *query, *location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", err)
		os.Exit(1)
	}
	if *asJSON {
		printJSON(record)
		return
	}
	fmt.Println(record.Answer)
	fmt.Printf("\nconfidence: %.2f  intent: %s  timeline: %d days", record.Confidence, record.Intent, record.TimelineDays)
	if record.Degraded {
		fmt.Print("  (degraded)")
	}
	fmt.Println()
}

func runWeather() {
	fs := flag.NewFlagSet("weather", flag.ExitOnError)
	location := fs.String("l", "", "location")
	query := fs.String("q", "", "optional query steering the forecast horizon")
	asJSON := fs.Bool("json", false, "print JSON")
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	if *location == "" {
		fmt.Println("Usage: agrisage weather -l <location> [-q <query>]")
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if *query == "" {
		snap, err := components.Weather.Snapshot(ctx, *location)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed: %v\n", err)
			os.Exit(1)
		}
		if *asJSON {
			printJSON(snap)
			return
		}
		fmt.Printf("%s: %s\n", snap.Location, snap.Description)
		fmt.Printf("  temperature:   %.1f C\n", snap.TemperatureC)
		fmt.Printf("  humidity:      %.0f %%\n", snap.HumidityPct)
		fmt.Printf("  wind:          %.1f km/h\n", snap.WindSpeedKmh)
		fmt.Printf("  soil moisture: %.1f %%\n", snap.SoilMoisturePct)
		if snap.Degraded {
			fmt.Println("  (estimated: all providers unavailable)")
		}
		return
	}

	tl := components.Extractor.Extract(*query)
	series, err := components.Weather.Series(ctx, *location, tl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed: %v\n", err)
		os.Exit(1)
	}
	if *asJSON {
		printJSON(series)
		return
	}
	fmt.Printf("%s, %d days (%s mode):\n", series.Location, len(series.Days), series.Mode)
	for _, day := range series.Days {
		fmt.Printf("  %s  %5.1f C  hum %3.0f%%  rain %5.1f mm  (%s)\n",
			day.Date.Format("2006-01-02"), day.TempMeanC, day.HumidityPct, day.PrecipMm, day.Source)
	}
	if len(series.CropHints) > 0 {
		fmt.Printf("crop hints: %v\n", series.CropHints)
	}
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	if err := components.Engine.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to clear index: %v\n", err)
		os.Exit(1)
	}
	if err := components.Engine.EnsureIndex(ctx, components.cachedWeatherChunks(ctx)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build index: %v\n", err)
		os.Exit(1)
	}
	st := components.Engine.Status(ctx)
	fmt.Printf("Index built: %d chunks (%s embedder)\n", st.ChunkCount, st.Embedder)
}

func runRefresh() {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if err := components.Weather.ClearCache(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to clear weather cache: %v\n", err)
		os.Exit(1)
	}
	if err := components.Engine.Refresh(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to clear index: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Weather cache and index cleared. The next query rebuilds both.")
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print JSON")
	cfg, logger := setup(fs, os.Args[2:])
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	st := components.Engine.Status(context.Background())
	if *asJSON {
		printJSON(st)
		return
	}
	fmt.Printf("index_exists:  %t\n", st.IndexExists)
	fmt.Printf("chunk_count:   %d\n", st.ChunkCount)
	fmt.Printf("embedder:      %s\n", st.Embedder)
	if !st.BuiltAt.IsZero() {
		fmt.Printf("built_at:      %s\n", st.BuiltAt.Format(time.RFC3339))
	}
	if age, ok := components.Weather.CacheAge(); ok {
		fmt.Printf("weather_cache: %d minutes old\n", int(age.Minutes()))
	} else {
		fmt.Println("weather_cache: empty")
	}
	if locs := components.Weather.CachedLocations(); len(locs) > 0 {
		fmt.Printf("locations:     %v\n", locs)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store     storage.ChunkStore
	Embedder  embedding.Embedder
	Keywords  *keyword.Index
	Weather   *weather.Service
	Extractor *timeline.Extractor
	Engine    *retrieval.Engine
	Composer  *answer.Composer
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Keywords != nil {
		_ = c.Keywords.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

// cachedWeatherChunks renders the persisted daily cache as chunks so
// index rebuilds keep weather for every known location.
func (c *Components) cachedWeatherChunks(ctx context.Context) []*models.Chunk {
	var chunks []*models.Chunk
	for _, loc := range c.Weather.CachedLocations() {
		days, _, ok := c.Weather.CachedSeries(loc)
		if !ok {
			continue
		}
		chunks = append(chunks, corpus.WeatherChunks(loc, nil, days, "", 0)...)
	}
	return chunks
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	dataDir := cfg.Storage.DataDir
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	geocoder := geo.NewGoogleGeocoder(
		cfg.Geocode.APIKey,
		time.Duration(cfg.Geocode.TTLSeconds)*time.Second,
		geo.WithLogger(logger),
	)

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Weather.RequestTimeoutSeconds) * time.Second,
	}
	weatherSvc := weather.NewService(
		geocoder,
		providers.NewGoogleWeather(cfg.Weather.GoogleAPIKey, httpClient),
		providers.NewVisualCrossing(cfg.Weather.VisualCrossingAPIKey, httpClient),
		providers.NewOpenMeteo(httpClient),
		providers.NewNASAPower(httpClient),
		weather.ServiceConfig{
			SnapshotTTL:      time.Duration(cfg.Weather.SnapshotTTLSeconds) * time.Second,
			SoilTTL:          time.Duration(cfg.Weather.SoilTTLSeconds) * time.Second,
			UltraFastMaxDays: cfg.Weather.UltraFastMaxDays,
			FastMaxDays:      cfg.Weather.FastMaxDays,
			MaxTimelineDays:  cfg.Weather.MaxTimelineDays,
			Workers:          cfg.Weather.Workers,
			CallTimeout:      time.Duration(cfg.Weather.CallTimeoutSeconds) * time.Second,
			DefaultHumidity:  cfg.Weather.DefaultHumidity,
			DataDir:          dataDir,
		},
		weather.WithServiceLogger(logger),
	)

	var embedder embedding.Embedder
	if cfg.Embedding.ModelPath != "" {
		onnxEmbedder, err := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			logger.Warn("ONNX embedder unavailable, using mock embedder", zap.Error(err))
			embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
		} else {
			embedder = onnxEmbedder
		}
	} else {
		logger.Info("no embedding model configured, using mock embedder")
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	store, err := storage.NewSQLiteStore(filepath.Join(dataDir, "chunks.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunk store: %w", err)
	}

	keywords, err := keyword.Open(filepath.Join(dataDir, "bleve"))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	loader := corpus.NewLoader(corpus.LoaderConfig{
		Paths:          cfg.Corpus.Paths,
		MaxChunks:      cfg.Corpus.MaxChunks,
		MaxRowsPerFile: cfg.Corpus.MaxRowsPerFile,
		MaxChunkChars:  cfg.Corpus.MaxChunkChars,
	}, logger)

	engine := retrieval.NewEngine(
		embedder,
		store,
		vector.NewFlatIndex(),
		keywords,
		loader,
		retrieval.Config{
			TopK:           cfg.Retrieval.TopK,
			MaxResults:     cfg.Retrieval.MaxResults,
			ScoreThreshold: cfg.Retrieval.ScoreThreshold,
			LocationBoost:  cfg.Retrieval.LocationBoost,
			WeatherBoost:   cfg.Retrieval.WeatherBoost,
			ConfidenceCap:  cfg.Retrieval.ConfidenceCap,
			DataDir:        dataDir,
		},
		retrieval.WithLogger(logger),
	)

	extractor := timeline.NewExtractor(0, 0, cfg.Weather.MaxTimelineDays)

	generator := answer.NewOpenAIGenerator(answer.OpenAIConfig{
		BaseURL:     cfg.Generator.BaseURL,
		APIKey:      cfg.Generator.APIKey,
		Model:       cfg.Generator.Model,
		MaxTokens:   cfg.Generator.MaxTokens,
		Temperature: cfg.Generator.Temperature,
		Timeout:     time.Duration(cfg.Generator.TimeoutSeconds) * time.Second,
	}, logger)

	components := &Components{
		Store:     store,
		Embedder:  embedder,
		Keywords:  keywords,
		Weather:   weatherSvc,
		Extractor: extractor,
		Engine:    engine,
	}
	components.Composer = answer.NewComposer(
		weatherSvc,
		extractor,
		engine,
		geocoder,
		generator,
		answer.WithComposerLogger(logger),
		answer.WithMaxChunkChars(cfg.Corpus.MaxChunkChars),
		answer.WithBuildChunks(components.cachedWeatherChunks),
	)
	return components, nil
}

func printUsage() {
	fmt.Println(`agrisage - agricultural weather and advisory service

Usage:
  agrisage serve [flags]               Start the HTTP server
  agrisage ask -q <question> -l <loc>  Ask an agricultural question
  agrisage weather -l <loc> [-q ...]   Show current weather or a forecast
  agrisage index [flags]               Force a full index rebuild
  agrisage refresh [flags]             Clear weather cache and index
  agrisage status [flags]              Show index and cache status
  agrisage version                     Show version
  agrisage help                        Show this help

Common Flags:
  -config string   Config file path (default: ./config.yaml, then ~/.agrisage/config.yaml)
  -debug           Enable debug logging

Examples:
  agrisage serve
  agrisage ask -q "which crops should I plant next season" -l "Pune"
  agrisage weather -l "Nagpur" -q "next 3 weeks"
  agrisage weather -l "Mumbai" -json
  agrisage index
  agrisage status -json`)
}
