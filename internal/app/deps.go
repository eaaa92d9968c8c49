package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"

	"docqa/internal/api"
	"docqa/internal/config"
	"docqa/internal/logger"
	"docqa/internal/stubserver"
)

// Deps bundles common runtime dependencies for the binaries.
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	Client *api.Client

	closers []io.Closer
}

// Close releases resources opened by Build, such as the log file.
func (d Deps) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Build loads env and config for the terminal client. Logs go to the
// configured file because the terminal belongs to the UI.
func Build() (Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return Deps{}, err
	}
	f, err := logger.OpenFile(cfg.LogFile)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to open log file: %w", err)
	}
	log := logger.New(cfg.LogLevel, f)
	log.Info("client starting", "api_base_url", cfg.APIBaseURL, "num_chunks", cfg.NumChunks)

	return Deps{
		Config:  cfg,
		Log:     log,
		Client:  api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, log),
		closers: []io.Closer{f},
	}, nil
}

// BuildStub loads env and config for the development backend, logging to stdout.
func BuildStub() (Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return Deps{}, err
	}
	return Deps{Config: cfg, Log: logger.New(cfg.LogLevel, nil)}, nil
}

// StubOptions maps config onto the development backend's options.
func StubOptions(cfg config.Config) stubserver.Options {
	return stubserver.Options{
		MaxUploadSize:  cfg.MaxUploadSize,
		ChunkSize:      cfg.ChunkSize,
		HybridScores:   cfg.HybridScores,
		RequestTimeout: cfg.RequestTimeout,
	}
}

func loadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
