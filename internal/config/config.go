package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config holds runtime configuration for the client and the stub backend.
type Config struct {
	// Client
	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"http://localhost:8000/api" validate:"required,url"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s" validate:"gt=0"`
	HistoryTimeout time.Duration `env:"HISTORY_TIMEOUT" envDefault:"15s" validate:"gt=0"`
	NumChunks      int           `env:"NUM_CHUNKS" envDefault:"3" validate:"min=1,max=10"` // sources requested per question

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE" envDefault:"docqa.log"` // client only; the stub backend logs to stdout

	// Stub backend
	Port          int   `env:"PORT" envDefault:"8000" validate:"min=1,max=65535"`
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes
	ChunkSize     int   `env:"CHUNK_SIZE" envDefault:"300" validate:"min=50"` // characters per chunk
	HybridScores  bool  `env:"HYBRID_SCORES" envDefault:"false"`
}

var validate = validator.New()

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}

// Validate reports the first invalid field, if any.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
