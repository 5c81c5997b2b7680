// Package config loads bridge configuration from the environment.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything tunable about the bridge. Operation inputs (model,
// language, audio path) come from CLI flags instead; these are deployment
// concerns the calling application sets once.
type Config struct {
	// CacheDir overrides the hub cache location; empty selects the hub's own
	// default resolution (HF_HOME, then ~/.cache/huggingface/hub).
	CacheDir string `env:"WHISPER_BRIDGE_CACHE_DIR"`

	// EngineBinary is the transcription CLI to execute.
	EngineBinary string `env:"WHISPER_BRIDGE_ENGINE" envDefault:"whisper-ctranslate2"`

	// HubEndpoint is the model hub base URL, overridable for mirrors and
	// tests.
	HubEndpoint string `env:"WHISPER_BRIDGE_HUB_ENDPOINT" envDefault:"https://huggingface.co"`

	// DownloadTimeout bounds one snapshot download end to end.
	DownloadTimeout time.Duration `env:"WHISPER_BRIDGE_DOWNLOAD_TIMEOUT" envDefault:"45m"`

	// LogLevel keeps stderr quiet by default; the error stream carries the
	// progress protocol.
	LogLevel string `env:"LOG_LEVEL" envDefault:"warn"`
}

// Load reads configuration from an optional .env file and environment
// variables. Priority: environment variables > .env file > struct defaults.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
