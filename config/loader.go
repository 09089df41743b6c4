package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file, then applies environment overrides and defaults.
// A missing file is not an error.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("MONGO_URI")); v != "" {
		cfg.Mongo.URI = v
	}
	if v := envInt("PORT", 0); v > 0 {
		cfg.Server.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		cfg.Producer.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		cfg.Logging.Mode = v
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Mongo.URI == "" {
		cfg.Mongo.URI = "mongodb://localhost:27017"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "ebookgen"
	}
	if cfg.Mongo.Collection == "" {
		cfg.Mongo.Collection = "jobs"
	}
	if cfg.Producer.BaseURL == "" {
		cfg.Producer.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	if cfg.Producer.Model == "" {
		cfg.Producer.Model = "gemini-2.5-flash"
	}
	if cfg.Producer.MaxRetries == 0 {
		cfg.Producer.MaxRetries = 2
	}
	if cfg.Producer.Timeout == 0 {
		cfg.Producer.Timeout = 180 * time.Second
	}
	if cfg.Producer.Temperature == 0 {
		cfg.Producer.Temperature = 0.7
	}
	if cfg.Producer.MaxTokens == 0 {
		cfg.Producer.MaxTokens = 65536
	}
	if cfg.Worker.QueueSize <= 0 {
		cfg.Worker.QueueSize = 100
	}
	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = 2
	}
	if cfg.Render.OutputDir == "" {
		cfg.Render.OutputDir = "public"
	}
	if cfg.Render.PublicPrefix == "" {
		cfg.Render.PublicPrefix = "/public"
	}
	if cfg.Logging.Mode == "" {
		cfg.Logging.Mode = "dev"
	}
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
