package config

import "time"

// AppConfig is the top-level configuration.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Producer ProducerConfig `yaml:"producer"`
	Worker   WorkerConfig   `yaml:"worker"`
	Render   RenderConfig   `yaml:"render"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// ProducerConfig configures the OpenAI-compatible text producer.
type ProducerConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxRetries  uint64        `yaml:"max_retries"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	MockDelay   time.Duration `yaml:"mock_delay"`
}

type WorkerConfig struct {
	QueueSize int `yaml:"queue_size"`
	Count     int `yaml:"count"`
}

type RenderConfig struct {
	OutputDir    string `yaml:"output_dir"`
	PublicPrefix string `yaml:"public_prefix"`
	CoverFont    string `yaml:"cover_font"` // optional TTF path, builtin bitmap font when empty
}

type LoggingConfig struct {
	Mode string `yaml:"mode"` // dev, prod
}
