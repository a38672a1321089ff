package config

import (
	"time"

	"ytmeta-go/pkg/logger"
)

type Config struct {
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Collection CollectionConfig `mapstructure:"collection"`
	Attributes AttributesConfig `mapstructure:"attributes"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Translate  TranslateConfig  `mapstructure:"translate"`
	Logger     logger.Config    `mapstructure:"logger"`
}

type YouTubeConfig struct {
	KeysFile string   `mapstructure:"keys_file"`
	Keys     []string `mapstructure:"keys"`
	// Endpoint overrides the Data API base URL; empty uses the public one.
	Endpoint          string        `mapstructure:"endpoint"`
	Region            string        `mapstructure:"region"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
}

type WorkerConfig struct {
	MaxWorkers  int           `mapstructure:"max_workers"`
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

type CollectionConfig struct {
	Name           string `mapstructure:"name"`
	InputDir       string `mapstructure:"input_dir"`
	OutputDir      string `mapstructure:"output_dir"`
	ReadChannel    bool   `mapstructure:"read_channel"`
	IgnoreComments bool   `mapstructure:"ignore_comments"`
	// CommentLimit caps comments per video; zero means unlimited.
	CommentLimit int    `mapstructure:"comment_limit"`
	KeepOldAttr  bool   `mapstructure:"keep_old_attr"`
	StartDate    string `mapstructure:"start_date"`
	EndDate      string `mapstructure:"end_date"`
}

// AttributesConfig maps attribute names to on/off per entity. An empty map
// selects every attribute of that entity.
type AttributesConfig struct {
	Video   map[string]bool `mapstructure:"video"`
	Comment map[string]bool `mapstructure:"comment"`
	Channel map[string]bool `mapstructure:"channel"`
}

type StorageConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type TranslateConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	Source            string        `mapstructure:"source"`
	Target            string        `mapstructure:"target"`
	Workers           int           `mapstructure:"workers"`
	Columns           []string      `mapstructure:"columns"`
	MaxChunk          int           `mapstructure:"max_chunk"`
	MaxHalvings       int           `mapstructure:"max_halvings"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	BreakerFailures   int           `mapstructure:"breaker_failures"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}
