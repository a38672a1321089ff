package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"ytmeta-go/pkg/model"
)

// EnvPrefix namespaces every environment override, e.g.
// YTMETA_WORKER_MAX_WORKERS.
const EnvPrefix = "YTMETA"

type manager struct {
	mu       sync.RWMutex
	config   *Config
	viper    *viper.Viper
	fromFile bool
}

func NewManager() Manager {
	return &manager{
		viper: viper.New(),
	}
}

// Load reads configPath when given, or ./ytmeta.{yaml,json,toml} when it
// exists, layers environment overrides on top and validates the result.
func (m *manager) Load(configPath string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setupViper(configPath)

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		m.fromFile = true
	}

	config, err := m.decode()
	if err != nil {
		return nil, err
	}
	m.config = config
	return config, nil
}

func (m *manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == nil {
		return fmt.Errorf("config not loaded")
	}
	if m.fromFile {
		if err := m.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to reload config: %w", err)
		}
	}

	config, err := m.decode()
	if err != nil {
		return err
	}
	m.config = config
	return nil
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) decode() (*Config, error) {
	var config Config
	if err := m.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func (m *manager) setupViper(configPath string) {
	if configPath != "" {
		m.viper.SetConfigFile(configPath)
	} else {
		m.viper.SetConfigName("ytmeta")
		m.viper.AddConfigPath(".")
	}

	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	setDefaults(m.viper)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("youtube.keys_file", "keys_related/valid_api_keys.txt")
	v.SetDefault("youtube.keys", []string{})
	v.SetDefault("youtube.endpoint", "")
	v.SetDefault("youtube.region", "US")
	v.SetDefault("youtube.timeout", 30*time.Second)
	v.SetDefault("youtube.requests_per_second", 0)
	v.SetDefault("youtube.burst", 1)
	v.SetDefault("youtube.max_retries", 2)
	v.SetDefault("youtube.retry_delay", 500*time.Millisecond)

	v.SetDefault("worker.max_workers", 8)
	v.SetDefault("worker.task_timeout", 0)

	v.SetDefault("collection.name", "")
	v.SetDefault("collection.input_dir", "input_data")
	v.SetDefault("collection.output_dir", "output_data")
	v.SetDefault("collection.read_channel", false)
	v.SetDefault("collection.ignore_comments", false)
	v.SetDefault("collection.comment_limit", 0)
	v.SetDefault("collection.keep_old_attr", false)
	v.SetDefault("collection.start_date", "")
	v.SetDefault("collection.end_date", "")

	v.SetDefault("storage.sqlite_path", "")
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("translate.endpoint", "")
	v.SetDefault("translate.source", "auto")
	v.SetDefault("translate.target", "en")
	v.SetDefault("translate.workers", 8)
	v.SetDefault("translate.columns", []string{})
	v.SetDefault("translate.max_chunk", 4800)
	v.SetDefault("translate.max_halvings", 10)
	v.SetDefault("translate.max_retries", 5)
	v.SetDefault("translate.requests_per_second", 1)
	v.SetDefault("translate.timeout", 10*time.Second)
	v.SetDefault("translate.breaker_failures", 5)
	v.SetDefault("translate.breaker_cooldown", time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stderr")
	v.SetDefault("logger.time_format", "rfc3339")
}

func validateConfig(config *Config) error {
	var errs []error

	if config.Worker.MaxWorkers <= 0 || config.Worker.MaxWorkers > 256 {
		errs = append(errs, fmt.Errorf("worker.max_workers must be between 1 and 256, got %d", config.Worker.MaxWorkers))
	}
	if config.Collection.CommentLimit < 0 {
		errs = append(errs, fmt.Errorf("collection.comment_limit cannot be negative, got %d", config.Collection.CommentLimit))
	}
	if config.YouTube.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("youtube.requests_per_second cannot be negative"))
	}
	if config.Translate.Workers <= 0 {
		errs = append(errs, fmt.Errorf("translate.workers must be positive, got %d", config.Translate.Workers))
	}
	if config.Translate.MaxChunk <= 0 {
		errs = append(errs, fmt.Errorf("translate.max_chunk must be positive, got %d", config.Translate.MaxChunk))
	}
	if _, err := config.DateRange(time.Now()); err != nil {
		errs = append(errs, err)
	}
	if _, err := config.Selection(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Selection turns the attribute maps into validated masks.
func (c *Config) Selection() (model.Selection, error) {
	video, err := mask(model.EntityVideo, c.Attributes.Video)
	if err != nil {
		return model.Selection{}, err
	}
	comment, err := mask(model.EntityComment, c.Attributes.Comment)
	if err != nil {
		return model.Selection{}, err
	}
	channel, err := mask(model.EntityChannel, c.Attributes.Channel)
	if err != nil {
		return model.Selection{}, err
	}
	return model.Selection{Video: video, Comment: comment, Channel: channel}, nil
}

func mask(e model.Entity, selection map[string]bool) (model.Mask, error) {
	if len(selection) == 0 {
		return model.AllFields(e), nil
	}
	return model.NewMask(e, selection)
}

// DateRange resolves the configured bounds against now.
func (c *Config) DateRange(now time.Time) (model.DateRange, error) {
	return model.NewDateRange(c.Collection.StartDate, c.Collection.EndDate, now)
}

// Validate re-checks c, typically after command-line overrides.
func (c *Config) Validate() error {
	return validateConfig(c)
}
