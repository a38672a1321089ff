package handler

import (
	"fmt"
	"io"
	"os"

	"ytmeta-go/internal/config"
	"ytmeta-go/pkg/api"
	"ytmeta-go/pkg/collector"
	"ytmeta-go/pkg/logger"
	"ytmeta-go/pkg/metrics"
)

// LoadKeys builds the key pool from inline keys when configured, otherwise
// from the keys file.
func LoadKeys(c config.YouTubeConfig) (*api.KeyPool, error) {
	if len(c.Keys) > 0 {
		pool := api.NewKeyPool(c.Keys)
		if pool.IsEmpty() {
			return nil, fmt.Errorf("youtube.keys contains no usable key")
		}
		return pool, nil
	}
	if c.KeysFile == "" {
		return nil, fmt.Errorf("no API keys configured: set youtube.keys_file or youtube.keys")
	}
	return api.LoadKeyFile(c.KeysFile)
}

// ClientOptions turns the youtube section into Metadata Client options.
// The returned options share one transport and one category cache.
func ClientOptions(c config.YouTubeConfig, m *metrics.Recorder) api.ClientOptions {
	conn := api.DefaultConnectionConfig()
	if c.Timeout > 0 {
		conn.RequestTimeout = c.Timeout
	}
	conn.RequestsPerSecond = c.RequestsPerSecond
	conn.Burst = c.Burst

	return api.ClientOptions{
		Endpoint:    c.Endpoint,
		Connections: api.NewConnectionManager(conn),
		Retry:       api.NewSimpleRetry(c.MaxRetries, c.RetryDelay),
		Categories:  api.NewCategoryCache(c.Region),
		Metrics:     m,
	}
}

// NewScheduler wires key pool, client factory and worker settings into a
// collector scheduler.
func NewScheduler(cfg *config.Config, m *metrics.Recorder) (*collector.Scheduler, error) {
	keys, err := LoadKeys(cfg.YouTube)
	if err != nil {
		return nil, err
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"component": "bootstrap",
		"keys":      keys.Size(),
		"workers":   cfg.Worker.MaxWorkers,
	}).Info("Key pool loaded")

	return collector.NewBuilder().
		WithKeyPool(keys).
		WithClientFactory(api.NewClientFactory(ClientOptions(cfg.YouTube, m))).
		WithWorkers(cfg.Worker.MaxWorkers).
		WithCommentLimit(cfg.Collection.CommentLimit).
		WithIgnoreComments(cfg.Collection.IgnoreComments).
		WithTaskTimeout(cfg.Worker.TaskTimeout).
		WithMetrics(m).
		Build()
}

// SetupLogger installs the configured logger as the global one. debug
// forces the debug level.
func SetupLogger(c logger.Config, debug bool) *logger.Logger {
	if debug {
		c.Level = "debug"
	}
	l := logger.New(c)
	logger.SetLogger(l)
	return l
}

var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// ExitOnPanic is deferred first in every main. It turns a panic into a
// message on stderr and exit status 1.
func ExitOnPanic(program string) {
	if r := recover(); r != nil {
		fmt.Fprintf(stderr, "CRITICAL ERROR: %s panic recovered: %v\n", program, r)
		exit(1)
	}
}
