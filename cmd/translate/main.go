package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ytmeta-go/internal/config"
	"ytmeta-go/internal/handler"
	"ytmeta-go/pkg/metrics"
	"ytmeta-go/pkg/translate"
)

// Application translates text columns of a collected table into English.
type Application struct {
	configPath string
	file       string
	columns    string
	debug      bool
}

func main() {
	defer handler.ExitOnPanic("translate")

	app := &Application{}

	flag.StringVar(&app.configPath, "config", config.EnvString("YTMETA_CONFIG", ""), "Configuration file path")
	flag.StringVar(&app.file, "file", "", "CSV or XLSX table to translate")
	flag.StringVar(&app.columns, "columns", "", "Comma separated columns to translate (default: translate.columns)")
	flag.BoolVar(&app.debug, "debug", config.EnvBool("DEBUG", false), "Enable debug mode")
	flag.Parse()

	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func (app *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.NewManager().Load(app.configPath)
	if err != nil {
		return err
	}
	if app.file == "" {
		return fmt.Errorf("-file is required")
	}

	columns := cfg.Translate.Columns
	if app.columns != "" {
		columns = nil
		for _, c := range strings.Split(app.columns, ",") {
			if c = strings.TrimSpace(c); c != "" {
				columns = append(columns, c)
			}
		}
	}
	if len(columns) == 0 {
		return fmt.Errorf("no columns to translate; use -columns or translate.columns")
	}

	log := handler.SetupLogger(cfg.Logger, app.debug).WithField("component", "translate")
	rec := metrics.NewRecorder()

	clientConfig := translate.DefaultClientConfig()
	if cfg.Translate.Endpoint != "" {
		clientConfig.Endpoint = cfg.Translate.Endpoint
	}
	if cfg.Translate.Timeout > 0 {
		clientConfig.Timeout = cfg.Translate.Timeout
	}
	if cfg.Translate.MaxRetries > 0 {
		clientConfig.MaxRetries = cfg.Translate.MaxRetries
	}
	clientConfig.RequestsPerSecond = cfg.Translate.RequestsPerSecond
	if cfg.Translate.BreakerFailures > 0 {
		clientConfig.BreakerFailures = cfg.Translate.BreakerFailures
	}
	if cfg.Translate.BreakerCooldown > 0 {
		clientConfig.BreakerCooldown = cfg.Translate.BreakerCooldown
	}

	svc := translate.NewService(translate.NewHTTPClient(clientConfig), translate.ServiceConfig{
		Source:      cfg.Translate.Source,
		Target:      cfg.Translate.Target,
		MaxChunk:    cfg.Translate.MaxChunk,
		MaxHalvings: cfg.Translate.MaxHalvings,
	}, rec)
	pipeline := translate.NewPipeline(svc, cfg.Translate.Workers)

	log.WithFields(map[string]interface{}{
		"file":    app.file,
		"columns": columns,
		"workers": cfg.Translate.Workers,
	}).Info("Starting translation")

	dest, err := handler.TranslateFile(ctx, pipeline, app.file, columns)
	if err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.WithError(err).Warn("Failed to write metrics textfile")
		}
	}

	fmt.Printf("Translated table written to %s\n", dest)
	return nil
}
