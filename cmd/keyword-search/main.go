package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"ytmeta-go/internal/config"
	"ytmeta-go/internal/handler"
	"ytmeta-go/pkg/metrics"
	"ytmeta-go/pkg/storage"
)

type keywordList []string

func (k *keywordList) String() string { return strings.Join(*k, ",") }

func (k *keywordList) Set(v string) error {
	*k = append(*k, v)
	return nil
}

// Application searches keywords and writes a keyword,video_id table that the
// collector can read as input.
type Application struct {
	configPath   string
	name         string
	keywordsFile string
	keywords     keywordList
	startDate    string
	endDate      string
	debug        bool
}

func main() {
	defer handler.ExitOnPanic("keyword search")

	app := &Application{}

	flag.StringVar(&app.configPath, "config", config.EnvString("YTMETA_CONFIG", ""), "Configuration file path")
	flag.StringVar(&app.name, "name", "", "Output table name; written to <input_dir>/<name>.csv")
	flag.Var(&app.keywords, "keyword", "Search keyword (repeatable)")
	flag.StringVar(&app.keywordsFile, "keywords-file", "", "File with one keyword per line")
	flag.StringVar(&app.startDate, "start-date", "", "Earliest publish date")
	flag.StringVar(&app.endDate, "end-date", "", "Latest publish date, inclusive")
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
	if app.name != "" {
		cfg.Collection.Name = app.name
	}
	if app.startDate != "" {
		cfg.Collection.StartDate = app.startDate
	}
	if app.endDate != "" {
		cfg.Collection.EndDate = app.endDate
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Collection.Name == "" {
		return fmt.Errorf("-name is required")
	}

	keywords := append([]string(nil), app.keywords...)
	if app.keywordsFile != "" {
		fromFile, err := readLines(app.keywordsFile)
		if err != nil {
			return err
		}
		keywords = append(keywords, fromFile...)
	}
	if len(keywords) == 0 {
		return fmt.Errorf("no keywords given; use -keyword or -keywords-file")
	}

	log := handler.SetupLogger(cfg.Logger, app.debug).WithField("component", "keyword_search")

	rng, err := cfg.DateRange(time.Now())
	if err != nil {
		return err
	}
	scheduler, err := handler.NewScheduler(cfg, metrics.NewRecorder())
	if err != nil {
		return err
	}

	table, dropped, sum := handler.SearchKeywords(ctx, scheduler, cfg.Collection.Name, keywords, rng)

	dest := filepath.Join(cfg.Collection.InputDir, cfg.Collection.Name+".csv")
	if err := storage.WriteCSVFile(dest, table); err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"output":  dest,
		"rows":    table.Len(),
		"dropped": dropped,
	}).Info("Keyword table written")

	fmt.Printf("\n=== Keyword Search Results (run %s) ===\n", sum.RunID)
	fmt.Printf("Keywords: %d\n", sum.Total)
	fmt.Printf("Failed: %d\n", sum.EntityError)
	fmt.Printf("Unresolved (no key left): %d\n", sum.Unresolved)
	fmt.Printf("Videos: %d\n", table.Len())
	fmt.Printf("Dropped (matched more than one keyword): %d\n", dropped)
	fmt.Printf("Output: %s\n", dest)
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keywords file: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}
	return out, nil
}
