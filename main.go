package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"ytmeta-go/internal/config"
	"ytmeta-go/internal/handler"
	"ytmeta-go/pkg/logger"
	"ytmeta-go/pkg/metrics"
	"ytmeta-go/pkg/storage"
)

func main() {
	defer handler.ExitOnPanic("collector")

	var (
		configPath     = flag.String("config", config.EnvString("YTMETA_CONFIG", ""), "Config file (env: YTMETA_CONFIG)")
		name           = flag.String("name", "", "Input table name without extension (env: YTMETA_COLLECTION_NAME)")
		inputDir       = flag.String("input-dir", "", "Directory holding <name>.csv or <name>.xlsx (env: YTMETA_COLLECTION_INPUT_DIR)")
		outputDir      = flag.String("output-dir", "", "Directory for output tables (env: YTMETA_COLLECTION_OUTPUT_DIR)")
		keysFile       = flag.String("keys", "", "API key file, one key per line (env: YTMETA_YOUTUBE_KEYS_FILE)")
		workers        = flag.Int("workers", 0, "Concurrent fetch workers (env: YTMETA_WORKER_MAX_WORKERS)")
		commentLimit   = flag.Int("comment-limit", 0, "Max comments per video, 0 = unlimited (env: YTMETA_COLLECTION_COMMENT_LIMIT)")
		ignoreComments = flag.Bool("ignore-comments", false, "Skip comment collection (env: YTMETA_COLLECTION_IGNORE_COMMENTS)")
		readChannel    = flag.Bool("read-channel", false, "Input lists channel_id; discover their videos (env: YTMETA_COLLECTION_READ_CHANNEL)")
		keepOldAttr    = flag.Bool("keep-old-attr", false, "Carry extra input columns to the video table (env: YTMETA_COLLECTION_KEEP_OLD_ATTR)")
		startDate      = flag.String("start-date", "", "Earliest publish date, YYYY-MM-DD or RFC 3339 (env: YTMETA_COLLECTION_START_DATE)")
		endDate        = flag.String("end-date", "", "Latest publish date, inclusive (env: YTMETA_COLLECTION_END_DATE)")
		sqlitePath     = flag.String("sqlite", "", "Also write tables to this SQLite file (env: YTMETA_STORAGE_SQLITE_PATH)")
		metricsFile    = flag.String("metrics-textfile", "", "Write Prometheus counters here (env: YTMETA_METRICS_TEXTFILE)")
		debug          = flag.Bool("debug", config.EnvBool("DEBUG", false), "Enable debug logging (env: DEBUG)")
		help           = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		printUsage()
		return
	}

	cfg, err := config.NewManager().Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n\n", err)
		printUsage()
		os.Exit(1)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			cfg.Collection.Name = *name
		case "input-dir":
			cfg.Collection.InputDir = *inputDir
		case "output-dir":
			cfg.Collection.OutputDir = *outputDir
		case "keys":
			cfg.YouTube.KeysFile = *keysFile
			cfg.YouTube.Keys = nil
		case "workers":
			cfg.Worker.MaxWorkers = *workers
		case "comment-limit":
			cfg.Collection.CommentLimit = *commentLimit
		case "ignore-comments":
			cfg.Collection.IgnoreComments = *ignoreComments
		case "read-channel":
			cfg.Collection.ReadChannel = *readChannel
		case "keep-old-attr":
			cfg.Collection.KeepOldAttr = *keepOldAttr
		case "start-date":
			cfg.Collection.StartDate = *startDate
		case "end-date":
			cfg.Collection.EndDate = *endDate
		case "sqlite":
			cfg.Storage.SQLitePath = *sqlitePath
		case "metrics-textfile":
			cfg.Metrics.Textfile = *metricsFile
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Collection.Name == "" {
		fmt.Fprintln(os.Stderr, "ERROR: input name is required.")
		fmt.Fprintln(os.Stderr, "Use -name flag or YTMETA_COLLECTION_NAME environment variable.")
		fmt.Fprintln(os.Stderr, "")
		printUsage()
		os.Exit(1)
	}

	log := handler.SetupLogger(cfg.Logger, *debug).WithField("component", "main")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("Collection failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()
	rec := metrics.NewRecorder()

	scheduler, err := handler.NewScheduler(cfg, rec)
	if err != nil {
		return fmt.Errorf("failed to create collector: %w", err)
	}

	var sinks []storage.Sink
	if cfg.Storage.SQLitePath != "" {
		sink, err := storage.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(); err != nil {
				log.WithError(err).Warn("Failed to close sqlite sink cleanly")
			}
		}()
		sinks = append(sinks, sink)
	}

	sel, err := cfg.Selection()
	if err != nil {
		return err
	}
	rng, err := cfg.DateRange(time.Now())
	if err != nil {
		return err
	}

	exporter := storage.NewExporter(cfg.Collection.OutputDir, cfg.Collection.Name, cfg.Collection.IgnoreComments, sinks...)
	controller := handler.NewController(scheduler, exporter, rec, handler.ControllerConfig{
		InputDir:        cfg.Collection.InputDir,
		Name:            cfg.Collection.Name,
		ReadChannel:     cfg.Collection.ReadChannel,
		KeepOldAttr:     cfg.Collection.KeepOldAttr,
		Selection:       sel,
		Range:           rng,
		MetricsTextfile: cfg.Metrics.Textfile,
	})

	log.WithFields(map[string]interface{}{
		"run_id":       scheduler.RunID(),
		"name":         cfg.Collection.Name,
		"read_channel": cfg.Collection.ReadChannel,
		"range":        rng.String(),
	}).Info("Starting collection")

	report, err := controller.Run(ctx)
	if report != nil {
		printReport(report)
	}
	return err
}

func printReport(r *handler.RunReport) {
	s := r.Summary
	fmt.Printf("\n=== Collection Results (run %s) ===\n", s.RunID)
	fmt.Printf("Input: %s\n", r.Input)
	if r.Discovery != nil {
		fmt.Printf("Channels listed: %d (failed %d, unresolved %d)\n",
			r.Discovery.Total, r.Discovery.EntityError, r.Discovery.Unresolved)
	}
	fmt.Printf("Targets: %d\n", s.Total)
	fmt.Printf("Success: %d\n", s.Success)
	fmt.Printf("Excluded by date range: %d\n", s.Excluded)
	fmt.Printf("Failed: %d\n", s.EntityError)
	fmt.Printf("Unresolved (no key left): %d\n", s.Unresolved)
	fmt.Printf("Comments disabled: %d\n", s.CommentsDisabled)
	fmt.Printf("Exhausted keys: %d\n", len(s.ExhaustedKeys))
	fmt.Printf("Duration: %s\n", s.Duration().Round(time.Millisecond))

	fmt.Printf("\n=== Output ===\n")
	for _, p := range []string{r.Paths.Video, r.Paths.Comment, r.Paths.CommentCombined, r.Paths.Channels, r.Paths.Summary} {
		if p != "" {
			fmt.Println(p)
		}
	}
	if s.Unresolved > 0 {
		fmt.Printf("\n%d video(s) could not be fetched because every API key ran out of quota; see the summary file.\n", s.Unresolved)
	}
}

func printUsage() {
	fmt.Println("ytmeta - YouTube metadata collector")
	fmt.Println("")
	fmt.Println("USAGE:")
	fmt.Println("    ./ytmeta -name <input> [OPTIONS]")
	fmt.Println("    ./ytmeta -config ytmeta.yaml")
	fmt.Println("")
	fmt.Println("Reads <input-dir>/<name>.csv (or .xlsx) with a video_id column, or a")
	fmt.Println("channel_id column with -read-channel, and writes <name>_video.csv,")
	fmt.Println("<name>_comment.csv, <name>_comment_combined.csv, <name>_channels.csv and")
	fmt.Println("<name>_summary.json to the output directory.")
	fmt.Println("")
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Println("Every config key can also be set as YTMETA_<SECTION>_<KEY>, e.g.")
	fmt.Println("YTMETA_YOUTUBE_REQUESTS_PER_SECOND=5.")
}
