package handler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"ytmeta-go/internal/service"
	"ytmeta-go/pkg/collector"
	"ytmeta-go/pkg/logger"
	"ytmeta-go/pkg/model"
	"ytmeta-go/pkg/storage"
)

// Controller drives one collection run from input table to output files.
type Controller struct {
	collector service.CollectorService
	exporter  service.ExportService
	metrics   service.MetricsService
	config    ControllerConfig
	log       *logger.Logger
}

type ControllerConfig struct {
	InputDir        string
	Name            string
	ReadChannel     bool
	KeepOldAttr     bool
	Selection       model.Selection
	Range           model.DateRange
	MetricsTextfile string
}

// RunReport describes what a run read and wrote.
type RunReport struct {
	Input     string              `json:"input"`
	Targets   int                 `json:"targets"`
	Discovery *collector.Summary  `json:"discovery,omitempty"`
	Summary   collector.Summary   `json:"summary"`
	Paths     storage.ExportPaths `json:"paths"`
}

func NewController(
	collector service.CollectorService,
	exporter service.ExportService,
	metrics service.MetricsService,
	config ControllerConfig,
) *Controller {
	return &Controller{
		collector: collector,
		exporter:  exporter,
		metrics:   metrics,
		config:    config,
		log:       logger.GetLogger().WithField("component", "controller"),
	}
}

// Run reads the input table, expands channels when configured, fans the
// video targets out and exports the merged result.
func (c *Controller) Run(ctx context.Context) (*RunReport, error) {
	kind, idColumn := model.TargetVideo, model.FieldVideoID
	if c.config.ReadChannel {
		kind, idColumn = model.TargetChannel, model.FieldChannelID
	}

	table, path, err := storage.LoadInput(c.config.InputDir, c.config.Name, idColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to load input: %w", err)
	}
	report := &RunReport{Input: path}

	targets, dupes := BuildTargets(table, kind, c.config.Selection, c.config.Range, c.config.KeepOldAttr)
	c.log.WithFields(map[string]interface{}{
		"input":      path,
		"rows":       table.Len(),
		"targets":    len(targets),
		"duplicates": dupes,
		"mode":       kind.String(),
	}).Info("Input loaded")

	if c.config.ReadChannel {
		discoveries, sum := c.collector.Discover(ctx, targets)
		report.Discovery = &sum
		targets = collector.ExpandTargets(discoveries, c.config.Selection, c.config.Range, c.config.KeepOldAttr)
		c.log.WithFields(map[string]interface{}{
			"channels": len(discoveries),
			"videos":   len(targets),
		}).Info("Channels expanded")
	}
	report.Targets = len(targets)

	coll := c.collector.Run(ctx, targets)
	report.Summary = coll.Summary

	paths, err := c.exporter.Export(ctx, coll)
	report.Paths = paths
	if err != nil {
		return report, fmt.Errorf("failed to export results: %w", err)
	}

	if c.config.MetricsTextfile != "" && c.metrics != nil {
		if err := c.metrics.WriteTextfile(c.config.MetricsTextfile); err != nil {
			c.log.WithError(err).Warn("Failed to write metrics textfile")
		}
	}
	return report, nil
}

// BuildTargets turns input rows into targets of kind. Blank ids are skipped
// and repeated ids kept once; the count of repeats is returned. With
// keepPassthrough every other column of the row travels with the target.
func BuildTargets(t *storage.Table, kind model.TargetKind, sel model.Selection, rng model.DateRange, keepPassthrough bool) ([]model.Target, int) {
	idColumn := model.FieldVideoID
	switch kind {
	case model.TargetChannel:
		idColumn = model.FieldChannelID
	case model.TargetKeyword:
		idColumn = model.FieldKeyword
	}

	seen := make(map[string]bool)
	dupes := 0
	var targets []model.Target
	for _, row := range t.Rows() {
		id := strings.TrimSpace(row.Value(idColumn))
		if id == "" {
			continue
		}
		if seen[id] {
			dupes++
			continue
		}
		seen[id] = true

		target := model.Target{Kind: kind, ID: id, Selection: sel, Range: rng}
		if keepPassthrough {
			pass := model.NewRecord()
			for _, k := range row.Keys() {
				if k != idColumn {
					pass.Set(k, row.Value(k))
				}
			}
			target.Passthrough = pass
		}
		targets = append(targets, target)
	}
	return targets, dupes
}

// SearchKeywords lists the videos of every keyword and returns a
// keyword,video_id table. Video ids reached by more than one keyword are
// dropped entirely; the number of dropped rows is returned.
func SearchKeywords(ctx context.Context, svc service.CollectorService, name string, keywords []string, rng model.DateRange) (*storage.Table, int, collector.Summary) {
	var sources []model.Target
	seen := make(map[string]bool)
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		sources = append(sources, model.Target{Kind: model.TargetKeyword, ID: k, Range: rng})
	}

	discoveries, sum := svc.Discover(ctx, sources)

	all := storage.NewTable(name, model.FieldKeyword, model.FieldVideoID)
	for _, d := range discoveries {
		for _, id := range d.VideoIDs {
			all.Append(model.RecordFrom(
				[]string{model.FieldKeyword, model.FieldVideoID},
				[]string{d.Source.ID, id},
			))
		}
	}

	out, dropped := storage.DropDuplicates(all, model.FieldVideoID, storage.KeepNone)
	logger.GetLogger().WithFields(map[string]interface{}{
		"component": "keyword_search",
		"keywords":  len(sources),
		"videos":    all.Len(),
		"dropped":   dropped,
	}).Info("Keyword search finished")
	return out, dropped, sum
}

// TranslateFile translates columns of <path> and writes the kept rows to
// <path without extension>_translated.csv next to it.
func TranslateFile(ctx context.Context, svc service.TranslationService, path string, columns []string) (string, error) {
	in, err := storage.ReadTable(path)
	if err != nil {
		return "", err
	}
	out, stats, err := svc.Table(ctx, in, columns)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(filepath.Dir(path), out.Name+".csv")
	if err := storage.WriteCSVFile(dest, out); err != nil {
		return "", err
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"component": "translate",
		"output":    dest,
		"kept":      stats.Kept,
		"invalid":   stats.Invalid,
		"failed":    stats.Failed,
	}).Info("Translated table written")
	return dest, nil
}
