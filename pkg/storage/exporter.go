package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ytmeta-go/pkg/collector"
	"ytmeta-go/pkg/logger"
	"ytmeta-go/pkg/model"
)

// Output table suffixes appended to the run name.
const (
	SuffixVideo           = "_video"
	SuffixComment         = "_comment"
	SuffixCommentCombined = "_comment_combined"
	SuffixChannels        = "_channels"
	SuffixSummary         = "_summary"
)

// ExportPaths lists the files written by one export. Comment paths are
// empty when comments were ignored.
type ExportPaths struct {
	Video           string `json:"video"`
	Comment         string `json:"comment,omitempty"`
	CommentCombined string `json:"comment_combined,omitempty"`
	Channels        string `json:"channels"`
	Summary         string `json:"summary"`
}

// Exporter writes a collection as CSV tables plus a JSON summary and
// forwards the same tables to any extra sinks.
type Exporter struct {
	outputDir      string
	name           string
	ignoreComments bool
	sinks          []Sink
	log            *logger.Logger
}

func NewExporter(outputDir, name string, ignoreComments bool, sinks ...Sink) *Exporter {
	return &Exporter{
		outputDir:      outputDir,
		name:           name,
		ignoreComments: ignoreComments,
		sinks:          sinks,
		log:            logger.GetLogger().WithField("component", "exporter"),
	}
}

// Tables builds the output tables of coll in file order.
func (e *Exporter) Tables(coll *collector.Collection) []*Table {
	video := NewTable(e.name+SuffixVideo, model.FieldVideoID, model.FieldChannelID)
	video.Append(coll.Videos...)

	channels := NewTable(e.name+SuffixChannels, model.FieldChannelID)
	channels.Append(coll.Channels...)

	if e.ignoreComments {
		return []*Table{video, channels}
	}

	comments := NewTable(e.name+SuffixComment, model.FieldVideoID, model.FieldChannelID)
	comments.Append(coll.Comments...)
	combined := CombineComments(e.name+SuffixCommentCombined, coll.Comments)

	return []*Table{video, comments, combined, channels}
}

// Export writes every table and the summary. The first failing write aborts
// the export; sink failures are logged and returned after all CSVs exist.
func (e *Exporter) Export(ctx context.Context, coll *collector.Collection) (ExportPaths, error) {
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return ExportPaths{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths ExportPaths
	tables := e.Tables(coll)
	for _, t := range tables {
		path := filepath.Join(e.outputDir, t.Name+".csv")
		if err := WriteCSVFile(path, t); err != nil {
			return paths, err
		}
		switch t.Name {
		case e.name + SuffixVideo:
			paths.Video = path
		case e.name + SuffixComment:
			paths.Comment = path
		case e.name + SuffixCommentCombined:
			paths.CommentCombined = path
		case e.name + SuffixChannels:
			paths.Channels = path
		}
		e.log.WithFields(map[string]interface{}{
			"file": path,
			"rows": t.Len(),
		}).Info("Table exported")
	}

	summaryPath, err := e.WriteSummary(coll.Summary)
	if err != nil {
		return paths, err
	}
	paths.Summary = summaryPath

	var sinkErrs []string
	for _, s := range e.sinks {
		for _, t := range tables {
			if err := s.WriteTable(ctx, t); err != nil {
				e.log.WithField("table", t.Name).WithError(err).Error("Sink write failed")
				sinkErrs = append(sinkErrs, err.Error())
			}
		}
	}
	if len(sinkErrs) > 0 {
		return paths, fmt.Errorf("sink export failed: %s", strings.Join(sinkErrs, "; "))
	}
	return paths, nil
}

// WriteSummary stores v as indented JSON in <name>_summary.json.
func (e *Exporter) WriteSummary(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}
	path := filepath.Join(e.outputDir, e.name+SuffixSummary+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return path, nil
}

// CombineComments joins the comment_display texts of each video with a
// single space. Videos appear in the order their first comment does.
func CombineComments(name string, comments []*model.Record) *Table {
	var order []string
	texts := make(map[string][]string)
	for _, c := range comments {
		id := c.Value(model.FieldVideoID)
		if _, ok := texts[id]; !ok {
			order = append(order, id)
			texts[id] = nil
		}
		if v := c.Value("comment_display"); v != "" {
			texts[id] = append(texts[id], v)
		}
	}

	t := NewTable(name, model.FieldVideoID, "comment_display")
	for _, id := range order {
		r := model.NewRecord()
		r.Set(model.FieldVideoID, id)
		r.Set("comment_display", strings.Join(texts[id], " "))
		t.Append(r)
	}
	return t
}
