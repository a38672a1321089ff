package service

import (
	"context"

	"ytmeta-go/pkg/collector"
	"ytmeta-go/pkg/model"
	"ytmeta-go/pkg/storage"
	"ytmeta-go/pkg/translate"
)

type CollectorService interface {
	Run(ctx context.Context, targets []model.Target) *collector.Collection
	Discover(ctx context.Context, sources []model.Target) ([]*collector.Discovery, collector.Summary)
}

type ExportService interface {
	Export(ctx context.Context, coll *collector.Collection) (storage.ExportPaths, error)
	WriteSummary(v interface{}) (string, error)
}

type TranslationService interface {
	Table(ctx context.Context, in *storage.Table, columns []string) (*storage.Table, translate.Stats, error)
}

type MetricsService interface {
	WriteTextfile(path string) error
}
