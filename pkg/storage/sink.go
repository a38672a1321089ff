package storage

import "context"

// Sink receives the output tables of a run next to the CSV files.
type Sink interface {
	WriteTable(ctx context.Context, t *Table) error
	Close() error
}
