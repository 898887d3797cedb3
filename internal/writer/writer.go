package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rickgao/market-pulse/internal/api"
)

// DefaultBatchSize is the number of rows per write call.
const DefaultBatchSize = 500

// Row is one table row, values aligned with Table.Columns.
type Row []any

// Batch is a single write call against a sink.
type Batch struct {
	Table       string
	Columns     []string
	Rows        []Row
	ConflictKey string // empty for plain insert
}

// Sink persists batches. A non-empty ConflictKey requests an upsert that
// merges rows with the same key; an empty one appends.
type Sink interface {
	Write(ctx context.Context, b Batch) error
}

// TableStats counts the outcome of writing one table.
type TableStats struct {
	Table        string
	Rows         int
	Written      int
	Failed       int
	Skipped      int
	Chunks       int
	FailedChunks int

	// Keys holds the conflict-key values of rows in committed chunks.
	Keys []string
}

// Add merges other into s.
func (s *TableStats) Add(other TableStats) {
	s.Rows += other.Rows
	s.Written += other.Written
	s.Failed += other.Failed
	s.Skipped += other.Skipped
	s.Chunks += other.Chunks
	s.FailedChunks += other.FailedChunks
	s.Keys = append(s.Keys, other.Keys...)
}

// BatchWriter splits rows into fixed-size chunks and writes each chunk
// independently. A failed chunk is logged and counted; later chunks still run.
type BatchWriter struct {
	sink      Sink
	batchSize int
	logger    *slog.Logger
	observe   func(TableStats)
}

// Option configures a BatchWriter.
type Option func(*BatchWriter)

// WithBatchSize sets the chunk size.
func WithBatchSize(n int) Option {
	return func(w *BatchWriter) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *BatchWriter) {
		w.logger = logger
	}
}

// WithObserver registers a callback invoked once per table write.
func WithObserver(fn func(TableStats)) Option {
	return func(w *BatchWriter) {
		w.observe = fn
	}
}

// NewBatchWriter creates a BatchWriter over sink.
func NewBatchWriter(sink Sink, opts ...Option) *BatchWriter {
	w := &BatchWriter{
		sink:      sink,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write writes rows to table in chunks. An empty conflictKey inserts,
// otherwise rows are upserted on that column.
func (w *BatchWriter) Write(ctx context.Context, table Table, rows []Row, conflictKey string) TableStats {
	stats := TableStats{Table: table.Name, Rows: len(rows)}
	w.write(ctx, table, rows, conflictKey, &stats)
	w.report(stats)
	return stats
}

// WriteKnown writes only the rows whose market_id is in known and counts the
// rest as skipped.
func (w *BatchWriter) WriteKnown(ctx context.Context, table Table, rows []Row, known func(string) bool) TableStats {
	stats := TableStats{Table: table.Name, Rows: len(rows)}

	col := table.Index(ColumnMarketID)
	kept := rows
	if col >= 0 {
		kept = make([]Row, 0, len(rows))
		for _, r := range rows {
			id, _ := r[col].(string)
			if !known(id) {
				stats.Skipped++
				continue
			}
			kept = append(kept, r)
		}
	}
	if stats.Skipped > 0 {
		w.logger.Warn("skipped rows for unknown markets",
			"table", table.Name,
			"skipped", stats.Skipped,
		)
	}

	w.write(ctx, table, kept, "", &stats)
	w.report(stats)
	return stats
}

func (w *BatchWriter) write(ctx context.Context, table Table, rows []Row, conflictKey string, stats *TableStats) {
	keyCol := -1
	if conflictKey != "" {
		keyCol = table.Index(conflictKey)
	}

	for start := 0; start < len(rows); start += w.batchSize {
		end := min(start+w.batchSize, len(rows))
		chunk := rows[start:end]
		stats.Chunks++

		err := w.sink.Write(ctx, Batch{
			Table:       table.Name,
			Columns:     table.Columns,
			Rows:        chunk,
			ConflictKey: conflictKey,
		})
		if err != nil {
			stats.FailedChunks++
			stats.Failed += len(chunk)
			w.logger.Error("chunk write failed",
				"table", table.Name,
				"chunk_size", len(chunk),
				"error", describe(err),
			)
			continue
		}

		stats.Written += len(chunk)
		if keyCol >= 0 {
			for _, r := range chunk {
				if k, ok := r[keyCol].(string); ok {
					stats.Keys = append(stats.Keys, k)
				}
			}
		}
	}

	w.logger.Debug("table written",
		"table", table.Name,
		"rows", stats.Rows,
		"written", stats.Written,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
}

func (w *BatchWriter) report(stats TableStats) {
	if w.observe != nil {
		w.observe(stats)
	}
}

// describe renders a write error, including a snippet of the response body
// for upstream API errors.
func describe(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && len(apiErr.Body) > 0 {
		return fmt.Sprintf("%v: %s", err, apiErr.Snippet(150))
	}
	return err.Error()
}
