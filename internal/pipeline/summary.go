package pipeline

import (
	"log/slog"
	"time"

	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/normalize"
	"github.com/rickgao/market-pulse/internal/writer"
)

// SourceSummary counts what happened to one source's markets.
type SourceSummary struct {
	Source              model.Source
	Events              int
	Fetched             int
	Normalized          int
	Skipped             map[normalize.SkipReason]int
	Aggregated          int
	AggregationFailures int
	Estimated           int
	Ranked              int
	Truncated           []string // Listings that ended on a fetch error
}

// TotalSkipped sums skips over every reason.
func (s SourceSummary) TotalSkipped() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	States    []State
	Sources   []SourceSummary
	Tables    []writer.TableStats
	IndexErr  error // Known-markets lookup failure; only this run's parents were trusted
}

// Table returns the stats for the named table.
func (s Summary) Table(name string) (writer.TableStats, bool) {
	for _, t := range s.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return writer.TableStats{}, false
}

// Log writes one line per source and per table, then a closing line.
func (s Summary) Log(logger *slog.Logger) {
	for _, src := range s.Sources {
		logger.Info("source summary",
			"source", src.Source,
			"events", src.Events,
			"fetched", src.Fetched,
			"normalized", src.Normalized,
			"skipped", src.TotalSkipped(),
			"aggregated", src.Aggregated,
			"aggregation_failures", src.AggregationFailures,
			"estimated", src.Estimated,
			"ranked", src.Ranked,
			"truncated", src.Truncated,
		)
	}
	for _, t := range s.Tables {
		logger.Info("table summary",
			"table", t.Table,
			"rows", t.Rows,
			"written", t.Written,
			"failed", t.Failed,
			"skipped", t.Skipped,
		)
	}
	logger.Info("run complete",
		"run_id", s.RunID,
		"duration", s.Duration,
	)
}
