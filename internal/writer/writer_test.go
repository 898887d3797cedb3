package writer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/rickgao/market-pulse/internal/api"
	"github.com/rickgao/market-pulse/internal/model"
)

var ts = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func marketRecords(n int) []model.MarketRecord {
	out := make([]model.MarketRecord, n)
	for i := range out {
		out[i] = model.MarketRecord{
			MarketID: fmt.Sprintf("M-%d", i),
			Name:     fmt.Sprintf("Market %d", i),
			Status:   model.StatusTrading,
			Source:   model.SourceKalshi,
		}
	}
	return out
}

func snapshots(ids ...string) []model.Snapshot {
	out := make([]model.Snapshot, len(ids))
	for i, id := range ids {
		out[i] = model.Snapshot{MarketID: id, Price: model.Float(0.5), Timestamp: ts, Source: model.SourceKalshi}
	}
	return out
}

func TestBatchWriter_UpsertIdempotent(t *testing.T) {
	store := NewMemoryStore()
	w := NewBatchWriter(store)
	rows := MarketRows(marketRecords(3))

	for range 2 {
		stats := w.Write(context.Background(), Markets, rows, ColumnMarketID)
		if stats.Written != 3 || stats.Failed != 0 {
			t.Fatalf("stats = %+v, want 3 written", stats)
		}
	}

	if got := len(store.Rows(Markets.Name)); got != 3 {
		t.Errorf("markets rows = %d, want 3 after two upserts", got)
	}
}

func TestBatchWriter_InsertAppends(t *testing.T) {
	store := NewMemoryStore()
	w := NewBatchWriter(store)
	rows := SnapshotRows(snapshots("A", "B"))

	w.Write(context.Background(), Snapshots, rows, "")
	w.Write(context.Background(), Snapshots, rows, "")

	if got := len(store.Rows(Snapshots.Name)); got != 4 {
		t.Errorf("snapshot rows = %d, want 4 after two inserts", got)
	}
}

func TestBatchWriter_Chunking(t *testing.T) {
	store := NewMemoryStore()
	w := NewBatchWriter(store, WithBatchSize(2))

	stats := w.Write(context.Background(), Markets, MarketRows(marketRecords(5)), ColumnMarketID)

	if stats.Chunks != 3 {
		t.Errorf("Chunks = %d, want 3", stats.Chunks)
	}
	if store.Calls() != 3 {
		t.Errorf("sink calls = %d, want 3", store.Calls())
	}
	if len(stats.Keys) != 5 {
		t.Errorf("Keys = %v, want 5 keys", stats.Keys)
	}
}

func TestBatchWriter_FailedChunkContinues(t *testing.T) {
	store := NewMemoryStore()
	call := 0
	store.Fail = func(b Batch) error {
		call++
		if call == 2 {
			return &api.APIError{Service: "postgrest", StatusCode: 409, Message: "Conflict", Body: []byte(`{"code":"23503"}`)}
		}
		return nil
	}
	var observed []TableStats
	w := NewBatchWriter(store, WithBatchSize(2), WithObserver(func(s TableStats) {
		observed = append(observed, s)
	}))

	stats := w.Write(context.Background(), Markets, MarketRows(marketRecords(5)), ColumnMarketID)

	if stats.FailedChunks != 1 || stats.Failed != 2 || stats.Written != 3 {
		t.Errorf("stats = %+v, want 1 failed chunk of 2 and 3 written", stats)
	}
	if want := []string{"M-0", "M-1", "M-4"}; !slices.Equal(stats.Keys, want) {
		t.Errorf("Keys = %v, want %v", stats.Keys, want)
	}
	if len(observed) != 1 || observed[0].Table != "markets" {
		t.Errorf("observed = %+v, want one markets report", observed)
	}
}

func TestBatchWriter_WriteKnown(t *testing.T) {
	store := NewMemoryStore()
	w := NewBatchWriter(store)
	known := map[string]bool{"A": true, "C": true}

	stats := w.WriteKnown(context.Background(), Snapshots, SnapshotRows(snapshots("A", "B", "C", "D")), func(id string) bool {
		return known[id]
	})

	if stats.Skipped != 2 || stats.Written != 2 || stats.Rows != 4 {
		t.Errorf("stats = %+v, want 2 skipped, 2 written", stats)
	}
	var ids []string
	for _, r := range store.Rows(Snapshots.Name) {
		ids = append(ids, r[0].(string))
	}
	if !slices.Equal(ids, []string{"A", "C"}) {
		t.Errorf("written ids = %v, want [A C]", ids)
	}
}

func TestBatchWriter_Empty(t *testing.T) {
	store := NewMemoryStore()
	stats := NewBatchWriter(store).Write(context.Background(), Events, nil, ColumnEventID)
	if stats.Chunks != 0 || store.Calls() != 0 {
		t.Errorf("empty write made %d chunks and %d calls", stats.Chunks, store.Calls())
	}
}

func TestDescribe(t *testing.T) {
	err := fmt.Errorf("write: %w", &api.APIError{Service: "postgrest", StatusCode: 400, Message: "Bad Request", Body: []byte("boom")})
	if got, want := describe(err), "write: postgrest api error 400: Bad Request: boom"; got != want {
		t.Errorf("describe() = %q, want %q", got, want)
	}
	if got := describe(errors.New("plain")); got != "plain" {
		t.Errorf("describe() = %q, want plain", got)
	}
}

func TestRows(t *testing.T) {
	exp := ts.Add(time.Hour)
	m := MarketRows([]model.MarketRecord{{MarketID: "X", Expiration: &exp, Status: model.StatusClosed, Source: model.SourcePolymarket}})[0]
	if len(m) != len(Markets.Columns) {
		t.Fatalf("market row has %d values, want %d", len(m), len(Markets.Columns))
	}
	if tags, ok := m[Markets.Index("tags")].([]string); !ok || tags == nil {
		t.Errorf("tags = %#v, want empty non-nil slice", m[Markets.Index("tags")])
	}
	if m[Markets.Index("status")] != "CLOSED" || m[Markets.Index("source")] != "polymarket" {
		t.Errorf("status/source = %v/%v", m[Markets.Index("status")], m[Markets.Index("source")])
	}

	checks := []struct {
		table Table
		row   Row
	}{
		{Events, EventRows([]model.Event{{EventID: "E"}})[0]},
		{Snapshots, SnapshotRows(snapshots("A"))[0]},
		{Outcomes, OutcomeRows([]model.Outcome{{MarketID: "A", OutcomeName: "Yes"}})[0]},
		{Prices, PriceRows([]model.PricePoint{{MarketID: "A"}})[0]},
	}
	for _, c := range checks {
		if len(c.row) != len(c.table.Columns) {
			t.Errorf("%s row has %d values, want %d", c.table.Name, len(c.row), len(c.table.Columns))
		}
	}
}

func TestMemoryStore_Lookups(t *testing.T) {
	store := NewMemoryStore()
	w := NewBatchWriter(store)
	ctx := context.Background()

	w.Write(ctx, Markets, MarketRows(marketRecords(2)), ColumnMarketID)
	known, err := store.KnownMarketIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !known.Has("M-0") || !known.Has("M-1") || known.Len() != 2 {
		t.Errorf("known = %v", known)
	}

	old := model.Snapshot{MarketID: "M-0", Price: model.Float(0.40), Timestamp: ts.Add(-30 * time.Hour)}
	older := model.Snapshot{MarketID: "M-0", Price: model.Float(0.30), Timestamp: ts.Add(-48 * time.Hour)}
	recent := model.Snapshot{MarketID: "M-0", Price: model.Float(0.55), Timestamp: ts.Add(-time.Hour)}
	w.Write(ctx, Snapshots, SnapshotRows([]model.Snapshot{older, old, recent}), "")

	p, err := store.PriceBefore(ctx, "M-0", ts.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || *p != 0.40 {
		t.Errorf("PriceBefore = %v, want 0.40", p)
	}
	if p, _ := store.PriceBefore(ctx, "M-1", ts); p != nil {
		t.Errorf("PriceBefore(M-1) = %v, want nil", *p)
	}
}
