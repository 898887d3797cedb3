package writer

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rickgao/market-pulse/pkg/hashset"
)

// MemoryStore is an in-process Store with upsert semantics for keyed
// batches. Tests use it in place of a database.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*memTable

	// Fail, when set, is consulted before each batch; a non-nil error
	// rejects the batch.
	Fail func(Batch) error

	calls int
}

type memTable struct {
	columns []string
	rows    []Row
	byKey   map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: map[string]*memTable{}}
}

// Write implements Sink.
func (s *MemoryStore) Write(_ context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.Fail != nil {
		if err := s.Fail(b); err != nil {
			return err
		}
	}

	t, ok := s.tables[b.Table]
	if !ok {
		t = &memTable{columns: b.Columns, byKey: map[string]int{}}
		s.tables[b.Table] = t
	}
	if !slices.Equal(t.columns, b.Columns) {
		return fmt.Errorf("table %s: column mismatch", b.Table)
	}

	keyCol := -1
	if b.ConflictKey != "" {
		keyCol = slices.Index(b.Columns, b.ConflictKey)
		if keyCol < 0 {
			return fmt.Errorf("table %s: unknown conflict key %q", b.Table, b.ConflictKey)
		}
	}

	for _, r := range b.Rows {
		row := slices.Clone(r)
		if keyCol < 0 {
			t.rows = append(t.rows, row)
			continue
		}
		key := fmt.Sprint(row[keyCol])
		if i, ok := t.byKey[key]; ok {
			t.rows[i] = row
			continue
		}
		t.byKey[key] = len(t.rows)
		t.rows = append(t.rows, row)
	}
	return nil
}

// Rows returns a copy of the rows stored for table.
func (s *MemoryStore) Rows(table string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return nil
	}
	return slices.Clone(t.rows)
}

// Calls returns the number of Write calls received.
func (s *MemoryStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// KnownMarketIDs implements MarketIndex.
func (s *MemoryStore) KnownMarketIDs(context.Context) (hashset.Set[string], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := hashset.New[string]()
	t, ok := s.tables[Markets.Name]
	if !ok {
		return known, nil
	}
	col := slices.Index(t.columns, ColumnMarketID)
	for _, r := range t.rows {
		if id, ok := r[col].(string); ok {
			known.Set(id)
		}
	}
	return known, nil
}

// PriceBefore implements PriceHistory.
func (s *MemoryStore) PriceBefore(_ context.Context, marketID string, before time.Time) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[Snapshots.Name]
	if !ok {
		return nil, nil
	}
	idCol := slices.Index(t.columns, ColumnMarketID)
	priceCol := slices.Index(t.columns, "price")
	tsCol := slices.Index(t.columns, "timestamp")

	var (
		best   *float64
		bestTs time.Time
	)
	for _, r := range t.rows {
		if id, _ := r[idCol].(string); id != marketID {
			continue
		}
		ts, _ := r[tsCol].(time.Time)
		price, _ := r[priceCol].(*float64)
		if price == nil || !ts.Before(before) {
			continue
		}
		if best == nil || ts.After(bestTs) {
			v := *price
			best, bestTs = &v, ts
		}
	}
	return best, nil
}
