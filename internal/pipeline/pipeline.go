package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/market-pulse/internal/aggregate"
	"github.com/rickgao/market-pulse/internal/config"
	"github.com/rickgao/market-pulse/internal/model"
	"github.com/rickgao/market-pulse/internal/normalize"
	"github.com/rickgao/market-pulse/internal/rank"
	"github.com/rickgao/market-pulse/internal/source"
	"github.com/rickgao/market-pulse/internal/taskgroup"
	"github.com/rickgao/market-pulse/internal/writer"
	"github.com/rickgao/market-pulse/pkg/hashset"
)

// State is one pipeline stage.
type State string

const (
	StateFetchEvents   State = "FETCH_EVENTS"
	StateFetchMarkets  State = "FETCH_MARKETS"
	StateNormalize     State = "NORMALIZE"
	StateAggregate     State = "AGGREGATE"
	StateRank          State = "RANK"
	StateWriteParents  State = "WRITE_PARENTS"
	StateWriteChildren State = "WRITE_CHILDREN"
	StateDone          State = "DONE"
)

// Config holds the run settings.
type Config struct {
	TopN             int
	Metric           rank.Metric
	LiveOnly         bool
	Concurrency      int
	AggregateTimeout time.Duration
	MaxAggregated    int // Per source; 0 aggregates every market
	EstimateMissing  bool
	WritePrices      bool
	BatchSize        int
}

// FromConfig extracts the run settings from a validated config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		TopN:             cfg.Rank.TopN,
		Metric:           rank.Metric(cfg.Rank.Metric),
		LiveOnly:         cfg.Rank.LiveOnly,
		Concurrency:      cfg.Aggregate.Concurrency,
		AggregateTimeout: cfg.Aggregate.Timeout,
		MaxAggregated:    cfg.Aggregate.MaxMarkets,
		EstimateMissing:  cfg.Aggregate.EstimateMissing,
		WritePrices:      cfg.Writer.PricesEnabled(),
		BatchSize:        cfg.Writer.BatchSize,
	}
}

// Recorder receives run metrics. *metrics.Recorder implements it.
type Recorder interface {
	MarketsFetched(source string, n int)
	MarketSkipped(source, reason string)
	Listing(name string, requests int, truncated bool)
	AggregationFailures(source string, n int)
	Table(table string, written, failed, skipped int)
	RunFinished(d time.Duration, at time.Time)
}

type nopRecorder struct{}

func (nopRecorder) MarketsFetched(string, int)           {}
func (nopRecorder) MarketSkipped(string, string)         {}
func (nopRecorder) Listing(string, int, bool)            {}
func (nopRecorder) AggregationFailures(string, int)      {}
func (nopRecorder) Table(string, int, int, int)          {}
func (nopRecorder) RunFinished(time.Duration, time.Time) {}

// Pipeline wires adapters to a store.
type Pipeline struct {
	adapters []source.Adapter
	store    writer.Store
	cfg      Config
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	onState  func(State)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithStateHook is called on entry to every state.
func WithStateHook(fn func(State)) Option {
	return func(p *Pipeline) { p.onState = fn }
}

// New creates a Pipeline.
func New(adapters []source.Adapter, store writer.Store, cfg Config, opts ...Option) *Pipeline {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = config.DefaultConcurrency
	}
	if cfg.Metric == "" {
		cfg.Metric = rank.MetricAuto
	}
	p := &Pipeline{
		adapters: adapters,
		store:    store,
		cfg:      cfg,
		logger:   slog.Default(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// sourceRun is the working set of one source during a run.
type sourceRun struct {
	adapter source.Adapter
	summary *SourceSummary
	events  map[string]source.RawEvent
	raw     []source.RawMarket
	markets []model.NormalizedMarket
	ranked  []model.NormalizedMarket
}

// run is the state of a single Run call.
type run struct {
	*Pipeline
	logger  *slog.Logger
	now     time.Time
	sources []*sourceRun
	known   hashset.Set[string]
	summary *Summary
}

// Run executes one pass. It never fails as a whole; partial results are
// written and accounted for in the Summary.
func (p *Pipeline) Run(ctx context.Context) Summary {
	started := p.now()
	sum := Summary{
		RunID:     uuid.NewString(),
		StartedAt: started.UTC(),
	}
	r := &run{
		Pipeline: p,
		logger:   p.logger.With("run_id", sum.RunID),
		now:      sum.StartedAt,
		known:    hashset.New[string](),
		summary:  &sum,
	}
	for _, a := range p.adapters {
		sum.Sources = append(sum.Sources, SourceSummary{
			Source:  a.Source(),
			Skipped: map[normalize.SkipReason]int{},
		})
	}
	for i, a := range p.adapters {
		r.sources = append(r.sources, &sourceRun{adapter: a, summary: &sum.Sources[i]})
	}

	r.logger.Info("run started", "sources", len(p.adapters), "top_n", p.cfg.TopN, "metric", p.cfg.Metric)

	steps := []struct {
		state State
		fn    func(context.Context)
	}{
		{StateFetchEvents, r.fetchEvents},
		{StateFetchMarkets, r.fetchMarkets},
		{StateNormalize, r.normalizeAll},
		{StateAggregate, r.aggregateAll},
		{StateRank, r.rankAll},
		{StateWriteParents, r.writeParents},
		{StateWriteChildren, r.writeChildren},
	}
	for _, step := range steps {
		r.enter(step.state)
		step.fn(ctx)
	}
	r.enter(StateDone)

	sum.Duration = p.now().Sub(started)
	p.recorder.RunFinished(sum.Duration, p.now())
	return sum
}

func (r *run) enter(s State) {
	r.summary.States = append(r.summary.States, s)
	r.logger.Debug("pipeline state", "state", s)
	if r.onState != nil {
		r.onState(s)
	}
}

func (r *run) fetchEvents(ctx context.Context) {
	for _, s := range r.sources {
		var st source.PageStats
		s.events = s.adapter.ListEvents(ctx, &st)
		s.summary.Events = len(s.events)
		r.listing(s, "events", st)
	}
}

func (r *run) fetchMarkets(ctx context.Context) {
	for _, s := range r.sources {
		var st source.PageStats
		for m := range s.adapter.ListMarkets(ctx, &st) {
			s.raw = append(s.raw, m)
		}
		s.summary.Fetched = len(s.raw)
		r.recorder.MarketsFetched(string(s.summary.Source), len(s.raw))
		for range st.Malformed {
			s.summary.Skipped[normalize.SkipMalformed]++
			r.recorder.MarketSkipped(string(s.summary.Source), string(normalize.SkipMalformed))
		}
		r.listing(s, "markets", st)
	}
}

func (r *run) listing(s *sourceRun, kind string, st source.PageStats) {
	name := string(s.summary.Source) + " " + kind
	r.recorder.Listing(name, st.Requests, st.Truncated)
	if st.Truncated {
		s.summary.Truncated = append(s.summary.Truncated, kind)
	}
	r.logger.Info("listing fetched",
		"listing", name,
		"pages", st.Requests,
		"items", st.Items,
		"malformed", st.Malformed,
		"truncated", st.Truncated,
	)
}

func (r *run) normalizeAll(context.Context) {
	for _, s := range r.sources {
		s.markets = make([]model.NormalizedMarket, 0, len(s.raw))
		for _, raw := range s.raw {
			res := normalize.Normalize(s.summary.Source, raw, s.events, r.now)
			if !res.OK() {
				s.summary.Skipped[res.Skip]++
				r.recorder.MarketSkipped(string(s.summary.Source), string(res.Skip))
				continue
			}
			s.markets = append(s.markets, res.Record)
		}
		s.summary.Normalized = len(s.markets)
		s.raw = nil

		if n := s.summary.TotalSkipped(); n > 0 {
			r.logger.Warn("skipped malformed markets", "source", s.summary.Source, "skipped", n)
		}
	}
}

func (r *run) aggregateAll(ctx context.Context) {
	for _, s := range r.sources {
		candidates := s.markets
		if r.cfg.MaxAggregated > 0 && len(candidates) > r.cfg.MaxAggregated {
			candidates = rank.SelectTopN(candidates, r.cfg.MaxAggregated, rank.MetricVolume)
		}
		ids := make([]string, len(candidates))
		for i, m := range candidates {
			ids[i] = m.Market.MarketID
		}

		agg := aggregate.New(s.adapter,
			aggregate.WithTimeout(r.cfg.AggregateTimeout),
			aggregate.WithClock(func() time.Time { return r.now }),
			aggregate.WithLogger(r.logger),
		)
		results := agg.Aggregate24hAll(ctx, ids, r.cfg.Concurrency)

		for i := range s.markets {
			m := &s.markets[i]
			res, ok := results[m.Market.MarketID]
			if ok && res.Err != nil {
				s.summary.AggregationFailures++
				r.logger.Debug("aggregation failed", "market_id", m.Market.MarketID, "error", res.Err)
			}
			stats := res.Value
			if ok && res.Err == nil {
				s.summary.Aggregated++
			}
			if stats.ContractVolume == 0 && r.cfg.EstimateMissing {
				if est := aggregate.Estimate(m.Snapshot.Price, m.Snapshot.Volume); est.Estimated {
					stats = est
					s.summary.Estimated++
				}
			}
			apply(m, stats)
		}

		if s.summary.AggregationFailures > 0 {
			r.logger.Warn("trade tape aggregation failures",
				"source", s.summary.Source,
				"failed", s.summary.AggregationFailures,
				"attempted", len(ids),
			)
		}
		r.recorder.AggregationFailures(string(s.summary.Source), s.summary.AggregationFailures)
	}
}

func apply(m *model.NormalizedMarket, s aggregate.Stats) {
	m.ContractVolume24h = s.ContractVolume
	m.DollarVolume24h = s.DollarVolume
	m.Snapshot.DollarVolume = s.DollarVolume
	m.Snapshot.VWAP = s.VWAP
}

func (r *run) rankAll(context.Context) {
	for _, s := range r.sources {
		candidates := s.markets
		if r.cfg.LiveOnly {
			candidates = rank.FilterLive(candidates, r.now)
		}
		s.ranked = rank.SelectTopN(candidates, r.cfg.TopN, r.cfg.Metric)
		s.summary.Ranked = len(s.ranked)
		s.markets = nil
	}
}

func (r *run) writeParents(ctx context.Context) {
	idx, err := r.store.KnownMarketIDs(ctx)
	if err != nil {
		r.summary.IndexErr = err
		r.logger.Warn("known markets lookup failed, trusting this run's parents only", "error", err)
	} else {
		r.known.Union(idx)
	}

	var (
		events  []model.Event
		markets []model.MarketRecord
	)
	for _, s := range r.sources {
		referenced := make(map[string]source.RawEvent)
		for _, m := range s.ranked {
			if ev, ok := s.events[m.Market.EventTicker]; ok {
				referenced[m.Market.EventTicker] = ev
			}
			markets = append(markets, m.Market)
		}
		events = append(events, normalize.Events(s.summary.Source, referenced)...)
	}

	w := r.batchWriter()
	r.record(w.Write(ctx, writer.Events, writer.EventRows(events), writer.ColumnEventID))

	stats := w.Write(ctx, writer.Markets, writer.MarketRows(markets), writer.ColumnMarketID)
	for _, id := range stats.Keys {
		r.known.Set(id)
	}
	r.record(stats)
}

func (r *run) writeChildren(ctx context.Context) {
	var (
		snapshots []model.Snapshot
		outcomes  []model.Outcome
		priced    []model.NormalizedMarket
	)
	for _, s := range r.sources {
		for _, m := range s.ranked {
			snapshots = append(snapshots, m.Snapshot)
			outcomes = append(outcomes, m.Outcomes...)
			if m.Snapshot.Price != nil {
				priced = append(priced, m)
			}
		}
	}

	w := r.batchWriter()
	r.record(w.WriteKnown(ctx, writer.Snapshots, writer.SnapshotRows(snapshots), r.known.Has))
	r.record(w.WriteKnown(ctx, writer.Outcomes, writer.OutcomeRows(outcomes), r.known.Has))

	if r.cfg.WritePrices {
		points := r.pricePoints(ctx, priced)
		r.record(w.WriteKnown(ctx, writer.Prices, writer.PriceRows(points), r.known.Has))
	}
}

// pricePoints computes the 24h change of every priced market against the
// newest stored price older than 24h.
func (r *run) pricePoints(ctx context.Context, markets []model.NormalizedMarket) []model.PricePoint {
	ids := make([]string, len(markets))
	for i, m := range markets {
		ids[i] = m.Market.MarketID
	}
	cutoff := r.now.Add(-aggregate.Window)
	history := taskgroup.Run(ctx, ids, r.cfg.Concurrency, func(ctx context.Context, id string) (*float64, error) {
		return r.store.PriceBefore(ctx, id, cutoff)
	})

	failed := 0
	points := make([]model.PricePoint, 0, len(markets))
	for _, m := range markets {
		price := *m.Snapshot.Price
		pt := model.PricePoint{
			MarketID:  m.Market.MarketID,
			Price:     price,
			Timestamp: r.now,
			Source:    m.Market.Source,
		}
		h := history[m.Market.MarketID]
		if h.Err != nil {
			failed++
		}
		pt.Change24h, pt.PercentChange24h = Change(price, h.Value)
		points = append(points, pt)
	}
	if failed > 0 {
		r.logger.Warn("price history lookups failed", "failed", failed, "markets", len(markets))
	}
	return points
}

// Change returns the absolute change from past to price, rounded to 4
// places, and the percent change rounded to 2. Percent is nil when past is
// zero; both are nil without a past price.
func Change(price float64, past *float64) (change, percent *float64) {
	if past == nil {
		return nil, nil
	}
	c := normalize.Round(price-*past, 4)
	change = &c
	if *past != 0 {
		p := normalize.Round(c / *past * 100, 2)
		percent = &p
	}
	return change, percent
}

func (r *run) batchWriter() *writer.BatchWriter {
	return writer.NewBatchWriter(r.store,
		writer.WithBatchSize(r.cfg.BatchSize),
		writer.WithLogger(r.logger),
	)
}

func (r *run) record(stats writer.TableStats) {
	stats.Keys = nil
	r.summary.Tables = append(r.summary.Tables, stats)
	r.recorder.Table(stats.Table, stats.Written, stats.Failed, stats.Skipped)
}
