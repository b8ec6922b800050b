package application

import (
	"context"
	"sync"

	"github.com/plumenote/eventstore/domain/record"
	"github.com/plumenote/eventstore/infrastructure/logging"
	"github.com/plumenote/eventstore/infrastructure/telemetry"
)

// StatsAggregator keeps the last good usage snapshot. Recomputes are best
// effort: when the substrate cannot answer, the previous snapshot stands,
// so readers always get numbers at the price of staleness.
type StatsAggregator struct {
	metrics telemetry.Metrics

	mu       sync.RWMutex
	snapshot record.Stats
}

// NewStatsAggregator creates an aggregator with an all-zero snapshot. The
// stored-event gauge moves with every snapshot swap.
func NewStatsAggregator(metrics telemetry.Metrics) *StatsAggregator {
	if metrics == nil {
		metrics = &telemetry.NoopMetricsProvider{}
	}
	return &StatsAggregator{
		metrics:  metrics,
		snapshot: record.NewStats(),
	}
}

// Recompute asks the substrate for fresh counts and swaps the snapshot on
// success.
func (a *StatsAggregator) Recompute(ctx context.Context, st record.Store) {
	stats, err := st.Stats(ctx)
	if err != nil {
		logging.Warn().
			Add(logging.Component("stats")).
			Add(logging.ErrorField(err)).
			Msg("stats recompute failed; keeping previous snapshot")
		return
	}

	a.mu.Lock()
	delta := stats.Tables[record.TableEvents].Count - a.snapshot.Tables[record.TableEvents].Count
	a.snapshot = stats
	a.mu.Unlock()

	if delta != 0 {
		a.metrics.AddStoredEvents(ctx, delta)
	}
}

// Snapshot returns a copy of the last good snapshot.
func (a *StatsAggregator) Snapshot() record.Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := record.NewStats()
	for table, ts := range a.snapshot.Tables {
		out.Tables[table] = ts
	}
	return out
}
