package distance

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/machimap/machimap/venue"
)

type cacheKey struct {
	index int
	pos   venue.Position
}

// Engine attaches distances to records, memoizing results per
// (record index, position) for the process lifetime. It delegates bulk work
// to a worker computer and silently falls back to the synchronous path on
// any worker failure. The engine is owned by the application bootstrap, not
// a package-level singleton; Reset exists for tests.
type Engine struct {
	mu       sync.Mutex
	cache    map[cacheKey]float64
	worker   Computer
	fallback Computer
	log      *zap.Logger
}

// NewEngine builds an engine with a running worker and a synchronous
// fallback.
func NewEngine(log *zap.Logger) *Engine {
	return NewEngineWithComputers(NewWorkerComputer(), NewSyncComputer(), log)
}

// NewEngineWithComputers builds an engine over explicit primary and fallback
// computers, keeping the fallback policy testable without a live worker.
func NewEngineWithComputers(primary, fallback Computer, log *zap.Logger) *Engine {
	return &Engine{
		cache:    make(map[cacheKey]float64),
		worker:   primary,
		fallback: fallback,
		log:      log,
	}
}

// Compute returns a copy of records with distances attached. Records with
// invalid coordinates pass through unmodified. The only error returned is
// context cancellation; worker failures are handled internally.
func (e *Engine) Compute(ctx context.Context, records []venue.Record, pos venue.Position) ([]venue.Record, error) {
	ans := make([]venue.Record, len(records))
	copy(ans, records)

	var pending []venue.Record

	e.mu.Lock()
	for i := range ans {
		if !ans[i].HasValidCoords() {
			continue
		}

		if d, ok := e.cache[cacheKey{index: ans[i].Index, pos: pos}]; ok {
			ans[i] = ans[i].WithDistance(d)
		} else {
			pending = append(pending, ans[i])
		}
	}
	e.mu.Unlock()

	if len(pending) == 0 {
		return ans, nil
	}

	computed, err := e.worker.Compute(ctx, pending, pos)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		e.log.Warn("distance worker failed, using synchronous fallback", zap.Error(err))

		computed, err = e.fallback.Compute(ctx, pending, pos)
		if err != nil {
			return nil, err
		}
	}

	byIndex := make(map[int]float64, len(computed))

	e.mu.Lock()
	for _, d := range computed {
		e.cache[cacheKey{index: d.Index, pos: pos}] = d.Distance
		byIndex[d.Index] = d.Distance
	}
	e.mu.Unlock()

	for i := range ans {
		if ans[i].Distance != nil {
			continue
		}

		if d, ok := byIndex[ans[i].Index]; ok {
			ans[i] = ans[i].WithDistance(d)
		}
	}

	return ans, nil
}

// Reset clears the memoized distances.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cache = make(map[cacheKey]float64)
}
