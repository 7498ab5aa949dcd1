package distance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/machimap/machimap/venue"
)

// DefaultWorkerTimeout is how long a caller waits for the worker's reply
// before terminating it and falling back to synchronous computation.
const DefaultWorkerTimeout = 8 * time.Second

var (
	ErrWorkerTimeout = errors.New("distance worker timed out")
	ErrWorkerStopped = errors.New("distance worker stopped")
)

type request struct {
	records []venue.Record
	pos     venue.Position
	reply   chan response
}

type response struct {
	distances []IndexDistance
	err       error
}

var _ Computer = (*WorkerComputer)(nil)

// WorkerComputer runs the bulk computation on a dedicated goroutine and talks
// to it exclusively via copied message payloads. A request that exceeds the
// timeout terminates the goroutine; the next call spawns a replacement, so a
// single hung computation never degrades the computer permanently.
type WorkerComputer struct {
	mu      sync.Mutex
	jobs    chan request
	stop    chan struct{}
	timeout time.Duration
}

// NewWorkerComputer starts the worker goroutine.
func NewWorkerComputer() *WorkerComputer {
	w := &WorkerComputer{timeout: DefaultWorkerTimeout}
	w.spawn()

	return w
}

// spawn starts a fresh worker goroutine bound to its own channels. The
// caller must hold mu, except in the constructor.
func (w *WorkerComputer) spawn() {
	w.jobs = make(chan request)
	w.stop = make(chan struct{})

	go run(w.jobs, w.stop)
}

func run(jobs chan request, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case req := <-jobs:
			ans := make([]IndexDistance, 0, len(req.records))

			for i := range req.records {
				r := &req.records[i]
				if !r.HasValidCoords() {
					continue
				}

				ans = append(ans, IndexDistance{
					Index:    r.Index,
					Distance: r.HaversineDistance(req.pos),
				})
			}

			req.reply <- response{distances: ans}
		}
	}
}

// current returns the live worker's channels, replacing a terminated worker
// with a fresh one first.
func (w *WorkerComputer) current() (chan request, chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.stop:
		w.spawn()
	default:
	}

	return w.jobs, w.stop
}

func (w *WorkerComputer) Compute(ctx context.Context, records []venue.Record, pos venue.Position) ([]IndexDistance, error) {
	jobs, stop := w.current()

	req := request{
		records: records,
		pos:     pos,
		reply:   make(chan response, 1),
	}

	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-stop:
		return nil, ErrWorkerStopped
	case <-timer.C:
		w.Terminate()
		return nil, ErrWorkerTimeout
	case jobs <- req:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-stop:
		return nil, ErrWorkerStopped
	case <-timer.C:
		w.Terminate()
		return nil, ErrWorkerTimeout
	case resp := <-req.reply:
		return resp.distances, resp.err
	}
}

// Terminate stops the current worker goroutine. In-flight calls fail with
// ErrWorkerStopped; the next Compute spawns a replacement.
func (w *WorkerComputer) Terminate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
}
