/*
scheduler.go - Scheduled portfolio revaluation

PURPOSE:
  Periodically re-evaluates every stored contract against the current
  risk factors and records a fresh run per contract, with the check time
  as the analysis date. Runs are append-only, so each tick leaves a
  dated snapshot of every contract's state.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - All stored contracts form one portfolio; referenced contracts are
    evaluated first
  - A failing batch is logged and retried on the next tick

CONFIGURATION:
  - Interval: How often to revalue (default: 24 hours)
  - Enabled: Whether scheduler is active (default: false)

USAGE:
  scheduler := NewRevaluationScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: evaluateStored (shared with the evaluate endpoints)
*/
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/warp/cashflow-engine/generic"
)

// RevaluationScheduler revalues the stored book on a timer.
type RevaluationScheduler struct {
	Handler  *Handler
	Interval time.Duration
	Enabled  bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRevaluationScheduler creates a disabled scheduler with a daily interval.
func NewRevaluationScheduler(h *Handler) *RevaluationScheduler {
	return &RevaluationScheduler{
		Handler:  h,
		Interval: 24 * time.Hour,
	}
}

// Start begins the scheduler.
func (rs *RevaluationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	logger := rs.Handler.Logger
	if !rs.Enabled {
		logger.Info("revaluation scheduler disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)
	go rs.run()

	logger.Info("revaluation scheduler started", "interval", rs.Interval)
}

// Stop stops the scheduler and waits for a running revaluation to finish.
func (rs *RevaluationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.wg.Wait()
	rs.ticker = nil
	rs.Handler.Logger.Info("revaluation scheduler stopped")
}

func (rs *RevaluationScheduler) run() {
	defer rs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-rs.stop
		cancel()
	}()

	rs.tick(ctx)
	for {
		select {
		case <-rs.ticker.C:
			rs.tick(ctx)
		case <-rs.stop:
			return
		}
	}
}

func (rs *RevaluationScheduler) tick(ctx context.Context) {
	runs, err := rs.Handler.revalueAll(ctx)
	if err != nil {
		rs.Handler.Logger.Error("scheduled revaluation failed", "error", err)
		return
	}
	rs.Handler.Logger.Info("scheduled revaluation completed", "runs", len(runs))
}

// NextRunTime returns when the next scheduled check will occur.
func (rs *RevaluationScheduler) NextRunTime() time.Time {
	return time.Now().Add(rs.Interval)
}

// revalueAll evaluates every stored contract as one portfolio at the
// current time and records the runs.
func (h *Handler) revalueAll(ctx context.Context) ([]generic.Run, error) {
	records, err := h.Store.ListContracts(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	ids := make([]generic.ContractID, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	evals, _, err := h.evaluateStored(ctx, ids, []time.Time{h.now()})
	if err != nil {
		return nil, err
	}
	runs := make([]generic.Run, len(evals))
	for i, ev := range evals {
		runs[i] = ev.run
	}
	return runs, nil
}

// Revalue triggers an immediate revaluation of the stored book.
// POST /api/admin/revalue
func (h *Handler) Revalue(w http.ResponseWriter, r *http.Request) {
	runs, err := h.revalueAll(r.Context())
	if err != nil {
		h.fail(w, "Revaluation failed", err)
		return
	}
	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusCreated, dtos)
}
