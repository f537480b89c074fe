// internal/app/system/workers/teardown.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/zozokid/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Resumer finishes class teardowns that a previous process left behind.
type Resumer interface {
	ResumePending(ctx context.Context) (int, error)
}

// TeardownWorker is a background worker that resumes interrupted class
// teardowns.
type TeardownWorker struct {
	resumer  Resumer
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewTeardownWorker creates a worker that calls r.ResumePending every interval.
func NewTeardownWorker(r Resumer, logger *zap.Logger, interval time.Duration) *TeardownWorker {
	return &TeardownWorker{
		resumer:  r,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one pass immediately, then begins the background loop.
func (w *TeardownWorker) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("teardown worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *TeardownWorker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("teardown worker stopped")
}

func (w *TeardownWorker) run() {
	defer w.wg.Done()

	w.RunOnce()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single resume pass.
func (w *TeardownWorker) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Batch())
	defer cancel()

	n, err := w.resumer.ResumePending(ctx)
	if err != nil {
		w.log.Error("failed to resume class teardowns", zap.Error(err))
		return
	}
	if n > 0 {
		w.log.Info("resumed class teardowns", zap.Int("count", n))
	}
}
