// internal/service/worker.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Dispatcher sends scheduled campaigns that are due.
type Dispatcher interface {
	DispatchDue(ctx context.Context) (int, error)
}

// Worker runs the scheduler loop
type Worker struct {
	Dispatcher Dispatcher
	Interval   time.Duration
	Log        *zap.Logger
	// Tick overrides the ticker channel in tests.
	Tick <-chan time.Time
}

// Constructor
func NewWorker(d Dispatcher, interval time.Duration, log *zap.Logger) *Worker {
	return &Worker{
		Dispatcher: d,
		Interval:   interval,
		Log:        log,
	}
}

// Start dispatches once, then on every tick until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	tick := w.Tick
	if tick == nil {
		t := time.NewTicker(w.Interval)
		defer t.Stop()
		tick = t.C
	}

	w.runOnce(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-tick:
			w.runOnce(ctx, log)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context, log *zap.Logger) {
	sent, err := w.Dispatcher.DispatchDue(ctx)
	if err != nil {
		log.Error("failed to dispatch scheduled campaigns", zap.Error(err))
		return
	}
	if sent > 0 {
		log.Info("dispatched scheduled campaigns", zap.Int("count", sent))
	}
}
