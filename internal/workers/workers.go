// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync"
)

// Workers runs a fixed set of workers, each in its own goroutine.
type Workers struct {
	workers []Worker

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorkers returns an idle aggregate of ws.
func NewWorkers(ws ...Worker) *Workers {
	return &Workers{workers: ws}
}

// Add registers w. Workers added after Run are not started.
func (w *Workers) Add(worker Worker) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.workers = append(w.workers, worker)
}

// Run stops any previous run, then starts every worker with a child of ctx
// and returns immediately.
func (w *Workers) Run(ctx context.Context) {
	w.Stop()

	w.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	for _, worker := range w.workers {
		w.wg.Add(1)
		go func(worker Worker) {
			defer w.wg.Done()
			worker.Run(runCtx)
		}(worker)
	}
	w.mu.Unlock()
}

// Stop cancels the running workers and blocks until all of them returned.
// Safe to call when nothing is running.
func (w *Workers) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}
