// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// blockingWorker counts starts and blocks until its context is cancelled.
type blockingWorker struct {
	started atomic.Int64
	stopped atomic.Int64
}

func (b *blockingWorker) Run(ctx context.Context) {
	b.started.Add(1)
	<-ctx.Done()
	b.stopped.Add(1)
}

// ── Workers ──────────────────────────────────────────────────────────────────

func TestWorkers_Run_AllWorkersAreStarted(t *testing.T) {
	w1, w2, w3 := &blockingWorker{}, &blockingWorker{}, &blockingWorker{}

	ws := NewWorkers(w1, w2, w3)
	ws.Run(context.Background())

	assert.Eventually(t, func() bool {
		return w1.started.Load() == 1 && w2.started.Load() == 1 && w3.started.Load() == 1
	}, time.Second, 5*time.Millisecond)

	ws.Stop()

	for i, w := range []*blockingWorker{w1, w2, w3} {
		assert.Equal(t, int64(1), w.stopped.Load(), "worker[%d] must be stopped", i)
	}
}

func TestWorkers_Run_Empty(t *testing.T) {
	ws := NewWorkers()

	assert.NotPanics(t, func() {
		ws.Run(context.Background())
		ws.Stop()
	})
}

func TestWorkers_Stop_BeforeRun_NoPanic(t *testing.T) {
	ws := &Workers{}

	assert.NotPanics(t, func() { ws.Stop() })
}

func TestWorkers_Run_RestartsWorkers(t *testing.T) {
	w := &blockingWorker{}
	ws := NewWorkers(w)

	ws.Run(context.Background())
	ws.Run(context.Background())
	ws.Stop()

	assert.Equal(t, int64(2), w.started.Load())
	assert.Equal(t, int64(2), w.stopped.Load())
}

func TestWorkers_ParentCancelStopsWorkers(t *testing.T) {
	w := &blockingWorker{}
	ws := NewWorkers(w)

	ctx, cancel := context.WithCancel(context.Background())
	ws.Run(ctx)
	cancel()

	assert.Eventually(t, func() bool { return w.stopped.Load() == 1 }, time.Second, 5*time.Millisecond)
	ws.Stop()
}

func TestWorkers_Add(t *testing.T) {
	var calls atomic.Int64
	ws := NewWorkers()
	ws.Add(WorkerFunc(func(context.Context) { calls.Add(1) }))

	ws.Run(context.Background())
	ws.Stop()

	assert.Equal(t, int64(1), calls.Load())
}

// ── Periodic ─────────────────────────────────────────────────────────────────

func TestPeriodic_DelayThenInterval(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []time.Time
	)
	p := NewPeriodic(20*time.Millisecond, 200*time.Millisecond, func(context.Context) {
		mu.Lock()
		calls = append(calls, time.Now())
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls[0].Sub(start), 20*time.Millisecond)
	assert.Less(t, calls[0].Sub(start), 200*time.Millisecond, "first call must come from the delay timer")
}

func TestPeriodic_Ticks(t *testing.T) {
	var calls atomic.Int64
	p := NewPeriodic(time.Hour, 10*time.Millisecond, func(context.Context) { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestPeriodic_StopsOnCancel(t *testing.T) {
	var calls atomic.Int64
	p := NewPeriodic(0, 10*time.Millisecond, func(context.Context) { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()
	<-done

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no calls after cancellation")
}

func TestNewPeriodic_DefaultInterval(t *testing.T) {
	p := NewPeriodic(0, 0, func(context.Context) {})

	assert.Equal(t, defaultInterval, p.interval)
}
