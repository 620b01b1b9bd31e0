// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"time"
)

const defaultInterval = 5 * time.Minute

// Periodic calls fn once after delay and then every interval. The two
// schedules are independent: a slow first call does not shift the ticker.
type Periodic struct {
	delay    time.Duration
	interval time.Duration
	fn       func(ctx context.Context)
}

// NewPeriodic returns a worker for fn. A non-positive interval defaults to
// five minutes; a non-positive delay runs the first call immediately.
func NewPeriodic(delay, interval time.Duration, fn func(ctx context.Context)) *Periodic {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Periodic{delay: delay, interval: interval, fn: fn}
}

// Run implements Worker. Calls never overlap.
func (p *Periodic) Run(ctx context.Context) {
	delay := time.NewTimer(max(p.delay, 0))
	defer delay.Stop()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-delay.C:
			p.fn(ctx)
		case <-ticker.C:
			p.fn(ctx)
		}
	}
}
