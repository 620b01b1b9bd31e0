// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"sort"
	"sync"
	"time"

	"github.com/MKhiriev/go-form-keeper/models"
)

// broadcaster fans typed events out to subscribers. Observers are called
// synchronously, in subscription order, outside of the broadcaster lock.
type broadcaster[T any] struct {
	mu        sync.RWMutex
	next      int
	observers map[int]func(T)
}

func (b *broadcaster[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.observers == nil {
		b.observers = make(map[int]func(T))
	}
	id := b.next
	b.next++
	b.observers[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.observers, id)
	}
}

func (b *broadcaster[T]) publish(ev T) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.observers))
	for id := range b.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.observers[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Freshness is the result of a survey freshness check.
type Freshness int

const (
	FreshnessUpToDate Freshness = iota
	FreshnessUpdated
	FreshnessRemoved
	FreshnessFailed
)

func (f Freshness) String() string {
	switch f {
	case FreshnessUpToDate:
		return "up_to_date"
	case FreshnessUpdated:
		return "updated"
	case FreshnessRemoved:
		return "removed"
	default:
		return "failed"
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveSubmission(models.Outcome, time.Duration) {}
func (nopRecorder) ObserveFreshnessCheck(Freshness)                 {}
func (nopRecorder) SetOnlineStatus(models.OnlineStatus)             {}
func (nopRecorder) SetQueueLength(models.QueueChanged)              {}

// NopRecorder returns a Recorder that discards everything.
func NopRecorder() Recorder {
	return nopRecorder{}
}
