// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync"

	"github.com/MKhiriev/go-form-keeper/internal/adapter"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/models"
)

type connectivityMonitor struct {
	adapter  adapter.ServerAdapter
	recorder Recorder

	mu      sync.Mutex
	status  models.OnlineStatus
	tracker UploadTracker

	events broadcaster[models.OnlineStatus]
	logger *logger.Logger
}

// NewConnectivityMonitor returns a monitor in the unknown state. Probes are
// only sent through Check; polling is left to the caller.
func NewConnectivityMonitor(serverAdapter adapter.ServerAdapter, recorder Recorder, log *logger.Logger) ConnectivityMonitor {
	if recorder == nil {
		recorder = NopRecorder()
	}
	return &connectivityMonitor{
		adapter:  serverAdapter,
		recorder: recorder,
		status:   models.StatusUnknown,
		logger:   log.WithComponent("connectivity"),
	}
}

func (m *connectivityMonitor) TrackUploads(t UploadTracker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracker = t
}

func (m *connectivityMonitor) Status() models.OnlineStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *connectivityMonitor) Check(ctx context.Context) models.OnlineStatus {
	m.mu.Lock()
	tracker := m.tracker
	m.mu.Unlock()

	if tracker != nil && tracker.Uploading() {
		m.logger.Debug().Msg("upload in flight, probe skipped")
		return m.Status()
	}

	online, err := m.adapter.CheckConnection(ctx)
	if err != nil {
		m.logger.Debug().Err(err).Str("func", "connectivityMonitor.Check").Msg("connectivity probe failed")
	}

	m.Report(online)
	return m.Status()
}

func (m *connectivityMonitor) Report(online bool) {
	next := models.StatusOffline
	if online {
		next = models.StatusOnline
	}

	m.mu.Lock()
	changed := m.status != next
	m.status = next
	m.mu.Unlock()

	if !changed {
		return
	}

	m.logger.Info().Str("status", next.String()).Msg("online status changed")
	m.recorder.SetOnlineStatus(next)
	m.events.publish(next)
}

func (m *connectivityMonitor) Subscribe(fn func(models.OnlineStatus)) func() {
	return m.events.Subscribe(fn)
}
