// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package devserver

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MKhiriev/go-form-keeper/internal/config"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/internal/metrics"
)

type Handler struct {
	forms   *FormStore
	inbox   *inbox
	maxSize int64
	timeout time.Duration

	registry *prometheus.Registry
	metrics  *metrics.HTTPMetrics

	// rejectWith, when non-zero, is answered to every submission.
	rejectWith atomic.Int32

	now    func() time.Time
	logger *logger.Logger
}

// NewHandler returns a handler serving the forms of cfg.FormsDir. Request
// metrics are registered with a registry of its own and exposed on /metrics.
func NewHandler(cfg config.ServerConfig, logger *logger.Logger) (*Handler, error) {
	registry := prometheus.NewRegistry()
	httpMetrics, err := metrics.NewHTTP(registry)
	if err != nil {
		return nil, fmt.Errorf("create http metrics: %w", err)
	}

	logger.Info().Str("forms_dir", cfg.FormsDir).Msg("http handler created")
	return &Handler{
		forms:    NewFormStore(cfg.FormsDir),
		inbox:    newInbox(),
		maxSize:  cfg.MaxSize,
		timeout:  cfg.RequestTimeout,
		registry: registry,
		metrics:  httpMetrics,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Submissions returns the received submissions ordered by instance id.
func (h *Handler) Submissions() []Submission {
	return h.inbox.list()
}

// RejectSubmissions makes every following submission answer status. Zero
// restores normal processing.
func (h *Handler) RejectSubmissions(status int) {
	h.rejectWith.Store(int32(status))
}
