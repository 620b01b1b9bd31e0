// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package metrics exposes Prometheus collectors for the client services and
// the development server.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MKhiriev/go-form-keeper/internal/service"
	"github.com/MKhiriev/go-form-keeper/models"
)

const namespace = "formkeeper"

// Queue states used as the state label of the queue gauge.
const (
	StateFinal = "final"
	StateDraft = "draft"
)

// Recorder implements [service.Recorder] on top of Prometheus collectors.
type Recorder struct {
	submissions        *prometheus.CounterVec
	submissionDuration *prometheus.HistogramVec
	freshnessChecks    *prometheus.CounterVec
	online             prometheus.Gauge
	queueLength        *prometheus.GaugeVec
}

var _ service.Recorder = (*Recorder)(nil)

// New creates the client collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Total number of batch submissions by outcome.",
		}, []string{"outcome"}),

		submissionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Batch submission duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),

		freshnessChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "freshness_checks_total",
			Help:      "Total number of survey freshness checks by result.",
		}, []string{"result"}),

		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online",
			Help:      "Connectivity status: 1 online, 0 offline, -1 unknown.",
		}),

		queueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_records",
			Help:      "Number of stored records by survey and state.",
		}, []string{"survey_id", "state"}),
	}
	r.online.Set(-1)

	for _, c := range []prometheus.Collector{
		r.submissions,
		r.submissionDuration,
		r.freshnessChecks,
		r.online,
		r.queueLength,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

func (r *Recorder) ObserveSubmission(outcome models.Outcome, elapsed time.Duration) {
	label := outcome.String()
	r.submissions.WithLabelValues(label).Inc()
	r.submissionDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveFreshnessCheck(result service.Freshness) {
	r.freshnessChecks.WithLabelValues(result.String()).Inc()
}

func (r *Recorder) SetOnlineStatus(status models.OnlineStatus) {
	switch status {
	case models.StatusOnline:
		r.online.Set(1)
	case models.StatusOffline:
		r.online.Set(0)
	default:
		r.online.Set(-1)
	}
}

func (r *Recorder) SetQueueLength(changed models.QueueChanged) {
	r.queueLength.WithLabelValues(changed.SurveyID, StateFinal).Set(float64(changed.Final))
	r.queueLength.WithLabelValues(changed.SurveyID, StateDraft).Set(float64(changed.Drafts))
}

// Handler serves the metrics gathered by g in the text exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
