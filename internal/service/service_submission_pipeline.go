// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MKhiriev/go-form-keeper/internal/adapter"
	"github.com/MKhiriev/go-form-keeper/internal/config"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/models"
	"github.com/dustin/go-humanize"
)

// queuedBatch is a batch waiting for, or undergoing, delivery.
type queuedBatch struct {
	batch   models.Batch
	forced  bool
	waiters []chan models.BatchResult
}

func (q *queuedBatch) wait() <-chan models.BatchResult {
	ch := make(chan models.BatchResult, 1)
	q.waiters = append(q.waiters, ch)
	return ch
}

func (q *queuedBatch) resolve(result models.BatchResult) {
	for _, ch := range q.waiters {
		ch <- result
	}
	q.waiters = nil
}

// runTally accumulates the results of one drain of the queue.
type runTally struct {
	wins  []models.BatchResult
	fails []models.BatchResult
}

type submissionPipeline struct {
	adapter  adapter.ServerAdapter
	monitor  ConnectivityMonitor
	recorder Recorder

	supportEmail    string
	defaultMaxSize  int64
	absoluteMaxSize int64

	mu        sync.Mutex
	queue     []*queuedBatch
	current   *queuedBatch
	draining  bool
	delivered map[string]map[int]struct{}
	run       runTally

	events broadcaster[models.SubmissionEvent]
	now    func() time.Time
}

// NewSubmissionPipeline returns an idle pipeline. Delivery starts on the
// first enqueued batch and stops when the queue is empty.
func NewSubmissionPipeline(
	serverAdapter adapter.ServerAdapter,
	monitor ConnectivityMonitor,
	recorder Recorder,
	submission config.ClientSubmission,
	supportEmail string,
) SubmissionPipeline {
	if recorder == nil {
		recorder = NopRecorder()
	}
	return &submissionPipeline{
		adapter:         serverAdapter,
		monitor:         monitor,
		recorder:        recorder,
		supportEmail:    supportEmail,
		defaultMaxSize:  submission.DefaultMaxSize,
		absoluteMaxSize: submission.AbsoluteMaxSize,
		delivered:       make(map[string]map[int]struct{}),
		now:             time.Now,
	}
}

func (p *submissionPipeline) PrepareBatches(record models.Record, maxSize int64) ([]models.Batch, []string, error) {
	return prepareBatches(record, maxSize)
}

func (p *submissionPipeline) GetMaximumSubmissionSize(ctx context.Context, ref models.SurveyRef) int64 {
	log := logger.FromContext(ctx)

	size, err := p.adapter.GetMaximumSubmissionSize(ctx, ref)
	if err != nil {
		log.Warn().Err(err).Str("func", "submissionPipeline.GetMaximumSubmissionSize").
			Str("survey_id", ref.ID).
			Str("fallback", humanize.IBytes(uint64(p.defaultMaxSize))).
			Msg("maximum submission size unavailable, using default")
		size = p.defaultMaxSize
	}
	if size <= 0 {
		log.Warn().Str("func", "submissionPipeline.GetMaximumSubmissionSize").
			Str("survey_id", ref.ID).
			Int64("size", size).
			Msg("server reported a non-positive maximum submission size, using default")
		size = p.defaultMaxSize
	}
	if size > p.absoluteMaxSize {
		size = p.absoluteMaxSize
	}
	return size
}

func (p *submissionPipeline) UploadRecords(ctx context.Context, batch models.Batch, force bool) bool {
	_, ok := p.enqueue(ctx, batch, force)
	return ok
}

func (p *submissionPipeline) SubmitRecord(ctx context.Context, record models.Record, force bool) (models.RecordResult, error) {
	log := logger.FromContext(ctx)

	result := models.RecordResult{InstanceID: record.InstanceID, Name: record.Name}

	maxSize := p.GetMaximumSubmissionSize(ctx, models.SurveyRef{ID: record.SurveyID})
	batches, missing, err := prepareBatches(record, maxSize)
	if err != nil {
		log.Err(err).Str("func", "submissionPipeline.SubmitRecord").
			Str("instance_id", record.InstanceID).
			Msg("failed to prepare batches")
		return result, fmt.Errorf("prepare batches: %w", err)
	}
	result.MissingFiles = missing
	if len(missing) > 0 {
		log.Warn().Str("instance_id", record.InstanceID).Strs("missing", missing).
			Msg("record references attachments that are not stored")
	}

	waits := make([]<-chan models.BatchResult, 0, len(batches))
	for _, batch := range batches {
		wait, ok := p.enqueue(ctx, batch, force)
		if !ok {
			return result, fmt.Errorf("%w: %s batch %d", ErrInvalidBatch, batch.InstanceID, batch.BatchIndex)
		}
		if wait != nil {
			waits = append(waits, wait)
		}
	}

	result.Success = true
	cancelled := false
	for _, wait := range waits {
		select {
		case r := <-wait:
			result.Batches = append(result.Batches, r)
			if !r.Outcome.Success() {
				result.Success = false
			}
			if r.Outcome == models.OutcomeAuthRequired || r.Outcome == models.OutcomeCancelled {
				cancelled = true
			}
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}
	if cancelled {
		return result, ErrUploadCancelled
	}
	return result, nil
}

// enqueue adds batch to the queue and starts the drainer when idle. The
// returned channel yields the result of the delivery; it is nil when the
// batch was delivered before.
func (p *submissionPipeline) enqueue(ctx context.Context, batch models.Batch, force bool) (<-chan models.BatchResult, bool) {
	if !batch.IsComplete() {
		logger.FromContext(ctx).Warn().Str("func", "submissionPipeline.enqueue").
			Str("instance_id", batch.InstanceID).
			Msg("incomplete batch rejected")
		return nil, false
	}

	key := batch.Key()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.current.batch.Key() == key {
		if force {
			p.current.forced = true
		}
		return p.current.wait(), true
	}
	for _, item := range p.queue {
		if item.batch.Key() == key {
			if force {
				item.forced = true
			}
			return item.wait(), true
		}
	}
	if _, ok := p.delivered[key.InstanceID][key.BatchIndex]; ok {
		return nil, true
	}

	item := &queuedBatch{batch: batch, forced: force}
	wait := item.wait()
	p.queue = append(p.queue, item)

	if !p.draining {
		p.draining = true
		go p.drain(context.WithoutCancel(ctx))
	}
	return wait, true
}

// drain delivers queued batches one at a time until the queue is empty.
func (p *submissionPipeline) drain(ctx context.Context) {
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			p.draining = false
			run := p.run
			p.run = runTally{}
			p.mu.Unlock()

			p.finishRun(ctx, run)
			return
		}
		item := p.queue[0]
		p.queue = p.queue[1:]
		p.current = item
		batch := item.batch
		p.mu.Unlock()

		p.events.publish(models.SubmissionEvent{
			Kind:       models.EventSubmissionStart,
			InstanceID: batch.InstanceID,
			Name:       batch.Name,
		})

		status := p.deliver(ctx, batch)
		p.handleResponse(ctx, item, status)
	}
}

// deliver sends batch unless the monitor reports offline, in which case the
// batch resolves as unreachable without a network call.
func (p *submissionPipeline) deliver(ctx context.Context, batch models.Batch) int {
	log := logger.FromContext(ctx)

	if p.monitor.Status() == models.StatusOffline {
		log.Debug().Str("instance_id", batch.InstanceID).Msg("offline, batch not sent")
		return 0
	}

	start := p.now()
	status, err := p.adapter.Submit(ctx, batch)
	if err != nil {
		log.Err(err).Str("func", "submissionPipeline.deliver").
			Str("instance_id", batch.InstanceID).
			Int("batch_index", batch.BatchIndex).
			Msg("batch delivery failed")
	}
	p.recorder.ObserveSubmission(ClassifyStatus(status), p.now().Sub(start))

	log.Info().Str("instance_id", batch.InstanceID).
		Int("batch_index", batch.BatchIndex).
		Int("batch_count", batch.BatchCount).
		Str("size", humanize.IBytes(uint64(batch.Size()))).
		Int("status", status).
		Msg("batch resolved")
	return status
}

func (p *submissionPipeline) handleResponse(ctx context.Context, item *queuedBatch, status int) {
	batch := item.batch
	outcome := ClassifyStatus(status)

	p.mu.Lock()
	result := models.BatchResult{
		Name:       batch.Name,
		InstanceID: batch.InstanceID,
		BatchIndex: batch.BatchIndex,
		BatchCount: batch.BatchCount,
		StatusCode: status,
		Outcome:    outcome,
		Forced:     item.forced,
		Message:    outcomeMessage(outcome, p.supportEmail, batch.BatchIndex, batch.BatchCount),
	}

	var (
		cancelled     []*queuedBatch
		recordSuccess bool
	)
	switch {
	case outcome == models.OutcomeAuthRequired:
		cancelled = p.queue
		p.queue = nil
		p.run = runTally{}
	case outcome.Success():
		indices := p.delivered[batch.InstanceID]
		if indices == nil {
			indices = make(map[int]struct{}, batch.BatchCount)
			p.delivered[batch.InstanceID] = indices
		}
		indices[batch.BatchIndex] = struct{}{}

		recordSuccess = allDelivered(indices, batch.BatchCount)
		result.Partial = !recordSuccess
		if recordSuccess {
			delete(p.delivered, batch.InstanceID)
		}
		p.run.wins = append(p.run.wins, result)
	default:
		p.run.fails = append(p.run.fails, result)
	}
	p.current = nil
	p.mu.Unlock()

	p.monitor.Report(status != 0)

	if outcome == models.OutcomeAuthRequired {
		logger.FromContext(ctx).Warn().Int("cancelled", len(cancelled)).
			Msg("authentication required, upload queue cancelled")
		p.events.publish(models.SubmissionEvent{
			Kind:       models.EventAuthRequired,
			InstanceID: batch.InstanceID,
			Name:       batch.Name,
			Result:     &result,
		})
	} else {
		p.events.publish(models.SubmissionEvent{
			Kind:       models.EventBatchComplete,
			InstanceID: batch.InstanceID,
			Name:       batch.Name,
			Result:     &result,
		})
	}
	if recordSuccess {
		p.events.publish(models.SubmissionEvent{
			Kind:       models.EventRecordSubmitted,
			InstanceID: batch.InstanceID,
			Name:       batch.Name,
		})
	}

	// waiters are released only after subscribers saw the result
	for _, c := range cancelled {
		c.resolve(p.cancelledResult(c))
	}
	item.resolve(result)
}

// finishRun publishes the summary of a drained queue.
func (p *submissionPipeline) finishRun(ctx context.Context, run runTally) {
	summary := models.UploadSummary{Failed: run.fails}

	seen := make(map[string]struct{})
	for _, win := range run.wins {
		if win.Partial {
			continue
		}
		if _, ok := seen[win.Name]; ok {
			continue
		}
		seen[win.Name] = struct{}{}
		summary.Uploaded = append(summary.Uploaded, win.Name)
	}
	summary.Feedback = uploadedFeedback(summary.Uploaded)

	if p.monitor.Status() != models.StatusOffline {
		var alerts []string
		for _, fail := range run.fails {
			if fail.Forced {
				alerts = append(alerts, fail.Name+": "+fail.Message)
			}
		}
		summary.Alert = strings.Join(alerts, "\n")
	}

	logger.FromContext(ctx).Info().Int("uploaded", len(summary.Uploaded)).Int("failed", len(run.fails)).
		Msg("upload queue drained")

	p.events.publish(models.SubmissionEvent{
		Kind:    models.EventQueueDrained,
		Summary: &summary,
	})
}

func (p *submissionPipeline) cancelledResult(item *queuedBatch) models.BatchResult {
	return models.BatchResult{
		Name:       item.batch.Name,
		InstanceID: item.batch.InstanceID,
		BatchIndex: item.batch.BatchIndex,
		BatchCount: item.batch.BatchCount,
		Outcome:    models.OutcomeCancelled,
		Forced:     item.forced,
		Message:    outcomeMessage(models.OutcomeCancelled, p.supportEmail, item.batch.BatchIndex, item.batch.BatchCount),
	}
}

func (p *submissionPipeline) Cancel() {
	p.mu.Lock()
	cancelled := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, c := range cancelled {
		c.resolve(p.cancelledResult(c))
	}
}

func (p *submissionPipeline) Uploading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

func (p *submissionPipeline) Subscribe(fn func(models.SubmissionEvent)) func() {
	return p.events.Subscribe(fn)
}

func allDelivered(indices map[int]struct{}, count int) bool {
	for i := 0; i < count; i++ {
		if _, ok := indices[i]; !ok {
			return false
		}
	}
	return true
}
