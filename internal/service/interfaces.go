// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package service holds the offline runtime of the form client: the survey
// cache, the record queue, the submission pipeline and the connectivity
// monitor. Services talk to the local store through the repositories of
// [store.ClientStorages] and to the server through [adapter.ServerAdapter];
// they publish typed events to subscribers instead of rendering anything.
package service

import (
	"context"
	"time"

	"github.com/MKhiriev/go-form-keeper/models"
)

// SurveyCache keeps the forms needed for offline use in the local store and
// keeps them fresh in the background.
type SurveyCache interface {
	// Init returns the locally cached survey for ref when present and
	// schedules background freshness checks for it. On a cache miss it
	// fetches the survey and its media from the server and stores both.
	// Returns ErrSurveyNotFound when the server does not know the form.
	Init(ctx context.Context, ref models.SurveyRef) (models.Survey, error)

	// Get returns the cached survey. The bool is false, with a nil error, when
	// nothing is cached under id.
	Get(ctx context.Context, id string) (models.Survey, bool, error)

	// Set fetches the survey from the server and stores it without media.
	Set(ctx context.Context, ref models.SurveyRef) (models.Survey, error)

	// Update replaces the cached survey.
	Update(ctx context.Context, survey models.Survey) error

	// Remove deletes the survey with its media and cancels its freshness
	// timers.
	Remove(ctx context.Context, ref models.SurveyRef) error

	// UpdateMedia downloads and stores the media referenced by the survey
	// markup when the survey has no resource list yet. Every distinct URL is
	// fetched once however many elements reference it.
	UpdateMedia(ctx context.Context, survey models.Survey) (models.Survey, error)

	// LoadMedia reads the stored media of the survey, keyed by URL.
	LoadMedia(ctx context.Context, survey models.Survey) (map[string]models.Blob, error)

	// OfflineForm returns the survey markup with every media reference
	// resolved to an inline data URI.
	OfflineForm(ctx context.Context, survey models.Survey) (string, error)

	// CheckForUpdate compares the server hash of the survey with the cached
	// one and refreshes or removes the local copy accordingly.
	CheckForUpdate(ctx context.Context, ref models.SurveyRef) (Freshness, error)

	// Flush clears every cached survey and resource.
	Flush(ctx context.Context) error

	// Subscribe registers fn for cache events and returns a function that
	// unregisters it.
	Subscribe(fn func(models.CacheEvent)) (unsubscribe func())

	// Stop cancels every freshness timer and waits for running checks.
	Stop()
}

// RecordQueue stores records and walks the finalized ones through the
// submission pipeline.
type RecordQueue interface {
	Set(ctx context.Context, record models.Record) error
	Update(ctx context.Context, record models.Record) error
	Remove(ctx context.Context, instanceID string) error

	// Get returns the record with its attachments. The bool is false, with a
	// nil error, when the record does not exist.
	Get(ctx context.Context, instanceID string) (models.Record, bool, error)

	// List returns the records of a survey without attachments.
	List(ctx context.Context, surveyID string) ([]models.Record, error)

	// GetNextDraftName returns chosen when it is not empty and otherwise a
	// name built from the survey name and the next record counter value.
	GetNextDraftName(ctx context.Context, surveyID, chosen string) (string, error)

	// UploadQueue submits every finalized record of the active survey, one
	// record fully resolved before the next begins. Records delivered in full
	// are removed. Returns ErrUploadInProgress when a walk is already running.
	UploadQueue(ctx context.Context, force bool) ([]models.RecordResult, error)

	// Flush clears every record and attachment.
	Flush(ctx context.Context) error

	// Subscribe registers fn for queue length changes.
	Subscribe(fn func(models.QueueChanged)) (unsubscribe func())
}

// SubmissionPipeline delivers batches to the server one at a time.
type SubmissionPipeline interface {
	// PrepareBatches splits a record into batches whose attachments fit
	// maxSize. Attachments referenced by the instance but missing from the
	// record are reported, not fatal.
	PrepareBatches(record models.Record, maxSize int64) (batches []models.Batch, missing []string, err error)

	// UploadRecords enqueues one batch for delivery. It returns false when
	// the batch is incomplete. A batch that is already queued, in flight or
	// delivered is not enqueued again; force then upgrades the queued copy.
	UploadRecords(ctx context.Context, batch models.Batch, force bool) bool

	// SubmitRecord prepares the batches of record, enqueues them and blocks
	// until each one resolved.
	SubmitRecord(ctx context.Context, record models.Record, force bool) (models.RecordResult, error)

	// GetMaximumSubmissionSize returns the server limit for ref, falling
	// back to the configured default and clamped to the absolute ceiling.
	GetMaximumSubmissionSize(ctx context.Context, ref models.SurveyRef) int64

	// Cancel drops every queued batch. The batch in flight completes.
	Cancel()

	// Uploading reports whether a batch is in flight.
	Uploading() bool

	// Subscribe registers fn for submission lifecycle events.
	Subscribe(fn func(models.SubmissionEvent)) (unsubscribe func())
}

// ConnectivityMonitor tracks whether the server is reachable.
type ConnectivityMonitor interface {
	// Status returns the last observation. It is StatusUnknown until the
	// first probe or report.
	Status() models.OnlineStatus

	// Check probes the server once, unless an upload is in flight, and
	// returns the resulting status.
	Check(ctx context.Context) models.OnlineStatus

	// Report records an observation made elsewhere, e.g. by a submission.
	Report(online bool)

	// TrackUploads makes Check skip probing while t reports an upload in
	// flight.
	TrackUploads(t UploadTracker)

	// Subscribe registers fn for status changes. fn only receives
	// StatusOnline or StatusOffline, and only when the status changed.
	Subscribe(fn func(models.OnlineStatus)) (unsubscribe func())
}

// UploadTracker exposes whether an upload is in flight.
type UploadTracker interface {
	Uploading() bool
}

// Recorder receives instrumentation from the services.
type Recorder interface {
	ObserveSubmission(outcome models.Outcome, elapsed time.Duration)
	ObserveFreshnessCheck(result Freshness)
	SetOnlineStatus(status models.OnlineStatus)
	SetQueueLength(changed models.QueueChanged)
}

// tableFlusher clears single store tables.
type tableFlusher interface {
	FlushTable(ctx context.Context, table string) error
}
