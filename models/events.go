// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// OnlineStatus is the tri-state connectivity observation.
type OnlineStatus int8

const (
	StatusUnknown OnlineStatus = iota
	StatusOnline
	StatusOffline
)

func (s OnlineStatus) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// SubmissionEventKind enumerates submission lifecycle events.
type SubmissionEventKind int

const (
	// EventSubmissionStart fires when a batch is handed to the network.
	EventSubmissionStart SubmissionEventKind = iota
	// EventBatchComplete fires for every resolved batch.
	EventBatchComplete
	// EventRecordSubmitted fires once per record when all of its batches
	// were delivered.
	EventRecordSubmitted
	// EventQueueDrained fires when the last queued batch resolved.
	EventQueueDrained
	// EventAuthRequired fires on a 401 after the queue was cancelled.
	EventAuthRequired
)

// SubmissionEvent is published by the submission pipeline.
type SubmissionEvent struct {
	Kind       SubmissionEventKind
	InstanceID string
	Name       string

	// Result is set for EventBatchComplete and EventAuthRequired.
	Result *BatchResult

	// Summary is set for EventQueueDrained.
	Summary *UploadSummary
}

// CacheEventKind enumerates survey cache notifications.
type CacheEventKind int

const (
	// CacheSurveyUpdated fires after a stale survey was replaced locally.
	CacheSurveyUpdated CacheEventKind = iota
	// CacheSurveyRemoved fires after a survey gone from the server was
	// deleted locally.
	CacheSurveyRemoved
)

// CacheEvent is published by the survey cache.
type CacheEvent struct {
	Kind     CacheEventKind
	SurveyID string
	Hash     string
}
