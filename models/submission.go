// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Outcome classifies the response to one batch delivery.
type Outcome int

const (
	// OutcomeUnreachable is a zero status: timeout, transport error or the
	// monitor reporting offline.
	OutcomeUnreachable Outcome = iota
	// OutcomeAccepted is 201 or 202.
	OutcomeAccepted
	// OutcomeNonStandard is any other 2xx (and the 1xx bucket).
	OutcomeNonStandard
	// OutcomeBadRequest is 400.
	OutcomeBadRequest
	// OutcomeAuthRequired is 401.
	OutcomeAuthRequired
	// OutcomeForbidden is 403.
	OutcomeForbidden
	// OutcomeNotFound is 404.
	OutcomeNotFound
	// OutcomeTooLarge is 413.
	OutcomeTooLarge
	// OutcomeClientError is any other 4xx (and the 3xx bucket).
	OutcomeClientError
	// OutcomeServerError is 5xx and above.
	OutcomeServerError
	// OutcomeCancelled marks queued batches dropped after an authentication
	// failure.
	OutcomeCancelled
)

var outcomeNames = map[Outcome]string{
	OutcomeUnreachable:  "unreachable",
	OutcomeAccepted:     "accepted",
	OutcomeNonStandard:  "non_standard",
	OutcomeBadRequest:   "bad_request",
	OutcomeAuthRequired: "auth_required",
	OutcomeForbidden:    "forbidden",
	OutcomeNotFound:     "not_found",
	OutcomeTooLarge:     "too_large",
	OutcomeClientError:  "client_error",
	OutcomeServerError:  "server_error",
	OutcomeCancelled:    "cancelled",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Success reports whether the outcome counts as a delivered batch.
func (o Outcome) Success() bool {
	return o == OutcomeAccepted
}

// BatchResult is the resolution of one batch delivery attempt.
type BatchResult struct {
	Name       string
	InstanceID string
	BatchIndex int
	BatchCount int
	StatusCode int
	Outcome    Outcome
	Forced     bool

	// Message is the human-actionable text shown to the user.
	Message string

	// Partial is set on a successful batch while other batches of the same
	// record are still undelivered.
	Partial bool
}

// Key returns the pipeline identity of the resolved batch.
func (r BatchResult) Key() BatchKey {
	return BatchKey{InstanceID: r.InstanceID, BatchIndex: r.BatchIndex}
}

// RecordResult is the resolution of all batches of one record.
type RecordResult struct {
	InstanceID string
	Name       string

	// Success is true only when every batch of the record was delivered.
	Success bool

	// Batches holds the per-batch results of this attempt.
	Batches []BatchResult

	// MissingFiles lists attachments referenced by the instance but absent
	// from the store; the submission proceeds without them.
	MissingFiles []string
}

// UploadSummary is published once the pipeline queue drains.
type UploadSummary struct {
	// Uploaded holds the distinct names of records with a delivered batch.
	Uploaded []string

	// Failed holds every failed batch result of the drained run.
	Failed []BatchResult

	// Feedback is the success line for the user, empty when nothing was
	// uploaded.
	Feedback string

	// Alert collects the messages of failed forced uploads. It stays empty
	// while offline.
	Alert string
}
