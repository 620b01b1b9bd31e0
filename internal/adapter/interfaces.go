// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the network layer used by the offline client to
// talk to the form server.
//
// The primary abstraction is [ServerAdapter], which decouples the services
// from the HTTP details. The package ships a resty-based implementation
// ([NewHTTPServerAdapter]).
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] (e.g. [ErrNotFound] for a
// survey that no longer exists on the server). Submission is the exception:
// [ServerAdapter.Submit] reports the raw status code because the submission
// pipeline classifies every code itself.
package adapter

import (
	"context"

	"github.com/MKhiriev/go-form-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// ServerAdapter defines the endpoints consumed by the offline client.
type ServerAdapter interface {
	// GetFormParts fetches the rendered form, the data model and the content
	// hash of the survey identified by ref.
	GetFormParts(ctx context.Context, ref models.SurveyRef) (models.FormParts, error)

	// GetFormPartsHash fetches only the current content hash of the survey.
	// Returns [ErrNotFound] (wrapped) when the survey is gone from the server.
	GetFormPartsHash(ctx context.Context, ref models.SurveyRef) (string, error)

	// GetFile downloads one media file. url may be absolute or relative to
	// the server address. Transient failures are retried with backoff.
	GetFile(ctx context.Context, url string) (models.Blob, error)

	// Submit posts one batch as an OpenRosa multipart submission and returns
	// the response status code. A transport failure or timeout yields status 0
	// together with the underlying error.
	Submit(ctx context.Context, batch models.Batch) (int, error)

	// GetMaximumSubmissionSize returns the server-side upload ceiling for the
	// survey. A missing or non-numeric value yields [ErrInvalidMaxSize].
	GetMaximumSubmissionSize(ctx context.Context, ref models.SurveyRef) (int64, error)

	// CheckConnection probes server reachability. It reports true only when
	// the probe response carries the liveness marker.
	CheckConnection(ctx context.Context) (bool, error)
}
