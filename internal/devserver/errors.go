// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package devserver

import "errors"

var (
	// ErrInvalidFormID is returned for ids that are empty or would leave the
	// forms directory.
	ErrInvalidFormID = errors.New("invalid form id")

	// ErrFormNotFound is returned when the forms directory has no complete
	// form for the id.
	ErrFormNotFound = errors.New("form not found")

	// ErrMediaNotFound is returned for media files missing from a form
	// directory.
	ErrMediaNotFound = errors.New("media not found")

	// ErrMissingInstance is returned for submissions without a readable
	// instance part.
	ErrMissingInstance = errors.New("submission has no instance")

	// ErrMissingInstanceID is returned for instances without meta/instanceID.
	ErrMissingInstanceID = errors.New("instance has no instanceID")
)
