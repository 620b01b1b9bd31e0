// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package blob

import "errors"

var (
	// ErrMalformedDataURI is returned when an encoded payload is not a base64
	// data URI.
	ErrMalformedDataURI = errors.New("malformed data uri")

	// ErrUnknownMode is returned when a stored payload carries an unknown
	// discriminant.
	ErrUnknownMode = errors.New("unknown blob storage mode")
)
