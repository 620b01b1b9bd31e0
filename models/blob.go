// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Blob is a binary payload together with its MIME type. It is the only shape
// in which binary content crosses the store boundary: encoding artifacts of
// the storage backend never leak into a Blob.
type Blob struct {
	// MIMEType is the media type of Data (e.g. "image/png").
	MIMEType string `json:"type"`

	// Data is the raw byte content.
	Data []byte `json:"-"`
}

// Size returns the length of the payload in bytes.
func (b Blob) Size() int64 {
	return int64(len(b.Data))
}
