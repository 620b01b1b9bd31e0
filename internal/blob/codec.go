// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package blob converts binary payloads to and from the representation that
// is written to the local store.
//
// A store session runs in exactly one [Mode], chosen once by [Probe] when the
// store opens: [ModeRaw] when the backend round-trips binary values intact,
// [ModeEncoded] (base64 data URIs) otherwise. Every [Stored] value carries its
// mode as an explicit discriminant so that decoding never guesses.
package blob

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-form-keeper/models"
)

// Mode is the storage representation of binary payloads.
type Mode int8

const (
	// ModeRaw stores bytes as-is.
	ModeRaw Mode = iota
	// ModeEncoded stores a text-safe data URI.
	ModeEncoded
)

func (m Mode) String() string {
	if m == ModeEncoded {
		return "encoded"
	}
	return "raw"
}

const defaultMIMEType = "application/octet-stream"

// Stored is a payload in its storage representation.
type Stored struct {
	// Mode is the discriminant of Data.
	Mode Mode

	// MIMEType is kept alongside the payload for both modes.
	MIMEType string

	// Data holds the raw bytes for ModeRaw and the data URI for ModeEncoded.
	Data []byte
}

// Codec encodes payloads for one store session. Its mode is fixed at
// construction.
type Codec struct {
	mode Mode
}

// NewCodec returns a Codec writing in mode.
func NewCodec(mode Mode) *Codec {
	return &Codec{mode: mode}
}

// Mode returns the session mode.
func (c *Codec) Mode() Mode {
	return c.mode
}

// Encode converts b to its storage representation in the session mode.
func (c *Codec) Encode(b models.Blob) Stored {
	mimeType := b.MIMEType
	if mimeType == "" {
		mimeType = defaultMIMEType
	}

	if c.mode == ModeEncoded {
		return Stored{Mode: ModeEncoded, MIMEType: mimeType, Data: []byte(ToDataURI(models.Blob{MIMEType: mimeType, Data: b.Data}))}
	}

	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return Stored{Mode: ModeRaw, MIMEType: mimeType, Data: data}
}

// Decode converts s back to a Blob. The discriminant of s decides the decoding
// path, so rows written in an earlier session remain readable.
func (c *Codec) Decode(s Stored) (models.Blob, error) {
	switch s.Mode {
	case ModeRaw:
		return models.Blob{MIMEType: s.MIMEType, Data: s.Data}, nil
	case ModeEncoded:
		b, err := FromDataURI(string(s.Data))
		if err != nil {
			return models.Blob{}, err
		}
		if s.MIMEType != "" {
			b.MIMEType = s.MIMEType
		}
		return b, nil
	default:
		return models.Blob{}, fmt.Errorf("%w: %d", ErrUnknownMode, s.Mode)
	}
}

// ToDataURI renders b as a base64 data URI.
func ToDataURI(b models.Blob) string {
	mimeType := b.MIMEType
	if mimeType == "" {
		mimeType = defaultMIMEType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

// FromDataURI parses a base64 data URI produced by ToDataURI.
func FromDataURI(uri string) (models.Blob, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return models.Blob{}, ErrMalformedDataURI
	}

	header = strings.TrimPrefix(header, "data:")
	mimeType, params, _ := strings.Cut(header, ";")
	if !strings.Contains(params, "base64") {
		return models.Blob{}, ErrMalformedDataURI
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return models.Blob{}, fmt.Errorf("%w: %w", ErrMalformedDataURI, err)
	}
	if mimeType == "" {
		mimeType = defaultMIMEType
	}

	return models.Blob{MIMEType: mimeType, Data: data}, nil
}

// Equal reports whether two blobs carry the same type and bytes.
func Equal(a, b models.Blob) bool {
	return a.MIMEType == b.MIMEType && bytes.Equal(a.Data, b.Data)
}
