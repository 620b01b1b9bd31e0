// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package blob

import (
	"context"
	"errors"
	"testing"

	"github.com/MKhiriev/go-form-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	payloads := []models.Blob{
		{MIMEType: "text/xml", Data: []byte("<html>something</html")},
		{MIMEType: "image/png", Data: probeValue},
		{MIMEType: "application/pdf", Data: []byte{}},
		{MIMEType: "audio/mpeg", Data: []byte{0x00, 0xff, 0x00, 0xfe}},
	}

	for _, mode := range []Mode{ModeRaw, ModeEncoded} {
		codec := NewCodec(mode)
		for _, p := range payloads {
			t.Run(mode.String()+"/"+p.MIMEType, func(t *testing.T) {
				stored := codec.Encode(p)
				assert.Equal(t, mode, stored.Mode)

				got, err := codec.Decode(stored)
				require.NoError(t, err)
				assert.Equal(t, p.Size(), got.Size())
				assert.Equal(t, p.MIMEType, got.MIMEType)
				assert.True(t, Equal(p, got))
			})
		}
	}
}

func TestCodec_EncodedIsTextSafe(t *testing.T) {
	stored := NewCodec(ModeEncoded).Encode(models.Blob{MIMEType: "image/png", Data: probeValue})

	assert.Contains(t, string(stored.Data), "data:image/png;base64,")
	for _, c := range stored.Data {
		assert.Less(t, c, byte(0x80))
	}
}

func TestCodec_DecodeUsesDiscriminant(t *testing.T) {
	blob := models.Blob{MIMEType: "text/plain", Data: []byte("hello")}
	encoded := NewCodec(ModeEncoded).Encode(blob)

	// a raw session must still read rows written in encoded mode
	got, err := NewCodec(ModeRaw).Decode(encoded)
	require.NoError(t, err)
	assert.True(t, Equal(blob, got))
}

func TestCodec_DefaultMIMEType(t *testing.T) {
	stored := NewCodec(ModeRaw).Encode(models.Blob{Data: []byte("x")})
	assert.Equal(t, "application/octet-stream", stored.MIMEType)
}

func TestCodec_Encode_CopiesRawData(t *testing.T) {
	data := []byte("abc")
	stored := NewCodec(ModeRaw).Encode(models.Blob{MIMEType: "text/plain", Data: data})
	data[0] = 'z'

	assert.Equal(t, []byte("abc"), stored.Data)
}

func TestCodec_Decode_Errors(t *testing.T) {
	codec := NewCodec(ModeRaw)

	_, err := codec.Decode(Stored{Mode: Mode(7)})
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = codec.Decode(Stored{Mode: ModeEncoded, Data: []byte("not a uri")})
	assert.ErrorIs(t, err, ErrMalformedDataURI)

	_, err = codec.Decode(Stored{Mode: ModeEncoded, Data: []byte("data:text/plain;base64,@@@")})
	assert.ErrorIs(t, err, ErrMalformedDataURI)

	_, err = codec.Decode(Stored{Mode: ModeEncoded, Data: []byte("data:text/plain,hello")})
	assert.ErrorIs(t, err, ErrMalformedDataURI)
}

// ── Probe ────────────────────────────────────────────────────────────────────

type fakeProbeStore struct {
	writeErr error
	readErr  error
	mangle   func([]byte) []byte
	value    []byte
}

func (f *fakeProbeStore) WriteProbe(_ context.Context, value []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.value = append([]byte(nil), value...)
	if f.mangle != nil {
		f.value = f.mangle(f.value)
	}
	return nil
}

func (f *fakeProbeStore) ReadProbe(_ context.Context) ([]byte, error) {
	return f.value, f.readErr
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeProbeStore
		want  Mode
	}{
		{name: "binary survives", store: &fakeProbeStore{}, want: ModeRaw},
		{name: "write fails", store: &fakeProbeStore{writeErr: errors.New("not supported")}, want: ModeEncoded},
		{name: "read fails", store: &fakeProbeStore{readErr: errors.New("boom")}, want: ModeEncoded},
		{
			name: "value truncated at NUL",
			store: &fakeProbeStore{mangle: func(b []byte) []byte {
				return b[:0]
			}},
			want: ModeEncoded,
		},
		{
			name: "value corrupted",
			store: &fakeProbeStore{mangle: func(b []byte) []byte {
				b[200] = '?'
				return b
			}},
			want: ModeEncoded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Probe(context.Background(), tt.store))
		})
	}
}
