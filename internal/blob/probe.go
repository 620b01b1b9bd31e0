// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package blob

import (
	"bytes"
	"context"
)

// ProbeStore is the minimal write/read surface the capability probe needs.
type ProbeStore interface {
	WriteProbe(ctx context.Context, value []byte) error
	ReadProbe(ctx context.Context) ([]byte, error)
}

// probeValue covers every byte value, including NUL and invalid UTF-8.
var probeValue = func() []byte {
	v := make([]byte, 256)
	for i := range v {
		v[i] = byte(i)
	}
	return v
}()

// Probe writes a small binary value through store and reads it back. It
// returns ModeRaw when the value survives intact and ModeEncoded when the
// write fails or the value comes back altered.
func Probe(ctx context.Context, store ProbeStore) Mode {
	if err := store.WriteProbe(ctx, probeValue); err != nil {
		return ModeEncoded
	}

	got, err := store.ReadProbe(ctx)
	if err != nil || !bytes.Equal(got, probeValue) {
		return ModeEncoded
	}

	return ModeRaw
}
