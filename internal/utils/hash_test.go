// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_MatchesMD5(t *testing.T) {
	data := []byte("<form/>")
	sum := md5.Sum(data)

	assert.Equal(t, hex.EncodeToString(sum[:]), Hash(data))
}

func TestHash_Deterministic(t *testing.T) {
	assert.Equal(t, Hash([]byte("a")), Hash([]byte("a")))
	assert.NotEqual(t, Hash([]byte("a")), Hash([]byte("b")))
}

func TestContentHash(t *testing.T) {
	form := []byte("<form/>")
	model := []byte("<model/>")
	media := []byte{0x00, 0xff, 0x10}

	base := ContentHash(form, model, media)

	tests := []struct {
		name  string
		parts [][]byte
		same  bool
	}{
		{name: "same parts", parts: [][]byte{form, model, media}, same: true},
		{name: "media changed", parts: [][]byte{form, model, {0x00, 0xff, 0x11}}},
		{name: "media removed", parts: [][]byte{form, model}},
		{name: "order changed", parts: [][]byte{model, form, media}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContentHash(tt.parts...)
			if tt.same {
				assert.Equal(t, base, got)
			} else {
				assert.NotEqual(t, base, got)
			}
		})
	}
}

func TestContentHash_Length(t *testing.T) {
	assert.Len(t, ContentHash([]byte("x")), 32)
}
