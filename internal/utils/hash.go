// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
	"sync"
)

// hasherPool holds reusable MD5 hash instances.
var hasherPool = sync.Pool{
	New: func() any {
		return md5.New()
	},
}

// Hash computes the hex-encoded MD5 digest of data using a hasher pulled
// from the package pool.
func Hash(data []byte) string {
	h := hasherPool.Get().(hash.Hash)
	h.Reset()

	h.Write(data)
	sum := h.Sum(nil)

	h.Reset()
	hasherPool.Put(h)

	return hex.EncodeToString(sum)
}

// ContentHash computes the freshness fingerprint of a survey: the digest of
// the concatenated digests of every part (markup, model, then each media
// file in a stable order). Changing any part, or the order of parts, changes
// the result.
//
// Example usage:
//
//	h := utils.ContentHash([]byte(form), []byte(model), logo)
func ContentHash(parts ...[]byte) string {
	joined := make([]byte, 0, len(parts)*md5.Size*2)
	for _, p := range parts {
		joined = append(joined, Hash(p)...)
	}

	return Hash(joined)
}
