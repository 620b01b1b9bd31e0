// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// WriteJSON writes data as a JSON response with statusCode. HTML in string
// values is written verbatim, so form markup is not escaped to \u003c
// sequences.
//
// When encoding fails nothing has been written yet; the response becomes a
// 500 and the error is returned.
//
//	WriteJSON(w, map[string]string{"hash": "h1"}, http.StatusOK)
func WriteJSON(w http.ResponseWriter, data any, statusCode int) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		http.Error(w, "error writing data to JSON", http.StatusInternalServerError)
		return 0, fmt.Errorf("error writing data to JSON: %w", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	return w.Write(buf.Bytes())
}

// WriteBlob writes a binary payload with its media type. An empty mimeType
// falls back to application/octet-stream.
func WriteBlob(w http.ResponseWriter, mimeType string, data []byte) (int, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)

	return w.Write(data)
}
