// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package devserver implements a development server-of-record for the offline
// client.
//
// It serves forms from a directory laid out as <id>/form.html, <id>/model.xml
// and media files next to them, and answers the HTTP contract the client
// consumes: form transformation, content hashing, multipart submission, the
// maximum submission size, the liveness probe and media downloads. Request
// tracing, access logging, response compression and Prometheus request
// metrics are applied as middleware.
package devserver
