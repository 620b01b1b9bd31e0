// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the offline client application runtime.
//
// It opens the configured survey through the survey cache, queues instance
// files as final records, and runs the background jobs: automatic queue
// uploads, connectivity polling and, inside the cache, survey freshness
// checks. Service events are rendered to the terminal by a notifier, and
// Prometheus metrics are optionally served on a separate listener.
package client
