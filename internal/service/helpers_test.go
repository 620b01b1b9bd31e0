// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-form-keeper/internal/config"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/internal/mock"
	"github.com/MKhiriev/go-form-keeper/internal/store"
	"github.com/MKhiriev/go-form-keeper/models"
)

const (
	testSurveyID     = "abc123"
	testSupportEmail = "support@example.org"
)

var testRef = models.SurveyRef{ID: testSurveyID, XFormID: "household"}

var testSubmission = config.ClientSubmission{
	DefaultMaxSize:  5 * 1024 * 1024,
	AbsoluteMaxSize: 100 * 1024 * 1024,
}

// fakeFlusher records flushed tables.
type fakeFlusher struct {
	mu     sync.Mutex
	tables []string
	err    error
}

func (f *fakeFlusher) FlushTable(_ context.Context, table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables = append(f.tables, table)
	return f.err
}

// eventLog collects published events of one type.
type eventLog[T any] struct {
	mu     sync.Mutex
	events []T
}

func (l *eventLog[T]) add(ev T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog[T]) all() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.events...)
}

func (l *eventLog[T]) count(match func(T) bool) int {
	n := 0
	for _, ev := range l.all() {
		if match(ev) {
			n++
		}
	}
	return n
}

func isKind(kind models.SubmissionEventKind) func(models.SubmissionEvent) bool {
	return func(ev models.SubmissionEvent) bool { return ev.Kind == kind }
}

func newTestPipeline(t *testing.T, serverAdapter *mock.MockServerAdapter) (*submissionPipeline, ConnectivityMonitor) {
	t.Helper()

	monitor := NewConnectivityMonitor(serverAdapter, nil, logger.Nop())
	pipeline := NewSubmissionPipeline(serverAdapter, monitor, nil, testSubmission, testSupportEmail)
	monitor.TrackUploads(pipeline)

	p, ok := pipeline.(*submissionPipeline)
	require.True(t, ok)
	return p, monitor
}

// drained subscribes to the pipeline and returns a channel receiving every
// queue summary.
func drained(p SubmissionPipeline) <-chan models.UploadSummary {
	ch := make(chan models.UploadSummary, 16)
	p.Subscribe(func(ev models.SubmissionEvent) {
		if ev.Kind == models.EventQueueDrained {
			ch <- *ev.Summary
		}
	})
	return ch
}

func waitSummary(t *testing.T, ch <-chan models.UploadSummary) models.UploadSummary {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("upload queue did not drain")
		return models.UploadSummary{}
	}
}

func testBatch(instanceID string, index, count int) models.Batch {
	return models.Batch{
		Name:       "record " + instanceID,
		SurveyID:   testSurveyID,
		InstanceID: instanceID,
		XML:        testInstance(instanceID),
		BatchCount: count,
		BatchIndex: index,
	}
}

func testInstance(instanceID string) string {
	return `<data id="household"><name>x</name><meta><instanceID>` + instanceID + `</instanceID></meta></data>`
}

func testRecord(instanceID, name string) models.Record {
	return models.Record{
		InstanceID: instanceID,
		SurveyID:   testSurveyID,
		Name:       name,
		XML:        testInstance(instanceID),
	}
}

func testStorages(
	surveys store.SurveyRepository,
	resources store.ResourceRepository,
	records store.RecordRepository,
) *store.ClientStorages {
	return &store.ClientStorages{
		Surveys:   surveys,
		Resources: resources,
		Records:   records,
	}
}
