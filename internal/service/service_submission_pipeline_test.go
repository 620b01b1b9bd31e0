// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-form-keeper/internal/adapter"
	"github.com/MKhiriev/go-form-keeper/internal/mock"
	"github.com/MKhiriev/go-form-keeper/models"
)

// ── DivideIntoBatches ────────────────────────────────────────────────────────

func TestDivideIntoBatches_FirstFit(t *testing.T) {
	sizes := []int64{1000, 2000, 500, 9000}

	got := DivideIntoBatches(sizes, 3000)

	assert.Equal(t, [][]int{{0, 2}, {1}, {3}}, got)
	assertValidPartition(t, sizes, 3000, got)
}

func TestDivideIntoBatches_Invariants(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int64
		limit int64
	}{
		{name: "all fit", sizes: []int64{10, 20, 30}, limit: 100},
		{name: "exact limit is not under", sizes: []int64{50, 50, 50}, limit: 100},
		{name: "several oversized", sizes: []int64{500, 1, 700, 2, 3}, limit: 100},
		{name: "single item", sizes: []int64{1}, limit: 1},
		{name: "mixed", sizes: []int64{40, 70, 10, 30, 90, 20, 5}, limit: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DivideIntoBatches(tt.sizes, tt.limit)
			assertValidPartition(t, tt.sizes, tt.limit, got)

			// deterministic
			assert.Equal(t, got, DivideIntoBatches(tt.sizes, tt.limit))
		})
	}
}

func TestDivideIntoBatches_Empty(t *testing.T) {
	assert.Empty(t, DivideIntoBatches(nil, 100))
}

func assertValidPartition(t *testing.T, sizes []int64, limit int64, batches [][]int) {
	t.Helper()

	seen := make(map[int]int)
	for _, batch := range batches {
		require.NotEmpty(t, batch)

		var total int64
		for _, idx := range batch {
			seen[idx]++
			total += sizes[idx]
		}
		if len(batch) > 1 {
			assert.Less(t, total, limit, "batch %v exceeds the limit", batch)
		}
		for _, idx := range batch {
			if sizes[idx] >= limit {
				assert.Len(t, batch, 1, "oversized item %d must be alone", idx)
			}
		}
	}

	assert.Len(t, seen, len(sizes), "every index is placed")
	for idx, n := range seen {
		assert.Equal(t, 1, n, "index %d placed %d times", idx, n)
	}
}

// ── ClassifyStatus ───────────────────────────────────────────────────────────

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want models.Outcome
	}{
		{0, models.OutcomeUnreachable},
		{201, models.OutcomeAccepted},
		{202, models.OutcomeAccepted},
		{200, models.OutcomeNonStandard},
		{204, models.OutcomeNonStandard},
		{101, models.OutcomeNonStandard},
		{400, models.OutcomeBadRequest},
		{401, models.OutcomeAuthRequired},
		{403, models.OutcomeForbidden},
		{404, models.OutcomeNotFound},
		{413, models.OutcomeTooLarge},
		{409, models.OutcomeClientError},
		{302, models.OutcomeClientError},
		{500, models.OutcomeServerError},
		{503, models.OutcomeServerError},
		{600, models.OutcomeServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyStatus(tt.code), "status %d", tt.code)
	}
}

func TestOutcomeMessage(t *testing.T) {
	single := outcomeMessage(models.OutcomeServerError, testSupportEmail, 0, 1)
	assert.Contains(t, single, testSupportEmail)
	assert.NotContains(t, single, "part")

	multi := outcomeMessage(models.OutcomeTooLarge, testSupportEmail, 1, 3)
	assert.True(t, len(multi) > 0)
	assert.Contains(t, multi, "part 2 of 3: ")
	assert.Contains(t, multi, testSupportEmail)
}

func TestUploadedFeedback(t *testing.T) {
	assert.Empty(t, uploadedFeedback(nil))
	assert.Equal(t, "a was successfully uploaded!", uploadedFeedback([]string{"a"}))
	assert.Equal(t, "a, b were successfully uploaded!", uploadedFeedback([]string{"a", "b"}))
}

// ── PrepareBatches ───────────────────────────────────────────────────────────

func TestPrepareBatches_NoAttachments(t *testing.T) {
	batches, missing, err := prepareBatches(testRecord("uuid:1", "first"), 100)

	require.NoError(t, err)
	assert.Empty(t, missing)
	require.Len(t, batches, 1)
	assert.Equal(t, 1, batches[0].BatchCount)
	assert.Equal(t, 0, batches[0].BatchIndex)
	assert.Empty(t, batches[0].Files)
	assert.True(t, batches[0].IsComplete())
}

func TestPrepareBatches_SplitsAttachments(t *testing.T) {
	record := testRecord("uuid:2", "second")
	record.XML = `<data><a type="file">a.jpg</a><b type="file">b.jpg</b>` +
		`<c type="file">gone.jpg</c><d type="file">d.jpg</d></data>`
	record.Files = []models.RecordFile{
		{Name: "a.jpg", Item: models.Blob{MIMEType: "image/jpeg", Data: make([]byte, 60)}},
		{Name: "b.jpg", Item: models.Blob{MIMEType: "image/jpeg", Data: make([]byte, 60)}},
		{Name: "d.jpg", Item: models.Blob{MIMEType: "image/jpeg", Data: make([]byte, 30)}},
	}

	batches, missing, err := prepareBatches(record, 100)

	require.NoError(t, err)
	assert.Equal(t, []string{"gone.jpg"}, missing)
	require.Len(t, batches, 2)

	assert.Equal(t, []models.BatchFile{
		{FieldName: "a", FileName: "a.jpg", Item: record.Files[0].Item},
		{FieldName: "d", FileName: "d.jpg", Item: record.Files[2].Item},
	}, batches[0].Files)
	assert.Equal(t, []models.BatchFile{
		{FieldName: "b", FileName: "b.jpg", Item: record.Files[1].Item},
	}, batches[1].Files)

	for i, b := range batches {
		assert.Equal(t, i, b.BatchIndex)
		assert.Equal(t, 2, b.BatchCount)
		assert.NotContains(t, b.XML, `type="file"`)
	}
}

func TestPrepareBatches_InvalidXML(t *testing.T) {
	record := testRecord("uuid:3", "third")
	record.XML = "<data>"

	_, _, err := prepareBatches(record, 100)

	assert.ErrorIs(t, err, ErrInvalidBatch)
}

// ── GetMaximumSubmissionSize ─────────────────────────────────────────────────

func TestGetMaximumSubmissionSize(t *testing.T) {
	tests := []struct {
		name   string
		server int64
		err    error
		want   int64
	}{
		{name: "server value", server: 2048, want: 2048},
		{name: "fallback on error", err: adapter.ErrInvalidMaxSize, want: testSubmission.DefaultMaxSize},
		{name: "clamped", server: testSubmission.AbsoluteMaxSize * 2, want: testSubmission.AbsoluteMaxSize},
		{name: "largest size clamped", server: math.MaxInt64, want: testSubmission.AbsoluteMaxSize},
		{name: "zero falls back", server: 0, want: testSubmission.DefaultMaxSize},
		{name: "negative falls back", server: math.MinInt64, want: testSubmission.DefaultMaxSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			serverAdapter := mock.NewMockServerAdapter(ctrl)
			serverAdapter.EXPECT().GetMaximumSubmissionSize(gomock.Any(), testRef).Return(tt.server, tt.err)

			p, _ := newTestPipeline(t, serverAdapter)

			assert.Equal(t, tt.want, p.GetMaximumSubmissionSize(context.Background(), testRef))
		})
	}
}

// ── UploadRecords ────────────────────────────────────────────────────────────

func TestUploadRecords_IncompleteBatchRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	p, _ := newTestPipeline(t, serverAdapter)

	tests := []struct {
		name   string
		mutate func(*models.Batch)
	}{
		{name: "no name", mutate: func(b *models.Batch) { b.Name = "" }},
		{name: "no instance id", mutate: func(b *models.Batch) { b.InstanceID = "" }},
		{name: "no payload", mutate: func(b *models.Batch) { b.XML = "" }},
		{name: "no batch count", mutate: func(b *models.Batch) { b.BatchCount = 0 }},
		{name: "index out of range", mutate: func(b *models.Batch) { b.BatchIndex = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBatch("uuid:1", 0, 1)
			tt.mutate(&b)

			assert.False(t, p.UploadRecords(context.Background(), b, false))
		})
	}
	assert.False(t, p.Uploading())
}

func TestUploadRecords_DeliversAndSummarizes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(201, nil)

	p, monitor := newTestPipeline(t, serverAdapter)
	summaries := drained(p)
	events := &eventLog[models.SubmissionEvent]{}
	p.Subscribe(events.add)

	require.True(t, p.UploadRecords(context.Background(), testBatch("uuid:1", 0, 1), false))

	summary := waitSummary(t, summaries)
	assert.Equal(t, []string{"record uuid:1"}, summary.Uploaded)
	assert.Equal(t, "record uuid:1 was successfully uploaded!", summary.Feedback)
	assert.Empty(t, summary.Failed)
	assert.Empty(t, summary.Alert)

	assert.Equal(t, 1, events.count(isKind(models.EventSubmissionStart)))
	assert.Equal(t, 1, events.count(isKind(models.EventBatchComplete)))
	assert.Equal(t, 1, events.count(isKind(models.EventRecordSubmitted)))
	assert.Equal(t, models.StatusOnline, monitor.Status())
}

func TestUploadRecords_DedupeAndForceUpgrade(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	release := make(chan struct{})
	var calls atomic.Int64

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, b models.Batch) (int, error) {
			if calls.Add(1) == 1 {
				<-release
			}
			return 500, nil
		}).Times(2)

	p, _ := newTestPipeline(t, serverAdapter)
	summaries := drained(p)
	ctx := context.Background()

	a := testBatch("uuid:a", 0, 1)
	b := testBatch("uuid:b", 0, 1)

	require.True(t, p.UploadRecords(ctx, a, false))
	require.Eventually(t, p.Uploading, time.Second, 5*time.Millisecond)

	assert.True(t, p.UploadRecords(ctx, a, false), "in-flight duplicate is accepted without re-enqueueing")
	assert.True(t, p.UploadRecords(ctx, b, false))
	assert.True(t, p.UploadRecords(ctx, b, true), "queued duplicate is upgraded in place")

	p.mu.Lock()
	require.Len(t, p.queue, 1)
	assert.True(t, p.queue[0].forced)
	p.mu.Unlock()

	close(release)
	summary := waitSummary(t, summaries)

	require.Len(t, summary.Failed, 2)
	assert.False(t, summary.Failed[0].Forced)
	assert.True(t, summary.Failed[1].Forced)
	assert.Equal(t, "record uuid:b: "+summary.Failed[1].Message, summary.Alert)
	assert.Empty(t, summary.Uploaded)
}

func TestUploadRecords_OfflineSkipsNetwork(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no Submit expectation: the network must not be touched
	serverAdapter := mock.NewMockServerAdapter(ctrl)
	p, monitor := newTestPipeline(t, serverAdapter)
	monitor.Report(false)

	summaries := drained(p)
	results := &eventLog[models.SubmissionEvent]{}
	p.Subscribe(results.add)

	require.True(t, p.UploadRecords(context.Background(), testBatch("uuid:1", 0, 1), true))

	summary := waitSummary(t, summaries)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, 0, summary.Failed[0].StatusCode)
	assert.Equal(t, models.OutcomeUnreachable, summary.Failed[0].Outcome)
	assert.Empty(t, summary.Alert, "forced failures are not alerted while offline")
	assert.Equal(t, models.StatusOffline, monitor.Status())
}

func TestUploadRecords_TransportFailureFlipsOffline(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(0, errors.New("dial tcp: refused"))

	p, monitor := newTestPipeline(t, serverAdapter)
	statuses := &eventLog[models.OnlineStatus]{}
	monitor.Subscribe(statuses.add)
	summaries := drained(p)

	require.True(t, p.UploadRecords(context.Background(), testBatch("uuid:1", 0, 1), false))
	waitSummary(t, summaries)

	assert.Equal(t, models.StatusOffline, monitor.Status())
	assert.Equal(t, []models.OnlineStatus{models.StatusOffline}, statuses.all())
}

func TestUploadRecords_AuthRequiredCancelsQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	release := make(chan struct{})
	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.Batch) (int, error) {
			<-release
			return 401, nil
		}).Times(1)

	p, _ := newTestPipeline(t, serverAdapter)
	summaries := drained(p)
	events := &eventLog[models.SubmissionEvent]{}
	p.Subscribe(events.add)
	ctx := context.Background()

	require.True(t, p.UploadRecords(ctx, testBatch("uuid:1", 0, 1), true))
	require.Eventually(t, p.Uploading, time.Second, 5*time.Millisecond)
	require.True(t, p.UploadRecords(ctx, testBatch("uuid:2", 0, 1), true))
	require.True(t, p.UploadRecords(ctx, testBatch("uuid:3", 0, 1), true))

	close(release)
	summary := waitSummary(t, summaries)

	assert.Empty(t, summary.Failed, "authentication failures are not recorded as normal failures")
	assert.Empty(t, summary.Alert)
	assert.Equal(t, 1, events.count(isKind(models.EventAuthRequired)))
	assert.Equal(t, 1, events.count(isKind(models.EventSubmissionStart)))
	assert.Zero(t, events.count(isKind(models.EventBatchComplete)))
}

// ── SubmitRecord ─────────────────────────────────────────────────────────────

func twoBatchRecord() models.Record {
	record := testRecord("uuid:multi", "multi")
	record.XML = `<data><a type="file">a.jpg</a><b type="file">b.jpg</b>` +
		`<meta><instanceID>uuid:multi</instanceID></meta></data>`
	record.Files = []models.RecordFile{
		{InstanceID: "uuid:multi", Name: "a.jpg", Item: models.Blob{MIMEType: "image/jpeg", Data: make([]byte, 600)}},
		{InstanceID: "uuid:multi", Name: "b.jpg", Item: models.Blob{MIMEType: "image/jpeg", Data: make([]byte, 600)}},
	}
	return record
}

func TestSubmitRecord_PartialMultiBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().GetMaximumSubmissionSize(gomock.Any(), gomock.Any()).Return(int64(1000), nil).AnyTimes()

	var sent []int
	submit := func(status int) func(context.Context, models.Batch) (int, error) {
		return func(_ context.Context, b models.Batch) (int, error) {
			sent = append(sent, b.BatchIndex)
			return status, nil
		}
	}
	gomock.InOrder(
		serverAdapter.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(submit(201)),
		serverAdapter.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(submit(500)),
		serverAdapter.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(submit(201)),
	)

	p, _ := newTestPipeline(t, serverAdapter)
	summaries := drained(p)
	events := &eventLog[models.SubmissionEvent]{}
	p.Subscribe(events.add)
	ctx := context.Background()

	first, err := p.SubmitRecord(ctx, twoBatchRecord(), false)
	require.NoError(t, err)
	assert.False(t, first.Success)
	require.Len(t, first.Batches, 2)
	assert.True(t, first.Batches[0].Partial)
	assert.Equal(t, models.OutcomeServerError, first.Batches[1].Outcome)
	assert.Contains(t, first.Batches[1].Message, "part 2 of 2: ")
	assert.Zero(t, events.count(isKind(models.EventRecordSubmitted)), "no record success while a batch is missing")

	// the first drain may split into two runs; the failed batch closes the last one
	for {
		summary := waitSummary(t, summaries)
		assert.Empty(t, summary.Uploaded, "a partially delivered record is not reported as uploaded")
		assert.Empty(t, summary.Feedback)
		if len(summary.Failed) > 0 {
			assert.Equal(t, "multi", summary.Failed[0].Name)
			break
		}
	}

	second, err := p.SubmitRecord(ctx, twoBatchRecord(), false)
	require.NoError(t, err)
	assert.True(t, second.Success)
	require.Len(t, second.Batches, 1, "the delivered batch is not sent again")
	assert.False(t, second.Batches[0].Partial)

	summary := waitSummary(t, summaries)
	assert.Equal(t, []string{"multi"}, summary.Uploaded)
	assert.Equal(t, "multi was successfully uploaded!", summary.Feedback)

	assert.Equal(t, []int{0, 1, 1}, sent)
	assert.Equal(t, 1, events.count(isKind(models.EventRecordSubmitted)))
}

func TestSubmitRecord_AuthRequiredReturnsCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var p *submissionPipeline

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().GetMaximumSubmissionSize(gomock.Any(), gomock.Any()).Return(int64(1000), nil)
	serverAdapter.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.Batch) (int, error) {
			// hold the first batch until the second one is queued behind it
			assert.Eventually(t, func() bool {
				p.mu.Lock()
				defer p.mu.Unlock()
				return len(p.queue) == 1
			}, time.Second, 5*time.Millisecond)
			return 401, nil
		}).Times(1)

	p, _ = newTestPipeline(t, serverAdapter)

	result, err := p.SubmitRecord(context.Background(), twoBatchRecord(), true)

	assert.ErrorIs(t, err, ErrUploadCancelled)
	assert.False(t, result.Success)
	require.Len(t, result.Batches, 2)
	assert.Equal(t, models.OutcomeAuthRequired, result.Batches[0].Outcome)
	assert.Equal(t, models.OutcomeCancelled, result.Batches[1].Outcome)
}

func TestSubmitRecord_ReportsMissingFiles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().GetMaximumSubmissionSize(gomock.Any(), gomock.Any()).Return(int64(0), adapter.ErrInvalidMaxSize)
	serverAdapter.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, b models.Batch) (int, error) {
			assert.Empty(t, b.Files)
			return 201, nil
		})

	p, _ := newTestPipeline(t, serverAdapter)
	record := testRecord("uuid:m", "missing")
	record.XML = `<data><photo type="file">lost.jpg</photo></data>`

	result, err := p.SubmitRecord(context.Background(), record, false)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"lost.jpg"}, result.MissingFiles)
}

func TestCancel_ResolvesQueuedBatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	release := make(chan struct{})
	serverAdapter := mock.NewMockServerAdapter(ctrl)
	serverAdapter.EXPECT().Submit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.Batch) (int, error) {
			<-release
			return 201, nil
		}).Times(1)

	p, _ := newTestPipeline(t, serverAdapter)
	summaries := drained(p)
	ctx := context.Background()

	require.True(t, p.UploadRecords(ctx, testBatch("uuid:1", 0, 1), false))
	require.Eventually(t, p.Uploading, time.Second, 5*time.Millisecond)

	wait, ok := p.enqueue(ctx, testBatch("uuid:2", 0, 1), false)
	require.True(t, ok)

	p.Cancel()
	result := <-wait
	assert.Equal(t, models.OutcomeCancelled, result.Outcome)

	close(release)
	summary := waitSummary(t, summaries)
	assert.Equal(t, []string{"record uuid:1"}, summary.Uploaded)
}
