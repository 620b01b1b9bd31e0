// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/internal/store"
	"github.com/MKhiriev/go-form-keeper/models"
)

type recordQueue struct {
	records  store.RecordRepository
	flusher  tableFlusher
	pipeline SubmissionPipeline
	recorder Recorder

	// surveyID and surveyName describe the active survey.
	surveyID   string
	surveyName string

	uploading atomic.Bool
	events    broadcaster[models.QueueChanged]
}

// NewRecordQueue returns the record queue of the active survey app.
func NewRecordQueue(
	storages *store.ClientStorages,
	pipeline SubmissionPipeline,
	recorder Recorder,
	app ActiveSurvey,
) RecordQueue {
	if recorder == nil {
		recorder = NopRecorder()
	}
	return &recordQueue{
		records:    storages.Records,
		flusher:    storages,
		pipeline:   pipeline,
		recorder:   recorder,
		surveyID:   app.ID,
		surveyName: app.Name,
	}
}

// ActiveSurvey names the survey the queue uploads for.
type ActiveSurvey struct {
	ID   string
	Name string
}

func (q *recordQueue) Set(ctx context.Context, record models.Record) error {
	if err := q.records.Set(ctx, record); err != nil {
		return fmt.Errorf("set record: %w", err)
	}
	q.publish(ctx, record.SurveyID)
	return nil
}

func (q *recordQueue) Update(ctx context.Context, record models.Record) error {
	if err := q.records.Update(ctx, record); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	q.publish(ctx, record.SurveyID)
	return nil
}

func (q *recordQueue) Remove(ctx context.Context, instanceID string) error {
	if err := q.records.Remove(ctx, instanceID); err != nil {
		return fmt.Errorf("remove record: %w", err)
	}
	q.publish(ctx, q.surveyID)
	return nil
}

func (q *recordQueue) Get(ctx context.Context, instanceID string) (models.Record, bool, error) {
	record, err := q.records.Get(ctx, instanceID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Record{}, false, nil
	}
	if err != nil {
		return models.Record{}, false, fmt.Errorf("get record: %w", err)
	}
	return record, true, nil
}

func (q *recordQueue) List(ctx context.Context, surveyID string) ([]models.Record, error) {
	records, err := q.records.GetAll(ctx, surveyID, false)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func (q *recordQueue) GetNextDraftName(ctx context.Context, surveyID, chosen string) (string, error) {
	if chosen != "" {
		return chosen, nil
	}

	stats, err := q.records.Stats(ctx, surveyID)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordQueue.GetNextDraftName").
			Str("survey_id", surveyID).
			Msg("failed to read survey stats")
		return "", fmt.Errorf("get survey stats: %w", err)
	}

	name := q.surveyName
	if name == "" {
		name = surveyID
	}
	return name + " - " + strconv.Itoa(stats.RecordCount+1), nil
}

func (q *recordQueue) UploadQueue(ctx context.Context, force bool) ([]models.RecordResult, error) {
	if !q.uploading.CompareAndSwap(false, true) {
		return nil, ErrUploadInProgress
	}
	defer q.uploading.Store(false)

	log := logger.FromContext(ctx)

	finals, err := q.records.GetAll(ctx, q.surveyID, true)
	if err != nil {
		log.Err(err).
			Str("func", "recordQueue.UploadQueue").
			Str("survey_id", q.surveyID).
			Msg("failed to list final records")
		return nil, fmt.Errorf("list final records: %w", err)
	}
	if len(finals) == 0 {
		return nil, nil
	}

	log.Info().Int("records", len(finals)).Bool("force", force).Msg("uploading record queue")

	results := make([]models.RecordResult, 0, len(finals))
	for _, final := range finals {
		record, err := q.records.Get(ctx, final.InstanceID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return results, fmt.Errorf("get record: %w", err)
		}

		result, err := q.pipeline.SubmitRecord(ctx, record, force)
		if err != nil {
			if errors.Is(err, ErrUploadCancelled) {
				results = append(results, result)
				return results, err
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return results, err
			}
			log.Err(err).
				Str("func", "recordQueue.UploadQueue").
				Str("instance_id", record.InstanceID).
				Msg("record could not be submitted")
			results = append(results, result)
			continue
		}
		results = append(results, result)

		if result.Success {
			if err = q.records.Remove(ctx, record.InstanceID); err != nil {
				log.Err(err).
					Str("func", "recordQueue.UploadQueue").
					Str("instance_id", record.InstanceID).
					Msg("failed to remove submitted record")
				continue
			}
			q.publish(ctx, q.surveyID)
		}
	}

	return results, nil
}

func (q *recordQueue) Flush(ctx context.Context) error {
	for _, table := range []string{store.TableFiles, store.TableRecords} {
		if err := q.flusher.FlushTable(ctx, table); err != nil {
			return fmt.Errorf("flush %s: %w", table, err)
		}
	}
	q.publish(ctx, q.surveyID)
	return nil
}

func (q *recordQueue) Subscribe(fn func(models.QueueChanged)) func() {
	return q.events.Subscribe(fn)
}

// publish recomputes the queue projection of surveyID and notifies
// subscribers. Failures are logged only; the write that triggered it
// already succeeded.
func (q *recordQueue) publish(ctx context.Context, surveyID string) {
	records, err := q.records.GetAll(ctx, surveyID, false)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordQueue.publish").
			Str("survey_id", surveyID).
			Msg("failed to compute queue length")
		return
	}

	changed := models.QueueChanged{SurveyID: surveyID, Total: len(records)}
	for _, r := range records {
		if r.Draft {
			changed.Drafts++
		} else {
			changed.Final++
		}
	}

	q.recorder.SetQueueLength(changed)
	q.events.publish(changed)
}
