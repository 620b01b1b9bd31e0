// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/models"
)

// recordRepository is the SQLite-backed implementation of [RecordRepository].
//
// Set inserts the record, its files and bumps the per-survey record counter
// in one transaction. Update replaces files only when Record.Files is non-nil.
type recordRepository struct {
	*DB
	logger *logger.Logger
}

// NewRecordRepository constructs a [RecordRepository] backed by db.
func NewRecordRepository(db *DB, logger *logger.Logger) RecordRepository {
	return &recordRepository{
		DB:     db,
		logger: logger,
	}
}

// Get returns the record with its attachments or [ErrNotFound].
func (r *recordRepository) Get(ctx context.Context, instanceID string) (models.Record, error) {
	log := logger.FromContext(ctx)

	record, err := scanRecord(r.DB.QueryRowContext(ctx, getRecord, instanceID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, fmt.Errorf("record %q: %w", instanceID, ErrNotFound)
	}
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Get").
			Str("instance_id", instanceID).
			Msg("failed to scan record row")
		return models.Record{}, err
	}

	files, err := listFiles(ctx, r.DB, r.codec, instanceID)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Get").
			Str("instance_id", instanceID).
			Msg("failed to read record files")
		return models.Record{}, err
	}
	record.Files = files

	return record, nil
}

// GetAll returns the records of a survey, oldest first, without attachments.
func (r *recordRepository) GetAll(ctx context.Context, surveyID string, finalOnly bool) ([]models.Record, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListRecordsQuery(surveyID, finalOnly)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.GetAll").
			Str("survey_id", surveyID).
			Msg("failed to query records")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		record, scanErr := scanRecord(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "recordRepository.GetAll").
				Str("survey_id", surveyID).
				Msg("failed to scan record row")
			return nil, scanErr
		}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return records, nil
}

// Set inserts a new record. It fails with [ErrIncompleteRecord] before any
// I/O when instance id, name or xml is missing, and with [ErrDuplicateKey]
// when the instance id or the (survey, name) pair is taken.
func (r *recordRepository) Set(ctx context.Context, record models.Record) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	record.UpdatedAt = stamp(record.UpdatedAt)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertRecord, recordArgs(record)...); err != nil {
			return mapWriteError(err)
		}

		for _, file := range record.Files {
			file.InstanceID = record.InstanceID
			if err := putFile(ctx, tx, r.codec, file); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, incrementRecordCount, models.SurveyStatsProperty(record.SurveyID)); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}

		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Set").
			Str("instance_id", record.InstanceID).
			Str("survey_id", record.SurveyID).
			Msg("failed to insert record")
		return fmt.Errorf("failed to insert record (instance_id=%s): %w", record.InstanceID, err)
	}

	return nil
}

// Update inserts or replaces a record. A non-nil Files slice replaces the
// stored attachments; files absent from it are deleted.
func (r *recordRepository) Update(ctx context.Context, record models.Record) error {
	if err := validateRecord(record); err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	record.UpdatedAt = stamp(record.UpdatedAt)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertRecord, recordArgs(record)...); err != nil {
			return mapWriteError(err)
		}

		if record.Files == nil {
			return nil
		}

		keep := make([]string, 0, len(record.Files))
		for _, file := range record.Files {
			keep = append(keep, file.Name)
		}
		query, args, err := buildDeleteStaleFilesQuery(record.InstanceID, keep)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}

		for _, file := range record.Files {
			file.InstanceID = record.InstanceID
			if err = putFile(ctx, tx, r.codec, file); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Update").
			Str("instance_id", record.InstanceID).
			Msg("failed to update record")
		return fmt.Errorf("failed to update record (instance_id=%s): %w", record.InstanceID, err)
	}

	return nil
}

// Remove deletes the attachments of a record and then the record. Missing
// rows are not an error.
func (r *recordRepository) Remove(ctx context.Context, instanceID string) error {
	log := logger.FromContext(ctx)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteRecordFiles, instanceID); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		if _, err := tx.ExecContext(ctx, deleteRecord, instanceID); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Remove").
			Str("instance_id", instanceID).
			Msg("failed to remove record")
		return fmt.Errorf("failed to remove record (instance_id=%s): %w", instanceID, err)
	}

	return nil
}

// Stats returns the counters of a survey. A survey without records has zero
// stats.
func (r *recordRepository) Stats(ctx context.Context, surveyID string) (models.SurveyStats, error) {
	log := logger.FromContext(ctx)

	var (
		name  string
		value sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, getProperty, models.SurveyStatsProperty(surveyID)).Scan(&name, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SurveyStats{}, nil
	}
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.Stats").
			Str("survey_id", surveyID).
			Msg("failed to read survey stats")
		return models.SurveyStats{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	var stats models.SurveyStats
	if value.Valid {
		if err = json.Unmarshal([]byte(value.String), &stats); err != nil {
			return models.SurveyStats{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
	}

	return stats, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func validateRecord(record models.Record) error {
	if !record.IsComplete() {
		return fmt.Errorf("record %q: %w", record.InstanceID, ErrIncompleteRecord)
	}
	for _, file := range record.Files {
		if err := validateFile(file); err != nil {
			return err
		}
	}
	return nil
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func recordArgs(record models.Record) []any {
	return []any{
		record.InstanceID,
		record.SurveyID,
		record.Name,
		record.XML,
		record.Draft,
		record.UpdatedAt.UnixMilli(),
	}
}

func scanRecord(row scanner) (models.Record, error) {
	var (
		record    models.Record
		updatedAt int64
	)

	if err := row.Scan(
		&record.InstanceID,
		&record.SurveyID,
		&record.Name,
		&record.XML,
		&record.Draft,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, err
		}
		return models.Record{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	record.UpdatedAt = time.UnixMilli(updatedAt)

	return record, nil
}
