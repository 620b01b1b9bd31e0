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

// surveyRepository is the SQLite-backed implementation of [SurveyRepository].
// Media passed in Survey.Files is written in the same transaction as the
// survey row.
type surveyRepository struct {
	*DB
	logger *logger.Logger
}

// NewSurveyRepository constructs a [SurveyRepository] backed by db.
func NewSurveyRepository(db *DB, logger *logger.Logger) SurveyRepository {
	return &surveyRepository{
		DB:     db,
		logger: logger,
	}
}

// Get returns the survey with the given id or [ErrNotFound].
func (r *surveyRepository) Get(ctx context.Context, id string) (models.Survey, error) {
	log := logger.FromContext(ctx)

	var (
		survey    models.Survey
		resources sql.NullString
		updatedAt int64
	)
	err := r.DB.QueryRowContext(ctx, getSurvey, id).Scan(
		&survey.ID,
		&survey.Form,
		&survey.Model,
		&survey.Hash,
		&resources,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Survey{}, fmt.Errorf("survey %q: %w", id, ErrNotFound)
	}
	if err != nil {
		log.Err(err).
			Str("func", "surveyRepository.Get").
			Str("survey_id", id).
			Msg("failed to scan survey row")
		return models.Survey{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if resources.Valid {
		if err = json.Unmarshal([]byte(resources.String), &survey.Resources); err != nil {
			log.Err(err).
				Str("func", "surveyRepository.Get").
				Str("survey_id", id).
				Msg("failed to decode survey resource list")
			return models.Survey{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
		}
	}
	survey.UpdatedAt = time.UnixMilli(updatedAt)

	return survey, nil
}

// Set inserts a new survey and fails with [ErrDuplicateKey] when the id is
// taken.
func (r *surveyRepository) Set(ctx context.Context, survey models.Survey) error {
	return r.write(ctx, "surveyRepository.Set", insertSurvey, survey)
}

// Update inserts or replaces a survey.
func (r *surveyRepository) Update(ctx context.Context, survey models.Survey) error {
	return r.write(ctx, "surveyRepository.Update", upsertSurvey, survey)
}

func (r *surveyRepository) write(ctx context.Context, funcName, query string, survey models.Survey) error {
	if !survey.IsComplete() {
		return fmt.Errorf("survey %q: %w", survey.ID, ErrIncompleteRecord)
	}
	for _, file := range survey.Files {
		if err := validateResource(file); err != nil {
			return err
		}
	}

	log := logger.FromContext(ctx)

	var resources any
	if survey.Resources != nil {
		encoded, err := json.Marshal(survey.Resources)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDataError, err)
		}
		resources = string(encoded)
	}

	updatedAt := survey.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query,
			survey.ID,
			survey.Form,
			survey.Model,
			survey.Hash,
			resources,
			updatedAt.UnixMilli(),
		); err != nil {
			return mapWriteError(err)
		}

		for _, file := range survey.Files {
			if err := putResource(ctx, tx, r.codec, survey.ID, file); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", funcName).
			Str("survey_id", survey.ID).
			Msg("failed to write survey")
		return fmt.Errorf("failed to write survey (id=%s): %w", survey.ID, err)
	}

	return nil
}

// Remove deletes every resource of the survey and then the survey itself.
// Missing rows are not an error.
func (r *surveyRepository) Remove(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteSurveyResources, id); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		if _, err := tx.ExecContext(ctx, deleteSurvey, id); err != nil {
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
		return nil
	})
	if err != nil {
		log.Err(err).
			Str("func", "surveyRepository.Remove").
			Str("survey_id", id).
			Msg("failed to remove survey")
		return fmt.Errorf("failed to remove survey (id=%s): %w", id, err)
	}

	return nil
}
