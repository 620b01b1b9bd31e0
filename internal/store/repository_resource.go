// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-form-keeper/internal/blob"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/models"
)

type resourceRepository struct {
	*DB
	logger *logger.Logger
}

// NewResourceRepository constructs a [ResourceRepository] backed by db.
func NewResourceRepository(db *DB, logger *logger.Logger) ResourceRepository {
	return &resourceRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *resourceRepository) Get(ctx context.Context, surveyID, url string) (models.Resource, error) {
	log := logger.FromContext(ctx)

	resource, err := scanResource(r.codec, r.DB.QueryRowContext(ctx, getResource, surveyID, url))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Resource{}, fmt.Errorf("resource %q of survey %q: %w", url, surveyID, ErrNotFound)
	}
	if err != nil {
		log.Err(err).
			Str("func", "resourceRepository.Get").
			Str("survey_id", surveyID).
			Str("url", url).
			Msg("failed to read resource")
		return models.Resource{}, err
	}

	return resource, nil
}

// Update inserts or replaces a resource. It fails with [ErrIncompleteRecord]
// without a survey id or url and with [ErrDataError] without a payload.
func (r *resourceRepository) Update(ctx context.Context, resource models.Resource) error {
	if resource.SurveyID == "" {
		return fmt.Errorf("resource %q without survey: %w", resource.URL, ErrIncompleteRecord)
	}
	if err := validateResource(resource); err != nil {
		return err
	}

	log := logger.FromContext(ctx)

	if err := putResource(ctx, r.DB, r.codec, resource.SurveyID, resource); err != nil {
		log.Err(err).
			Str("func", "resourceRepository.Update").
			Str("survey_id", resource.SurveyID).
			Str("url", resource.URL).
			Msg("failed to write resource")
		return fmt.Errorf("failed to write resource (url=%s): %w", resource.URL, err)
	}

	return nil
}

func (r *resourceRepository) Remove(ctx context.Context, surveyID, url string) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, deleteResource, surveyID, url); err != nil {
		log.Err(err).
			Str("func", "resourceRepository.Remove").
			Str("survey_id", surveyID).
			Str("url", url).
			Msg("failed to remove resource")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// List returns every stored resource of a survey in url order.
func (r *resourceRepository) List(ctx context.Context, surveyID string) ([]models.Resource, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListResourcesQuery(surveyID)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "resourceRepository.List").
			Str("survey_id", surveyID).
			Msg("failed to query resources")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		resource, scanErr := scanResource(r.codec, rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "resourceRepository.List").
				Str("survey_id", surveyID).
				Msg("failed to scan resource row")
			return nil, scanErr
		}
		resources = append(resources, resource)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return resources, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func validateResource(resource models.Resource) error {
	if resource.URL == "" {
		return fmt.Errorf("resource without url: %w", ErrIncompleteRecord)
	}
	if resource.Item.Data == nil {
		return fmt.Errorf("resource %q without payload: %w", resource.URL, ErrDataError)
	}
	return nil
}

func putResource(ctx context.Context, db execer, codec *blob.Codec, surveyID string, resource models.Resource) error {
	stored := codec.Encode(resource.Item)

	if _, err := db.ExecContext(ctx, upsertResource,
		surveyID,
		resource.URL,
		int(stored.Mode),
		stored.MIMEType,
		stored.Data,
		resource.Item.Size(),
	); err != nil {
		return mapWriteError(err)
	}

	return nil
}

func scanResource(codec *blob.Codec, row scanner) (models.Resource, error) {
	var (
		resource models.Resource
		stored   blob.Stored
		mode     int
	)

	if err := row.Scan(&resource.SurveyID, &resource.URL, &mode, &stored.MIMEType, &stored.Data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Resource{}, err
		}
		return models.Resource{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	stored.Mode = blob.Mode(mode)

	item, err := codec.Decode(stored)
	if err != nil {
		return models.Resource{}, fmt.Errorf("%w: %w", ErrDecodingPayload, err)
	}
	resource.Item = item

	return resource, nil
}
