// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/models"
)

type propertyRepository struct {
	*DB
	logger *logger.Logger
}

// NewPropertyRepository constructs a [PropertyRepository] backed by db.
func NewPropertyRepository(db *DB, logger *logger.Logger) PropertyRepository {
	return &propertyRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *propertyRepository) Get(ctx context.Context, name string) (models.Property, error) {
	var value sql.NullString
	property := models.Property{}

	err := r.DB.QueryRowContext(ctx, getProperty, name).Scan(&property.Name, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Property{}, fmt.Errorf("property %q: %w", name, ErrNotFound)
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "propertyRepository.Get").
			Str("name", name).
			Msg("failed to read property")
		return models.Property{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	if value.Valid {
		property.Value = json.RawMessage(value.String)
	}

	return property, nil
}

// Update inserts or replaces a property. The value must be valid JSON.
func (r *propertyRepository) Update(ctx context.Context, property models.Property) error {
	if property.Name == "" {
		return fmt.Errorf("property without name: %w", ErrDataError)
	}
	if property.Value != nil && !json.Valid(property.Value) {
		return fmt.Errorf("property %q value is not json: %w", property.Name, ErrDataError)
	}

	var value any
	if property.Value != nil {
		value = string(property.Value)
	}

	if _, err := r.DB.ExecContext(ctx, upsertProperty, property.Name, value); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "propertyRepository.Update").
			Str("name", property.Name).
			Msg("failed to write property")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}
