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

type fileRepository struct {
	*DB
	logger *logger.Logger
}

// NewFileRepository constructs a [FileRepository] backed by db.
func NewFileRepository(db *DB, logger *logger.Logger) FileRepository {
	return &fileRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *fileRepository) Get(ctx context.Context, instanceID, name string) (models.RecordFile, error) {
	log := logger.FromContext(ctx)

	file, err := scanFile(r.codec, r.DB.QueryRowContext(ctx, getFile, instanceID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return models.RecordFile{}, fmt.Errorf("file %q of record %q: %w", name, instanceID, ErrNotFound)
	}
	if err != nil {
		log.Err(err).
			Str("func", "fileRepository.Get").
			Str("instance_id", instanceID).
			Str("name", name).
			Msg("failed to read file")
		return models.RecordFile{}, err
	}

	return file, nil
}

func (r *fileRepository) GetAll(ctx context.Context, instanceID string) ([]models.RecordFile, error) {
	return listFiles(ctx, r.DB, r.codec, instanceID)
}

// Update inserts or replaces an attachment.
func (r *fileRepository) Update(ctx context.Context, file models.RecordFile) error {
	if file.InstanceID == "" {
		return fmt.Errorf("file %q without record: %w", file.Name, ErrIncompleteRecord)
	}
	if err := validateFile(file); err != nil {
		return err
	}

	log := logger.FromContext(ctx)

	if err := putFile(ctx, r.DB, r.codec, file); err != nil {
		log.Err(err).
			Str("func", "fileRepository.Update").
			Str("instance_id", file.InstanceID).
			Str("name", file.Name).
			Msg("failed to write file")
		return fmt.Errorf("failed to write file (name=%s): %w", file.Name, err)
	}

	return nil
}

func (r *fileRepository) Remove(ctx context.Context, instanceID, name string) error {
	if _, err := r.DB.ExecContext(ctx, deleteFile, instanceID, name); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "fileRepository.Remove").
			Str("instance_id", instanceID).
			Str("name", name).
			Msg("failed to remove file")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func validateFile(file models.RecordFile) error {
	if file.Name == "" {
		return fmt.Errorf("file without name: %w", ErrIncompleteRecord)
	}
	if file.Item.Data == nil {
		return fmt.Errorf("file %q without payload: %w", file.Name, ErrDataError)
	}
	return nil
}

func putFile(ctx context.Context, db execer, codec *blob.Codec, file models.RecordFile) error {
	stored := codec.Encode(file.Item)

	if _, err := db.ExecContext(ctx, upsertFile,
		file.InstanceID,
		file.Name,
		int(stored.Mode),
		stored.MIMEType,
		stored.Data,
		file.Item.Size(),
	); err != nil {
		return mapWriteError(err)
	}

	return nil
}

func listFiles(ctx context.Context, db execer, codec *blob.Codec, instanceID string) ([]models.RecordFile, error) {
	rows, err := db.QueryContext(ctx, getRecordFiles, instanceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	var files []models.RecordFile
	for rows.Next() {
		file, scanErr := scanFile(codec, rows)
		if scanErr != nil {
			return nil, scanErr
		}
		files = append(files, file)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return files, nil
}

func scanFile(codec *blob.Codec, row scanner) (models.RecordFile, error) {
	var (
		file   models.RecordFile
		stored blob.Stored
		mode   int
	)

	if err := row.Scan(&file.InstanceID, &file.Name, &mode, &stored.MIMEType, &stored.Data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RecordFile{}, err
		}
		return models.RecordFile{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}
	stored.Mode = blob.Mode(mode)

	item, err := codec.Decode(stored)
	if err != nil {
		return models.RecordFile{}, fmt.Errorf("%w: %w", ErrDecodingPayload, err)
	}
	file.Item = item

	return file, nil
}
