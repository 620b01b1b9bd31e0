// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MKhiriev/go-form-keeper/internal/blob"
	"github.com/MKhiriev/go-form-keeper/internal/config"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/models"
)

// ClientStorages groups all local repositories that share one SQLite
// connection and one blob codec.
type ClientStorages struct {
	Surveys    SurveyRepository
	Resources  ResourceRepository
	Records    RecordRepository
	Files      FileRepository
	Properties PropertyRepository

	db   *DB
	dsn  string
	mode blob.Mode
}

// NewClientStorages initialises the local store. It performs the following
// steps:
//  1. Opens an SQLite connection to cfg.DB.DSN, creating the file if needed.
//  2. Runs pending schema migrations via [DB.Migrate].
//  3. Writes the lastLaunched property and reads it back.
//  4. Fixes the blob codec mode for the session: encoded when
//     cfg.ForceEncoded is set, otherwise whatever [blob.Probe] reports.
//
// Any failure is returned wrapped in [ErrStorageUnavailable].
func NewClientStorages(ctx context.Context, cfg config.ClientStorage, log *logger.Logger) (*ClientStorages, error) {
	log.Info().Msg("creating new storages...")

	db, err := NewConnectSQLite(ctx, cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite connection error: %w", ErrStorageUnavailable, err)
	}

	if err = db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migration failed: %w", ErrStorageUnavailable, err)
	}

	properties := NewPropertyRepository(db, log)

	if err = selfTest(ctx, properties); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	mode := blob.ModeEncoded
	if !cfg.ForceEncoded {
		mode = blob.Probe(ctx, probeStore{db: db})
	}
	db.codec = blob.NewCodec(mode)

	if err = properties.Update(ctx, models.Property{
		Name:  models.PropertyBlobSupport,
		Value: json.RawMessage(strconv.Quote(mode.String())),
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	log.Info().Str("blob_mode", mode.String()).Msg("local store is ready")

	return &ClientStorages{
		Surveys:    NewSurveyRepository(db, log),
		Resources:  NewResourceRepository(db, log),
		Records:    NewRecordRepository(db, log),
		Files:      NewFileRepository(db, log),
		Properties: properties,
		db:         db,
		dsn:        cfg.DB.DSN,
		mode:       mode,
	}, nil
}

// BlobMode returns the codec mode fixed for this session.
func (s *ClientStorages) BlobMode() blob.Mode {
	return s.mode
}

// FlushTable deletes every row of one table.
func (s *ClientStorages) FlushTable(ctx context.Context, table string) error {
	query, args, err := buildFlushTableQuery(table)
	if err != nil {
		return err
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "ClientStorages.FlushTable").
			Str("table", table).
			Msg("failed to flush table")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// Flush destroys the whole store: the connection is closed and the database
// file removed. The storages are unusable afterwards.
func (s *ClientStorages) Flush(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	if isInMemory(s.dsn) {
		return nil
	}

	if err := os.Remove(dbFilePath(s.dsn)); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.FromContext(ctx).Err(err).
			Str("func", "ClientStorages.Flush").
			Str("dsn", s.dsn).
			Msg("failed to remove database file")
		return fmt.Errorf("failed to remove store file: %w", err)
	}

	return nil
}

// Close releases the connection.
func (s *ClientStorages) Close() error {
	return s.db.Close()
}

// selfTest writes lastLaunched and requires it to read back unchanged.
func selfTest(ctx context.Context, properties PropertyRepository) error {
	value := json.RawMessage(strconv.FormatInt(time.Now().UnixMilli(), 10))

	if err := properties.Update(ctx, models.Property{Name: models.PropertyLastLaunched, Value: value}); err != nil {
		return fmt.Errorf("self-test write: %w", err)
	}

	got, err := properties.Get(ctx, models.PropertyLastLaunched)
	if err != nil {
		return fmt.Errorf("self-test read: %w", err)
	}
	if !bytes.Equal(got.Value, value) {
		return ErrSelfTestFailed
	}

	return nil
}

// probeStore lets [blob.Probe] write a raw binary value into the property
// table and read it back.
type probeStore struct {
	db *DB
}

func (p probeStore) WriteProbe(ctx context.Context, value []byte) error {
	_, err := p.db.ExecContext(ctx, upsertProperty, models.PropertyBlobProbe, value)
	return err
}

func (p probeStore) ReadProbe(ctx context.Context) ([]byte, error) {
	var value []byte
	if err := p.db.QueryRowContext(ctx, getProperty, models.PropertyBlobProbe).Scan(new(string), &value); err != nil {
		return nil, err
	}

	// the probe value is not a setting; drop it once read
	if _, err := p.db.ExecContext(ctx, deleteProperty, models.PropertyBlobProbe); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return value, nil
}
