// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-form-keeper/internal/blob"
	"github.com/MKhiriev/go-form-keeper/internal/config"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// newDBFromSQL wraps an existing *sql.DB (for tests).
func newDBFromSQL(db *sql.DB) *DB {
	return &DB{
		DB:                 db,
		errorClassificator: NewSQLiteErrorClassifier(),
		logger:             logger.Nop(),
		codec:              blob.NewCodec(blob.ModeRaw),
	}
}

// newTestStorages opens a migrated in-memory store.
func newTestStorages(t *testing.T, forceEncoded bool) *ClientStorages {
	t.Helper()
	s, err := NewClientStorages(testContext(), config.ClientStorage{
		DB:           config.ClientDB{DSN: ":memory:"},
		ForceEncoded: forceEncoded,
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testContext() context.Context {
	l := zerolog.Nop()
	return l.WithContext(context.Background())
}

func testSurvey(id string) models.Survey {
	return models.Survey{
		ID:        id,
		Form:      `<form><img data-offline-src="/media/a.png" src=""/></form>`,
		Model:     `<model><instance><data id="x"/></instance></model>`,
		Hash:      "h1",
		UpdatedAt: time.UnixMilli(1_700_000_000_000),
	}
}

func testRecord(id, name string) models.Record {
	return models.Record{
		InstanceID: id,
		SurveyID:   "abc123",
		Name:       name,
		XML:        `<data id="x"><meta><instanceID>` + id + `</instanceID></meta></data>`,
		UpdatedAt:  time.UnixMilli(1_700_000_000_000),
	}
}
