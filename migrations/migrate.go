// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package migrations embeds the goose migrations of the local form store.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var embedMigrations embed.FS

// SchemaVersion is the version of the newest embedded migration. It must be
// bumped together with every migration that changes the shape of a table.
const SchemaVersion int64 = 2

var errNilDB = errors.New("db is nil")

// Migrate upgrades db to SchemaVersion. Tables untouched by newer migrations
// keep their rows.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migration error: %w", errNilDB)
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.UpTo(db, ".", SchemaVersion); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}

// Version returns the schema version currently applied to db.
func Version(db *sql.DB) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("migration error: %w", errNilDB)
	}

	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("migration error reading version: %w", err)
	}

	return version, nil
}
