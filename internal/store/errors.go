// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrStorageUnavailable is returned when the store cannot be opened, is
	// not writable, or its self-test does not round-trip. It is never
	// returned for a missing entity.
	ErrStorageUnavailable = errors.New("local storage is unavailable")

	// ErrIncompleteRecord is returned, before any I/O, when an entity lacks
	// one of its required fields.
	ErrIncompleteRecord = errors.New("incomplete record")

	// ErrDataError is returned, before any I/O, when a payload or key is
	// malformed.
	ErrDataError = errors.New("data error")

	// ErrDuplicateKey is returned when an entity with the same key already
	// exists. Callers should use update instead.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownTable is returned by FlushTable for names outside the schema.
	ErrUnknownTable = errors.New("unknown table")

	// ErrSelfTestFailed is returned when a value written during the store
	// self-test reads back differently.
	ErrSelfTestFailed = errors.New("store self-test failed")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a result
	// row fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrDecodingPayload is returned when a stored binary payload cannot be
	// decoded.
	ErrDecodingPayload = errors.New("failed to decode stored payload")
)
