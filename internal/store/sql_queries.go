// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Table names of the local schema.
const (
	TableSurveys    = "surveys"
	TableResources  = "resources"
	TableRecords    = "records"
	TableFiles      = "files"
	TableProperties = "properties"
)

var knownTables = map[string]struct{}{
	TableSurveys:    {},
	TableResources:  {},
	TableRecords:    {},
	TableFiles:      {},
	TableProperties: {},
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const (
	insertSurvey = `
		INSERT INTO surveys (id, form, model, hash, resources, updated_at)
		VALUES (?, ?, ?, ?, ?, ?);`

	upsertSurvey = `
		INSERT INTO surveys (id, form, model, hash, resources, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			form       = excluded.form,
			model      = excluded.model,
			hash       = excluded.hash,
			resources  = excluded.resources,
			updated_at = excluded.updated_at;`

	getSurvey = `
		SELECT id, form, model, hash, resources, updated_at
		FROM surveys
		WHERE id = ?;`

	deleteSurvey = `DELETE FROM surveys WHERE id = ?;`

	upsertResource = `
		INSERT INTO resources (survey_id, url, encoding, mime_type, payload, size)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (survey_id, url) DO UPDATE SET
			encoding  = excluded.encoding,
			mime_type = excluded.mime_type,
			payload   = excluded.payload,
			size      = excluded.size;`

	getResource = `
		SELECT survey_id, url, encoding, mime_type, payload
		FROM resources
		WHERE survey_id = ? AND url = ?;`

	deleteResource = `DELETE FROM resources WHERE survey_id = ? AND url = ?;`

	deleteSurveyResources = `DELETE FROM resources WHERE survey_id = ?;`

	insertRecord = `
		INSERT INTO records (instance_id, survey_id, name, xml, draft, updated_at)
		VALUES (?, ?, ?, ?, ?, ?);`

	upsertRecord = `
		INSERT INTO records (instance_id, survey_id, name, xml, draft, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (instance_id) DO UPDATE SET
			survey_id  = excluded.survey_id,
			name       = excluded.name,
			xml        = excluded.xml,
			draft      = excluded.draft,
			updated_at = excluded.updated_at;`

	getRecord = `
		SELECT instance_id, survey_id, name, xml, draft, updated_at
		FROM records
		WHERE instance_id = ?;`

	deleteRecord = `DELETE FROM records WHERE instance_id = ?;`

	deleteRecordFiles = `DELETE FROM files WHERE instance_id = ?;`

	upsertFile = `
		INSERT INTO files (instance_id, name, encoding, mime_type, payload, size)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (instance_id, name) DO UPDATE SET
			encoding  = excluded.encoding,
			mime_type = excluded.mime_type,
			payload   = excluded.payload,
			size      = excluded.size;`

	getFile = `
		SELECT instance_id, name, encoding, mime_type, payload
		FROM files
		WHERE instance_id = ? AND name = ?;`

	getRecordFiles = `
		SELECT instance_id, name, encoding, mime_type, payload
		FROM files
		WHERE instance_id = ?
		ORDER BY name;`

	deleteFile = `DELETE FROM files WHERE instance_id = ? AND name = ?;`

	getProperty = `SELECT name, value FROM properties WHERE name = ?;`

	upsertProperty = `
		INSERT INTO properties (name, value)
		VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value;`

	// incrementRecordCount bumps recordCount of a stats property, creating
	// the property on first use.
	incrementRecordCount = `
		INSERT INTO properties (name, value)
		VALUES (?, json_object('recordCount', 1))
		ON CONFLICT (name) DO UPDATE SET
			value = json_set(
				COALESCE(properties.value, '{}'),
				'$.recordCount',
				COALESCE(json_extract(properties.value, '$.recordCount'), 0) + 1
			);`

	deleteProperty = `DELETE FROM properties WHERE name = ?;`
)

var recordColumns = []string{"instance_id", "survey_id", "name", "xml", "draft", "updated_at"}

// buildListRecordsQuery selects the records of one survey, oldest first.
// finalOnly drops drafts.
func buildListRecordsQuery(surveyID string, finalOnly bool) (string, []any, error) {
	q := psql.Select(recordColumns...).
		From(TableRecords).
		Where(sq.Eq{"survey_id": surveyID}).
		OrderBy("updated_at ASC", "instance_id ASC")

	if finalOnly {
		q = q.Where(sq.Eq{"draft": false})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

// buildListResourcesQuery selects the resources of one survey in url order.
func buildListResourcesQuery(surveyID string) (string, []any, error) {
	query, args, err := psql.Select("survey_id", "url", "encoding", "mime_type", "payload").
		From(TableResources).
		Where(sq.Eq{"survey_id": surveyID}).
		OrderBy("url ASC").
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

// buildDeleteStaleFilesQuery deletes the files of an instance whose names are
// not in keep. An empty keep deletes every file of the instance.
func buildDeleteStaleFilesQuery(instanceID string, keep []string) (string, []any, error) {
	q := psql.Delete(TableFiles).Where(sq.Eq{"instance_id": instanceID})
	if len(keep) > 0 {
		q = q.Where(sq.NotEq{"name": keep})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}

// buildFlushTableQuery deletes every row of a known table.
func buildFlushTableQuery(table string) (string, []any, error) {
	if _, ok := knownTables[table]; !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	query, args, err := psql.Delete(table).ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return query, args, nil
}
