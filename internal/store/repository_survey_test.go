// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurveyRepository_SetGet(t *testing.T) {
	s := newTestStorages(t, false)
	ctx := testContext()

	survey := testSurvey("abc123")
	require.NoError(t, s.Surveys.Set(ctx, survey))

	got, err := s.Surveys.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, survey.ID, got.ID)
	assert.Equal(t, survey.Form, got.Form)
	assert.Equal(t, survey.Model, got.Model)
	assert.Equal(t, survey.Hash, got.Hash)
	assert.Nil(t, got.Resources, "unfetched media must stay nil")
	assert.Equal(t, survey.UpdatedAt.UnixMilli(), got.UpdatedAt.UnixMilli())
}

func TestSurveyRepository_ResourceListRoundTrip(t *testing.T) {
	s := newTestStorages(t, false)
	ctx := testContext()

	survey := testSurvey("abc123")
	survey.Resources = []string{}
	require.NoError(t, s.Surveys.Set(ctx, survey))

	got, err := s.Surveys.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.NotNil(t, got.Resources)
	assert.Empty(t, got.Resources)

	survey.Resources = []string{"/media/a.png", "/media/b.css"}
	require.NoError(t, s.Surveys.Update(ctx, survey))

	got, err = s.Surveys.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{"/media/a.png", "/media/b.css"}, got.Resources)
}

func TestSurveyRepository_SetDuplicate(t *testing.T) {
	s := newTestStorages(t, false)
	ctx := testContext()

	first := testSurvey("abc123")
	require.NoError(t, s.Surveys.Set(ctx, first))

	second := testSurvey("abc123")
	second.Hash = "h2"
	err := s.Surveys.Set(ctx, second)
	require.ErrorIs(t, err, ErrDuplicateKey)

	got, err := s.Surveys.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "h1", got.Hash)
}

func TestSurveyRepository_UpdateUpserts(t *testing.T) {
	s := newTestStorages(t, false)
	ctx := testContext()

	survey := testSurvey("abc123")
	require.NoError(t, s.Surveys.Update(ctx, survey))

	survey.Hash = "h2"
	require.NoError(t, s.Surveys.Update(ctx, survey))

	got, err := s.Surveys.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.Hash)
}

func TestSurveyRepository_SetWithFiles(t *testing.T) {
	s := newTestStorages(t, false)
	ctx := testContext()

	survey := testSurvey("abc123")
	survey.Resources = []string{"/media/a.png"}
	survey.Files = []models.Resource{{URL: "/media/a.png", Item: models.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}}}}
	require.NoError(t, s.Surveys.Set(ctx, survey))

	res, err := s.Resources.Get(ctx, "abc123", "/media/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, res.Item.Data)
}

func TestSurveyRepository_GetMissing(t *testing.T) {
	s := newTestStorages(t, false)

	_, err := s.Surveys.Get(testContext(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSurveyRepository_RemoveCascades(t *testing.T) {
	s := newTestStorages(t, false)
	ctx := testContext()

	require.NoError(t, s.Surveys.Set(ctx, testSurvey("abc123")))
	require.NoError(t, s.Surveys.Set(ctx, testSurvey("other")))
	for _, url := range []string{"/media/a.png", "/media/b.png"} {
		require.NoError(t, s.Resources.Update(ctx, models.Resource{
			SurveyID: "abc123", URL: url, Item: models.Blob{MIMEType: "image/png", Data: []byte("x")},
		}))
	}
	require.NoError(t, s.Resources.Update(ctx, models.Resource{
		SurveyID: "other", URL: "/media/a.png", Item: models.Blob{MIMEType: "image/png", Data: []byte("y")},
	}))

	require.NoError(t, s.Surveys.Remove(ctx, "abc123"))

	_, err := s.Surveys.Get(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)
	resources, err := s.Resources.List(ctx, "abc123")
	require.NoError(t, err)
	assert.Empty(t, resources)

	// other surveys keep their media
	resources, err = s.Resources.List(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, resources, 1)

	// removing again tolerates missing rows
	assert.NoError(t, s.Surveys.Remove(ctx, "abc123"))
}

// ── validation happens before any I/O ───────────────────────────────────────

func TestSurveyRepository_IncompleteNoIO(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Survey)
	}{
		{name: "no id", mutate: func(s *models.Survey) { s.ID = "" }},
		{name: "no form", mutate: func(s *models.Survey) { s.Form = "" }},
		{name: "no model", mutate: func(s *models.Survey) { s.Model = "" }},
		{name: "no hash", mutate: func(s *models.Survey) { s.Hash = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newTestDB(t)
			repo := NewSurveyRepository(newDBFromSQL(db), logger.Nop())

			survey := testSurvey("abc123")
			tt.mutate(&survey)

			assert.ErrorIs(t, repo.Set(testContext(), survey), ErrIncompleteRecord)
			assert.ErrorIs(t, repo.Update(testContext(), survey), ErrIncompleteRecord)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSurveyRepository_RemoveRollsBack(t *testing.T) {
	db, mock := newTestDB(t)
	repo := NewSurveyRepository(newDBFromSQL(db), logger.Nop())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM resources WHERE survey_id = ?")).
		WithArgs("abc123").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM surveys WHERE id = ?")).
		WithArgs("abc123").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := repo.Remove(testContext(), "abc123")
	require.ErrorIs(t, err, ErrExecutingStatement)
	assert.NoError(t, mock.ExpectationsWereMet())
}
