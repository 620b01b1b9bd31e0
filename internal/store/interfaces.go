// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"

	"github.com/MKhiriev/go-form-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// SurveyRepository stores survey definitions. Set and Update validate
// completeness before touching the database.
type SurveyRepository interface {
	Get(ctx context.Context, id string) (models.Survey, error)
	Set(ctx context.Context, survey models.Survey) error
	Update(ctx context.Context, survey models.Survey) error
	Remove(ctx context.Context, id string) error
}

// ResourceRepository stores survey media keyed by (survey id, url).
type ResourceRepository interface {
	Get(ctx context.Context, surveyID, url string) (models.Resource, error)
	Update(ctx context.Context, resource models.Resource) error
	Remove(ctx context.Context, surveyID, url string) error
	List(ctx context.Context, surveyID string) ([]models.Resource, error)
}

// RecordRepository stores form instances with their attachments.
type RecordRepository interface {
	Get(ctx context.Context, instanceID string) (models.Record, error)
	GetAll(ctx context.Context, surveyID string, finalOnly bool) ([]models.Record, error)
	Set(ctx context.Context, record models.Record) error
	Update(ctx context.Context, record models.Record) error
	Remove(ctx context.Context, instanceID string) error
	Stats(ctx context.Context, surveyID string) (models.SurveyStats, error)
}

// FileRepository stores record attachments keyed by (instance id, name).
type FileRepository interface {
	Get(ctx context.Context, instanceID, name string) (models.RecordFile, error)
	GetAll(ctx context.Context, instanceID string) ([]models.RecordFile, error)
	Update(ctx context.Context, file models.RecordFile) error
	Remove(ctx context.Context, instanceID, name string) error
}

// PropertyRepository stores small key-value settings.
type PropertyRepository interface {
	Get(ctx context.Context, name string) (models.Property, error)
	Update(ctx context.Context, property models.Property) error
}
