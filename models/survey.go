// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// SurveyRef identifies a deployed form on the server. ID is the opaque form id
// used as the local cache key; the remaining fields are forwarded verbatim to
// the transform endpoint.
type SurveyRef struct {
	ID        string `json:"enketoId"`
	ServerURL string `json:"serverUrl,omitempty"`
	XFormID   string `json:"xformId,omitempty"`
	XFormURL  string `json:"xformUrl,omitempty"`
}

// Survey is a cached form definition.
type Survey struct {
	// ID is the opaque form id. Unique key of the surveys table.
	ID string `json:"enketoId"`

	// Form is the rendered form markup with media sources moved to
	// data-offline-src attributes.
	Form string `json:"form"`

	// Model is the data-model definition (schema + default instance).
	Model string `json:"model"`

	// Hash is the freshness fingerprint computed by the server over markup,
	// model and all linked media.
	Hash string `json:"hash"`

	// Resources lists the canonical URLs of the media stored for this survey.
	// A nil slice means media has not been fetched yet (or was invalidated by
	// a refresh) and must be downloaded lazily.
	Resources []string `json:"resources,omitempty"`

	// Files carries media payloads to be written together with the survey.
	// It is never populated on reads.
	Files []Resource `json:"-"`

	// UpdatedAt is the time of the last local write.
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsComplete reports whether the survey has every field required to be
// persisted.
func (s Survey) IsComplete() bool {
	return s.ID != "" && s.Form != "" && s.Model != "" && s.Hash != ""
}

// FormParts is the transform endpoint response.
type FormParts struct {
	Form      string   `json:"form"`
	Model     string   `json:"model"`
	Hash      string   `json:"hash"`
	Resources []string `json:"resources,omitempty"`
}

// ToSurvey builds a Survey for ref from the transform response. Media is left
// unfetched.
func (p FormParts) ToSurvey(ref SurveyRef) Survey {
	return Survey{
		ID:    ref.ID,
		Form:  p.Form,
		Model: p.Model,
		Hash:  p.Hash,
	}
}

// Resource is a media asset owned by a survey, keyed by (SurveyID, URL).
type Resource struct {
	SurveyID string `json:"surveyId"`
	URL      string `json:"url"`
	Item     Blob   `json:"item"`
}
