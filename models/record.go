// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// Record is one user-entered form instance.
type Record struct {
	// InstanceID is the globally unique id of the instance, stable across
	// edits. Primary key of the records table.
	InstanceID string `json:"instanceId"`

	// SurveyID is the owning survey.
	SurveyID string `json:"enketoId"`

	// Name is the display name, unique per survey.
	Name string `json:"name"`

	// XML is the serialized instance data.
	XML string `json:"xml"`

	// Draft is true until the record is finalized.
	Draft bool `json:"draft"`

	// UpdatedAt is bumped on every save.
	UpdatedAt time.Time `json:"updatedAt"`

	// Files holds the record attachments. On writes a nil slice leaves stored
	// attachments untouched; a non-nil slice replaces them.
	Files []RecordFile `json:"files,omitempty"`
}

// IsComplete reports whether the record has every field required to be
// persisted.
func (r Record) IsComplete() bool {
	return r.InstanceID != "" && r.Name != "" && r.XML != ""
}

// RecordFile is an attachment keyed by (InstanceID, Name).
type RecordFile struct {
	InstanceID string `json:"instanceId"`
	Name       string `json:"name"`
	Item       Blob   `json:"item"`
}

// SurveyStats holds per-survey counters kept in the property table.
type SurveyStats struct {
	RecordCount int `json:"recordCount"`
}

// QueueChanged is published by the record queue whenever its list projection
// changes.
type QueueChanged struct {
	SurveyID string
	Total    int
	Final    int
	Drafts   int
}
