// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// Batch is a size-bounded upload unit holding one record's instance data and
// a subset of its attachments. Batches are never persisted.
type Batch struct {
	// Name is the record display name, used in user feedback.
	Name string

	// SurveyID selects the submission endpoint.
	SurveyID string

	// InstanceID correlates all batches of the same record on the server.
	InstanceID string

	// XML is the serialized instance sent with every batch.
	XML string

	// Files are the attachments assigned to this batch.
	Files []BatchFile

	// BatchCount is the total number of batches the record was split into.
	BatchCount int

	// BatchIndex is the zero-based position of this batch.
	BatchIndex int
}

// BatchFile is one attachment part of a batch.
type BatchFile struct {
	// FieldName is the instance node name the part is posted under.
	FieldName string

	// FileName is the attachment name referenced from the instance.
	FileName string

	Item Blob
}

// IsComplete reports whether every field needed to deliver the batch is
// present.
func (b Batch) IsComplete() bool {
	return b.Name != "" && b.SurveyID != "" && b.InstanceID != "" && b.XML != "" &&
		b.BatchCount > 0 && b.BatchIndex >= 0 && b.BatchIndex < b.BatchCount
}

// Size returns the total payload size of the batch in bytes.
func (b Batch) Size() int64 {
	size := int64(len(b.XML))
	for _, f := range b.Files {
		size += f.Item.Size()
	}
	return size
}

// BatchKey identifies a batch within the upload pipeline.
type BatchKey struct {
	InstanceID string
	BatchIndex int
}

// Key returns the pipeline identity of the batch.
func (b Batch) Key() BatchKey {
	return BatchKey{InstanceID: b.InstanceID, BatchIndex: b.BatchIndex}
}
