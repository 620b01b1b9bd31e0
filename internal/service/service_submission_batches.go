// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"fmt"
	"strings"

	"github.com/MKhiriev/go-form-keeper/internal/formmodel"
	"github.com/MKhiriev/go-form-keeper/models"
)

// DivideIntoBatches packs item indices into batches whose summed size stays
// below limit. The first remaining item seeds each batch and following items
// are added while the running total stays strictly below limit. An item that
// alone reaches the limit therefore ends up in a batch of its own.
func DivideIntoBatches(sizes []int64, limit int64) [][]int {
	remaining := make([]int, len(sizes))
	for i := range sizes {
		remaining[i] = i
	}

	var batches [][]int
	for len(remaining) > 0 {
		seed := remaining[0]
		batch := []int{seed}
		total := sizes[seed]

		rest := make([]int, 0, len(remaining))
		for _, idx := range remaining[1:] {
			if total+sizes[idx] < limit {
				batch = append(batch, idx)
				total += sizes[idx]
				continue
			}
			rest = append(rest, idx)
		}

		batches = append(batches, batch)
		remaining = rest
	}
	return batches
}

// prepareBatches opens the instance of record, collects its attachment nodes
// and splits the stored attachments under maxSize. The instance is sent in
// every batch with its type="file" markers removed.
func prepareBatches(record models.Record, maxSize int64) ([]models.Batch, []string, error) {
	model, err := formmodel.Open(record.XML)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidBatch, err)
	}

	nodes := model.FileNodes()
	xml, err := model.String()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidBatch, err)
	}

	stored := make(map[string]models.RecordFile, len(record.Files))
	for _, f := range record.Files {
		stored[f.Name] = f
	}

	var (
		files   []models.BatchFile
		sizes   []int64
		missing []string
	)
	for _, node := range nodes {
		f, ok := stored[node.FileName]
		if !ok {
			missing = append(missing, node.FileName)
			continue
		}
		files = append(files, models.BatchFile{
			FieldName: node.NodeName,
			FileName:  node.FileName,
			Item:      f.Item,
		})
		sizes = append(sizes, f.Item.Size())
	}

	groups := [][]int{nil}
	if len(files) > 0 {
		groups = DivideIntoBatches(sizes, maxSize)
	}

	batches := make([]models.Batch, 0, len(groups))
	for i, group := range groups {
		batch := models.Batch{
			Name:       record.Name,
			SurveyID:   record.SurveyID,
			InstanceID: record.InstanceID,
			XML:        xml,
			BatchCount: len(groups),
			BatchIndex: i,
		}
		for _, idx := range group {
			batch.Files = append(batch.Files, files[idx])
		}
		batches = append(batches, batch)
	}
	return batches, missing, nil
}

// ClassifyStatus maps a submission response code to an outcome. Codes outside
// the known classes fall into the class of their hundred: 1xx counts as 2xx,
// 3xx as 4xx and anything from 600 up as 5xx.
func ClassifyStatus(code int) models.Outcome {
	switch code {
	case 201, 202:
		return models.OutcomeAccepted
	case 400:
		return models.OutcomeBadRequest
	case 401:
		return models.OutcomeAuthRequired
	case 403:
		return models.OutcomeForbidden
	case 404:
		return models.OutcomeNotFound
	case 413:
		return models.OutcomeTooLarge
	}

	switch {
	case code < 100:
		return models.OutcomeUnreachable
	case code < 300:
		return models.OutcomeNonStandard
	case code < 500:
		return models.OutcomeClientError
	default:
		return models.OutcomeServerError
	}
}

// outcomeMessage returns the user-facing text for outcome. Multi-batch
// results are prefixed with their position.
func outcomeMessage(outcome models.Outcome, supportEmail string, batchIndex, batchCount int) string {
	contactSupport := "Please contact " + supportEmail + "."
	contactAdmin := "Please contact the survey administrator."

	var msg string
	switch outcome {
	case models.OutcomeUnreachable:
		msg = "Uploading of data failed (maybe offline) and will be tried again later."
	case models.OutcomeAccepted:
		msg = "Data successfully submitted."
	case models.OutcomeNonStandard:
		msg = "Data was sent but the server responded unexpectedly. " + contactSupport
	case models.OutcomeBadRequest:
		msg = "Data server did not accept data. " + contactAdmin
	case models.OutcomeAuthRequired:
		msg = "Authentication is required."
	case models.OutcomeForbidden:
		msg = "You are not allowed to post data to this data server. " + contactAdmin
	case models.OutcomeNotFound:
		msg = "Submission service on data server not found or not properly configured."
	case models.OutcomeTooLarge:
		msg = "Data is too large. " + contactSupport
	case models.OutcomeClientError:
		msg = "Unknown submission problem on data server. " + contactAdmin
	case models.OutcomeServerError:
		msg = "Sorry, the data server is currently unavailable. Please try again later or contact " + supportEmail + "."
	case models.OutcomeCancelled:
		msg = "Upload was cancelled."
	default:
		msg = "Unknown error occurred when submitting data. " + contactSupport
	}

	if batchCount > 1 {
		msg = fmt.Sprintf("part %d of %d: %s", batchIndex+1, batchCount, msg)
	}
	return msg
}

// uploadedFeedback returns the success line for names, or an empty string.
func uploadedFeedback(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " was successfully uploaded!"
	default:
		return strings.Join(names, ", ") + " were successfully uploaded!"
	}
}
