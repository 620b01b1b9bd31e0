// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package devserver

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-form-keeper/internal/adapter"
	"github.com/MKhiriev/go-form-keeper/internal/formmodel"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/internal/utils"
)

const (
	openRosaVersionHeader = "X-OpenRosa-Version"
	multipartMemory       = 8 << 20
)

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	surveyID := chi.URLParam(r, "surveyID")

	if status := int(h.rejectWith.Load()); status != 0 {
		log.Info().Str("survey_id", surveyID).Int("status", status).Msg("submission rejected on request")
		w.WriteHeader(status)
		return
	}

	if !h.forms.Exists(surveyID) {
		http.Error(w, "form not found", http.StatusNotFound)
		return
	}
	if r.Header.Get(openRosaVersionHeader) == "" {
		http.Error(w, "missing "+openRosaVersionHeader+" header", http.StatusBadRequest)
		return
	}

	if r.ContentLength > h.maxSize {
		h.writeTooLarge(w, r, surveyID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeTooLarge(w, r, surveyID)
			return
		}
		log.Err(err).Str("survey_id", surveyID).Msg("invalid multipart submission")
		http.Error(w, "invalid multipart submission", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	xml, instanceID, err := readInstance(r.MultipartForm)
	if err != nil {
		log.Warn().Err(err).Str("survey_id", surveyID).Msg("submission rejected")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := make(map[string]int64)
	for field, headers := range r.MultipartForm.File {
		if field == adapter.SubmissionFileField {
			continue
		}
		for _, fh := range headers {
			files[fh.Filename] = fh.Size
		}
	}

	traceID, _ := utils.GetTraceIDFromContext(r.Context())
	h.inbox.add(surveyID, instanceID, traceID, xml, files, h.now())

	log.Info().
		Str("survey_id", surveyID).
		Str("instance_id", instanceID).
		Int("files", len(files)).
		Msg("submission received")
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) writeTooLarge(w http.ResponseWriter, r *http.Request, surveyID string) {
	logger.FromRequest(r).Warn().
		Str("survey_id", surveyID).
		Str("limit", humanize.IBytes(uint64(h.maxSize))).
		Msg("submission exceeds the maximum size")
	http.Error(w, "submission too large", http.StatusRequestEntityTooLarge)
}

// readInstance returns the instance XML part of form and its instance id.
func readInstance(form *multipart.Form) (string, string, error) {
	headers := form.File[adapter.SubmissionFileField]
	if len(headers) == 0 {
		return "", "", ErrMissingInstance
	}

	f, err := headers[0].Open()
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrMissingInstance, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrMissingInstance, err)
	}

	model, err := formmodel.Open(string(data))
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrMissingInstance, err)
	}
	instanceID := model.InstanceID()
	if instanceID == "" {
		return "", "", ErrMissingInstanceID
	}
	return string(data), instanceID, nil
}
