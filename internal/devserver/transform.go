// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package devserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-form-keeper/internal/adapter"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/internal/utils"
)

const surveyIDField = "enketoId"

func (h *Handler) connection(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.WriteJSON(w, map[string]string{"status": adapter.LivenessMarker}, http.StatusOK); err != nil {
		logger.FromRequest(r).Err(err).Msg("failed to write probe response")
	}
}

func (h *Handler) transform(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	id := r.PostFormValue(surveyIDField)
	parts, err := h.forms.Parts(id)
	if err != nil {
		h.writeFormError(w, r, err)
		return
	}

	log.Debug().Str("survey_id", id).Str("hash", parts.Hash).Msg("form transformed")
	if _, err = utils.WriteJSON(w, parts, http.StatusOK); err != nil {
		log.Err(err).Msg("failed to write form parts")
	}
}

func (h *Handler) transformHash(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	id := r.PostFormValue(surveyIDField)
	parts, err := h.forms.Parts(id)
	if err != nil {
		h.writeFormError(w, r, err)
		return
	}

	if _, err = utils.WriteJSON(w, map[string]string{"hash": parts.Hash}, http.StatusOK); err != nil {
		log.Err(err).Msg("failed to write form hash")
	}
}

func (h *Handler) maxSubmissionSize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "surveyID")
	if !h.forms.Exists(id) {
		http.Error(w, "form not found", http.StatusNotFound)
		return
	}

	if _, err := utils.WriteJSON(w, map[string]int64{"maxSize": h.maxSize}, http.StatusOK); err != nil {
		logger.FromRequest(r).Err(err).Msg("failed to write max size")
	}
}

func (h *Handler) media(w http.ResponseWriter, r *http.Request) {
	item, err := h.forms.Media(chi.URLParam(r, "surveyID"), chi.URLParam(r, "file"))
	if err != nil {
		h.writeFormError(w, r, err)
		return
	}

	if _, err = utils.WriteBlob(w, item.MIMEType, item.Data); err != nil {
		logger.FromRequest(r).Err(err).Msg("failed to write media")
	}
}

func (h *Handler) writeFormError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromRequest(r)

	switch {
	case errors.Is(err, ErrInvalidFormID):
		log.Warn().Err(err).Msg("invalid form id")
		http.Error(w, "invalid form id", http.StatusBadRequest)
	case errors.Is(err, ErrFormNotFound), errors.Is(err, ErrMediaNotFound):
		log.Warn().Err(err).Msg("not found")
		http.Error(w, "not found", http.StatusNotFound)
	default:
		log.Err(err).Msg("failed to read form")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
