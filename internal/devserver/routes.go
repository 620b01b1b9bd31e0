// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package devserver

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MKhiriev/go-form-keeper/internal/metrics"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID, withLogging, h.metrics.Middleware)
	if h.timeout > 0 {
		router.Use(middleware.Timeout(h.timeout))
	}

	router.Get("/connection", h.connection)
	router.Handle("/metrics", metrics.Handler(h.registry))

	// compressed responses
	router.Group(func(r chi.Router) {
		r.Use(withGZip)
		r.Post("/transform/xform", h.transform)
		r.Post("/transform/xform/hash", h.transformHash)
		r.Get("/submission/max-size/{surveyID}", h.maxSubmissionSize)
		r.Get("/media/{surveyID}/{file}", h.media)
	})

	router.Post("/submission/{surveyID}", h.submit)

	return router
}
