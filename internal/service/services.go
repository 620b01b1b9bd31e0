// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"fmt"

	"github.com/MKhiriev/go-form-keeper/internal/adapter"
	"github.com/MKhiriev/go-form-keeper/internal/config"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/internal/store"
)

// ClientServices groups the services of one client runtime. They share one
// store, one server adapter and one connectivity monitor.
type ClientServices struct {
	Monitor  ConnectivityMonitor
	Pipeline SubmissionPipeline
	Cache    SurveyCache
	Queue    RecordQueue
}

// NewClientServices wires the services for the survey configured in cfg.
func NewClientServices(
	storages *store.ClientStorages,
	serverAdapter adapter.ServerAdapter,
	cfg config.ClientConfig,
	recorder Recorder,
	log *logger.Logger,
) (*ClientServices, error) {
	log.Debug().Msg("creating client services")

	monitor := NewConnectivityMonitor(serverAdapter, recorder, log)
	pipeline := NewSubmissionPipeline(serverAdapter, monitor, recorder, cfg.Submission, cfg.App.SupportEmail)
	monitor.TrackUploads(pipeline)

	cache, err := NewSurveyCache(storages, serverAdapter, monitor, recorder, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create survey cache: %w", err)
	}

	queue := NewRecordQueue(storages, pipeline, recorder, ActiveSurvey{
		ID:   cfg.App.SurveyID,
		Name: cfg.App.SurveyName,
	})

	return &ClientServices{
		Monitor:  monitor,
		Pipeline: pipeline,
		Cache:    cache,
		Queue:    queue,
	}, nil
}
