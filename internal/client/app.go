// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MKhiriev/go-form-keeper/internal/adapter"
	"github.com/MKhiriev/go-form-keeper/internal/config"
	"github.com/MKhiriev/go-form-keeper/internal/formmodel"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/internal/metrics"
	"github.com/MKhiriev/go-form-keeper/internal/notify"
	"github.com/MKhiriev/go-form-keeper/internal/service"
	"github.com/MKhiriev/go-form-keeper/internal/store"
	"github.com/MKhiriev/go-form-keeper/internal/utils"
	"github.com/MKhiriev/go-form-keeper/internal/workers"
	"github.com/MKhiriev/go-form-keeper/models"
)

const metricsShutdownTimeout = 3 * time.Second

type App struct {
	Services *service.ClientServices

	cfg      config.ClientConfig
	ref      models.SurveyRef
	registry *prometheus.Registry
	notifier *notify.Notifier
	workers  *workers.Workers
	ids      *utils.UUIDGenerator

	mu            sync.Mutex
	survey        models.Survey
	detach        func()
	metricsServer *http.Server

	logger *logger.Logger
}

var _ Client = (*App)(nil)

// NewApp wires the client services over storages and serverAdapter. Feedback
// lines are written to out.
func NewApp(
	cfg config.ClientConfig,
	storages *store.ClientStorages,
	serverAdapter adapter.ServerAdapter,
	out io.Writer,
	log *logger.Logger,
) (*App, error) {
	registry := prometheus.NewRegistry()
	recorder, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	services, err := service.NewClientServices(storages, serverAdapter, cfg, recorder, log)
	if err != nil {
		return nil, fmt.Errorf("create client services: %w", err)
	}

	a := &App{
		Services: services,
		cfg:      cfg,
		ref: models.SurveyRef{
			ID:       cfg.App.SurveyID,
			XFormID:  cfg.App.XFormID,
			XFormURL: cfg.App.XFormURL,
		},
		registry: registry,
		notifier: notify.New(out),
		ids:      utils.NewUUIDGenerator(),
		logger:   log,
	}
	a.workers = workers.NewWorkers(
		workers.NewPeriodic(cfg.Workers.UploadDelay, cfg.Workers.UploadInterval, a.uploadQueue),
		workers.NewPeriodic(0, cfg.Workers.ConnectivityInterval, a.checkConnection),
	)

	log.Info().Str("survey_id", cfg.App.SurveyID).Msg("client app created")
	return a, nil
}

// Run starts the app and blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.Stop()
	return nil
}

// Start opens the survey, queues the configured instance files and starts
// the background jobs. It returns the opened survey.
func (a *App) Start(ctx context.Context) (models.Survey, error) {
	ctx = a.logger.WithContext(ctx)

	a.mu.Lock()
	a.detach = a.notifier.Attach(a.Services)
	a.mu.Unlock()

	survey, err := a.Services.Cache.Init(ctx, a.ref)
	if err != nil {
		a.logger.Err(err).
			Str("func", "App.Start").
			Str("survey_id", a.ref.ID).
			Msg("failed to open survey")
		a.Stop()
		return models.Survey{}, fmt.Errorf("open survey: %w", err)
	}

	a.mu.Lock()
	a.survey = survey
	a.mu.Unlock()

	for _, path := range a.cfg.Files {
		if _, err = a.QueueFile(ctx, path); err != nil {
			a.logger.Err(err).Str("file", path).Msg("instance file not queued")
		}
	}

	a.serveMetrics(ctx)
	a.workers.Run(context.WithoutCancel(ctx))
	return survey, nil
}

// Stop halts the background jobs and the metrics listener. Queued records
// stay in the store.
func (a *App) Stop() {
	a.workers.Stop()
	a.Services.Cache.Stop()

	a.mu.Lock()
	detach, srv := a.detach, a.metricsServer
	a.detach, a.metricsServer = nil, nil
	a.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Err(err).Msg("metrics listener shutdown")
		}
	}
	if detach != nil {
		detach()
	}
}

// QueueFile reads an instance document from path and stores it as a final
// record of the active survey. An instance without meta/instanceID gets a
// fresh one.
func (a *App) QueueFile(ctx context.Context, path string) (models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Record{}, fmt.Errorf("read instance file: %w", err)
	}

	model, err := formmodel.Open(string(data))
	if err != nil {
		return models.Record{}, fmt.Errorf("parse instance file: %w", err)
	}
	if id := model.InstanceID(); !utils.IsInstanceID(id) {
		if id != "" {
			a.logger.Warn().Str("func", "App.QueueFile").Str("file", path).Str("instance_id", id).
				Msg("malformed instance id replaced")
		}
		model.SetInstanceID(a.ids.InstanceID())
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return a.saveRecord(ctx, model, name, false)
}

// NewDraft stores a fresh draft record of the opened survey with the
// configured default values applied.
func (a *App) NewDraft(ctx context.Context, chosenName string) (models.Record, error) {
	a.mu.Lock()
	survey := a.survey
	a.mu.Unlock()

	instance, err := formmodel.PrepareInstance(survey.Model, a.cfg.App.Defaults)
	if err != nil {
		return models.Record{}, fmt.Errorf("prepare instance: %w", err)
	}
	if instance == "" {
		instance = survey.Model
	}

	model, err := formmodel.Open(instance)
	if err != nil {
		return models.Record{}, fmt.Errorf("open instance: %w", err)
	}
	model.SetInstanceID(a.ids.InstanceID())

	return a.saveRecord(ctx, model, chosenName, true)
}

func (a *App) saveRecord(ctx context.Context, model *formmodel.Model, chosenName string, draft bool) (models.Record, error) {
	xml, err := model.String()
	if err != nil {
		return models.Record{}, fmt.Errorf("serialize instance: %w", err)
	}

	name, err := a.Services.Queue.GetNextDraftName(ctx, a.cfg.App.SurveyID, chosenName)
	if err != nil {
		return models.Record{}, err
	}

	record := models.Record{
		InstanceID: model.InstanceID(),
		SurveyID:   a.cfg.App.SurveyID,
		Name:       name,
		XML:        xml,
		Draft:      draft,
	}
	if err = a.Services.Queue.Set(ctx, record); err != nil {
		return models.Record{}, err
	}

	a.logger.Info().
		Str("instance_id", record.InstanceID).
		Str("name", record.Name).
		Bool("draft", draft).
		Msg("record saved")
	return record, nil
}

// uploadQueue is the automatic upload job. Failures stay in the log.
func (a *App) uploadQueue(ctx context.Context) {
	log := logger.FromContext(ctx)

	if a.Services.Monitor.Status() == models.StatusOffline {
		log.Debug().Msg("offline, automatic upload skipped")
		return
	}

	results, err := a.Services.Queue.UploadQueue(ctx, false)
	switch {
	case errors.Is(err, service.ErrUploadInProgress):
		log.Debug().Msg("upload already running")
	case err != nil:
		log.Warn().Err(err).Msg("automatic upload failed")
	default:
		log.Debug().Int("records", len(results)).Msg("automatic upload done")
	}
}

func (a *App) checkConnection(ctx context.Context) {
	a.Services.Monitor.Check(ctx)
}

func (a *App) serveMetrics(ctx context.Context) {
	if a.cfg.MetricsAddress == "" {
		return
	}

	srv := &http.Server{
		Addr:              a.cfg.MetricsAddress,
		Handler:           metrics.Handler(a.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.mu.Lock()
	a.metricsServer = srv
	a.mu.Unlock()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FromContext(ctx).Err(err).Str("address", srv.Addr).Msg("metrics listener stopped")
		}
	}()
}
