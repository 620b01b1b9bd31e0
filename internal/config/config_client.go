// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// ClientApp holds the survey the client works on.
type ClientApp struct {
	SurveyID     string
	SurveyName   string
	XFormID      string
	XFormURL     string
	SupportEmail string
	// Defaults maps instance node paths to default values of new records.
	Defaults map[string]string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// ServerURL is the base URL of the server-of-record.
	ServerURL string
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
	// SubmissionTimeout bounds a single batch upload.
	SubmissionTimeout time.Duration
	// ProbeTimeout bounds a single connectivity probe.
	ProbeTimeout time.Duration
	// MaxSizeTimeout bounds the maximum submission size query.
	MaxSizeTimeout time.Duration
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite connection string used by the client.
	DSN string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// DB holds local database settings.
	DB ClientDB
	// ForceEncoded skips the blob capability probe.
	ForceEncoded bool
}

// ClientWorkers contains client background job schedules.
type ClientWorkers struct {
	FreshnessDelay       time.Duration
	FreshnessInterval    time.Duration
	UploadDelay          time.Duration
	UploadInterval       time.Duration
	ConnectivityInterval time.Duration
}

// ClientSubmission holds size ceilings in bytes.
type ClientSubmission struct {
	DefaultMaxSize  int64
	AbsoluteMaxSize int64
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains the survey reference.
	App ClientApp
	// Adapter contains the server-of-record address and timeouts.
	Adapter ClientAdapter
	// Storage contains client storage settings.
	Storage ClientStorage
	// Workers contains background job settings.
	Workers ClientWorkers
	// Submission contains batch size ceilings.
	Submission ClientSubmission
	// MetricsAddress enables the /metrics listener when non-empty.
	MetricsAddress string
	// Files are instance XML files queued as final records on start.
	Files []string
}

// ServerConfig is the development server configuration.
type ServerConfig struct {
	Address        string
	FormsDir       string
	MaxSize        int64
	RequestTimeout time.Duration
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, and validates the resulting [ClientConfig].
func GetClientConfig(args []string) (*ClientConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	return newClientConfig(cfg)
}

func newClientConfig(cfg *StructuredConfig) (*ClientConfig, error) {
	defaultMaxSize, err := humanize.ParseBytes(cfg.Submission.DefaultMaxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: default max size: %w", ErrInvalidSubmissionConfigs, err)
	}
	absoluteMaxSize, err := humanize.ParseBytes(cfg.Submission.AbsoluteMaxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: absolute max size: %w", ErrInvalidSubmissionConfigs, err)
	}

	clientCfg := &ClientConfig{
		App: ClientApp{
			SurveyID:     cfg.App.SurveyID,
			SurveyName:   cfg.App.SurveyName,
			XFormID:      cfg.App.XFormID,
			XFormURL:     cfg.App.XFormURL,
			SupportEmail: cfg.App.SupportEmail,
			Defaults:     cfg.App.Defaults,
		},
		Adapter: ClientAdapter{
			ServerURL:         cfg.Adapter.ServerURL,
			RequestTimeout:    cfg.Adapter.RequestTimeout,
			SubmissionTimeout: cfg.Adapter.SubmissionTimeout,
			ProbeTimeout:      cfg.Adapter.ProbeTimeout,
			MaxSizeTimeout:    cfg.Adapter.MaxSizeTimeout,
		},
		Storage: ClientStorage{
			DB:           ClientDB{DSN: cfg.Storage.DB.DSN},
			ForceEncoded: cfg.Storage.ForceEncoded,
		},
		Workers: ClientWorkers{
			FreshnessDelay:       cfg.Workers.FreshnessDelay,
			FreshnessInterval:    cfg.Workers.FreshnessInterval,
			UploadDelay:          cfg.Workers.UploadDelay,
			UploadInterval:       cfg.Workers.UploadInterval,
			ConnectivityInterval: cfg.Workers.ConnectivityInterval,
		},
		Submission: ClientSubmission{
			DefaultMaxSize:  int64(defaultMaxSize),
			AbsoluteMaxSize: int64(absoluteMaxSize),
		},
		MetricsAddress: cfg.Metrics.Address,
		Files:          cfg.Args,
	}

	return clientCfg, clientCfg.validate()
}

// GetServerConfig builds and validates the development server config.
func GetServerConfig(args []string) (*ServerConfig, error) {
	cfg, err := GetStructuredConfig(args)
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	return newServerConfig(cfg)
}

func newServerConfig(cfg *StructuredConfig) (*ServerConfig, error) {
	maxSize, err := humanize.ParseBytes(cfg.Server.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: max size: %w", ErrInvalidServerConfigs, err)
	}

	serverCfg := &ServerConfig{
		Address:        cfg.Server.HTTPAddress,
		FormsDir:       cfg.Server.FormsDir,
		MaxSize:        int64(maxSize),
		RequestTimeout: cfg.Server.RequestTimeout,
	}

	return serverCfg, serverCfg.validate()
}
