// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for the
// go-form-keeper binaries. It aggregates all sub-configurations and is
// populated by merging built-in defaults, environment variables,
// command-line flags, and an optional JSON file.
//
// Struct tags:
//   - envPrefix - prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       - direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds the survey the client works on and user-facing settings.
	App App `envPrefix:"APP_"`

	// Adapter holds the address of the server-of-record and outbound timeouts.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// Storage holds the local store settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Workers holds the schedules of the background jobs.
	Workers Workers `envPrefix:"WORKERS_"`

	// Submission holds the batch size ceilings.
	Submission Submission `envPrefix:"SUBMISSION_"`

	// Metrics holds the optional Prometheus listener.
	Metrics Metrics `envPrefix:"METRICS_"`

	// Server holds the development server settings.
	Server Server `envPrefix:"SERVER_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`

	// Args are the positional command-line arguments.
	Args []string
}

// App holds the survey reference and user-facing settings.
type App struct {
	// SurveyID is the opaque form id of the survey to open.
	// Env: APP_SURVEY_ID
	SurveyID string `env:"SURVEY_ID"`

	// SurveyName is used to generate record names.
	// Env: APP_SURVEY_NAME
	SurveyName string `env:"SURVEY_NAME"`

	// XFormID and XFormURL are optional alternative form references sent to
	// the transform endpoints.
	XFormID  string `env:"XFORM_ID"`
	XFormURL string `env:"XFORM_URL"`

	// SupportEmail is shown in messages that ask the user to contact support.
	// Env: APP_SUPPORT_EMAIL
	SupportEmail string `env:"SUPPORT_EMAIL"`

	// Defaults maps instance node paths to default values applied to new
	// records, e.g. "/data/enumerator:alice".
	// Env: APP_DEFAULTS
	Defaults map[string]string `env:"DEFAULTS"`
}

// Adapter holds the server-of-record address and timeouts of outbound calls.
type Adapter struct {
	// ServerURL is the base URL of the server-of-record
	// (e.g. "http://localhost:8080").
	// Env: ADAPTER_SERVER_URL
	ServerURL string `env:"SERVER_URL"`

	// RequestTimeout bounds transform, hash, file and max-size calls.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// SubmissionTimeout bounds a single batch upload.
	// Env: ADAPTER_SUBMISSION_TIMEOUT
	SubmissionTimeout time.Duration `env:"SUBMISSION_TIMEOUT"`

	// ProbeTimeout bounds a single connectivity probe.
	// Env: ADAPTER_PROBE_TIMEOUT
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT"`

	// MaxSizeTimeout bounds the maximum submission size query.
	// Env: ADAPTER_MAX_SIZE_TIMEOUT
	MaxSizeTimeout time.Duration `env:"MAX_SIZE_TIMEOUT"`
}

// Storage groups the local store settings.
type Storage struct {
	// DB holds the SQLite connection settings.
	DB DB `envPrefix:"DB_"`

	// ForceEncoded skips the capability probe and stores every binary
	// payload as a data URI.
	// Env: STORAGE_FORCE_ENCODED
	ForceEncoded bool `env:"FORCE_ENCODED"`
}

// DB holds connection settings for the local SQLite database.
type DB struct {
	// DSN is the SQLite file path or ":memory:".
	// Env: STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Workers holds the schedules of the background jobs.
type Workers struct {
	FreshnessDelay       time.Duration `env:"FRESHNESS_DELAY"`
	FreshnessInterval    time.Duration `env:"FRESHNESS_INTERVAL"`
	UploadDelay          time.Duration `env:"UPLOAD_DELAY"`
	UploadInterval       time.Duration `env:"UPLOAD_INTERVAL"`
	ConnectivityInterval time.Duration `env:"CONNECTIVITY_INTERVAL"`
}

// Submission holds human-readable size ceilings such as "5MB".
type Submission struct {
	// DefaultMaxSize is used when the server does not report a ceiling.
	// Env: SUBMISSION_DEFAULT_MAX_SIZE
	DefaultMaxSize string `env:"DEFAULT_MAX_SIZE"`

	// AbsoluteMaxSize clamps any ceiling the server reports.
	// Env: SUBMISSION_ABSOLUTE_MAX_SIZE
	AbsoluteMaxSize string `env:"ABSOLUTE_MAX_SIZE"`
}

// Metrics holds the optional Prometheus listener.
type Metrics struct {
	// Address is the "host:port" of the /metrics listener. Empty disables it.
	// Env: METRICS_ADDRESS
	Address string `env:"ADDRESS"`
}

// Server holds the development server settings.
type Server struct {
	// HTTPAddress is the TCP address on which the HTTP server listens,
	// in "host:port" format (e.g. "0.0.0.0:8080").
	// Env: SERVER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`

	// FormsDir holds one directory per survey id with form.html, model.xml
	// and media files.
	// Env: SERVER_FORMS_DIR
	FormsDir string `env:"FORMS_DIR"`

	// MaxSize is the submission ceiling reported to clients.
	// Env: SERVER_MAX_SIZE
	MaxSize string `env:"MAX_SIZE"`

	// RequestTimeout is the maximum duration allowed for a single inbound
	// request before the server cancels it (e.g. "30s", "1m").
	// Env: SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// defaultConfig returns the built-in values every other source overrides.
func defaultConfig() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			SurveyName: "Survey",
		},
		Adapter: Adapter{
			ServerURL:         "http://localhost:8080",
			RequestTimeout:    30 * time.Second,
			SubmissionTimeout: 300 * time.Second,
			ProbeTimeout:      3 * time.Second,
			MaxSizeTimeout:    5 * time.Second,
		},
		Storage: Storage{
			DB: DB{DSN: "form-keeper.db"},
		},
		Workers: Workers{
			FreshnessDelay:       3 * time.Minute,
			FreshnessInterval:    20 * time.Minute,
			UploadDelay:          30 * time.Second,
			UploadInterval:       5 * time.Minute,
			ConnectivityInterval: 15 * time.Second,
		},
		Submission: Submission{
			DefaultMaxSize:  "5MB",
			AbsoluteMaxSize: "100MB",
		},
		Server: Server{
			HTTPAddress:    "localhost:8080",
			FormsDir:       "forms",
			MaxSize:        "5MB",
			RequestTimeout: 60 * time.Second,
		},
	}
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  1. Built-in defaults
//  2. Environment variables
//  3. Command-line flags
//  4. JSON file (path resolved from sources 2 and 3)
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withDefaults().
		withEnv().
		withFlags(args).
		withJSON().
		build()
}
