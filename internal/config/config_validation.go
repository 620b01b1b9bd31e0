// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"net/url"
	"strings"
)

// validate checks that the final merged [StructuredConfig] satisfies the
// invariants shared by both binaries. Binary-specific rules live on
// [ClientConfig] and [ServerConfig].
func (cfg *StructuredConfig) validate() error {
	if cfg.Submission.DefaultMaxSize == "" || cfg.Submission.AbsoluteMaxSize == "" {
		return ErrInvalidSubmissionConfigs
	}

	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, "memory") {
		return ErrInvalidStorageConfigs
	}

	u, err := url.Parse(cfg.Adapter.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidAdapterConfigs
	}
	if cfg.Adapter.RequestTimeout <= 0 || cfg.Adapter.SubmissionTimeout <= 0 ||
		cfg.Adapter.ProbeTimeout <= 0 || cfg.Adapter.MaxSizeTimeout <= 0 {
		return ErrInvalidAdapterConfigs
	}

	w := cfg.Workers
	if w.FreshnessDelay <= 0 || w.FreshnessInterval <= 0 || w.UploadDelay <= 0 ||
		w.UploadInterval <= 0 || w.ConnectivityInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Submission.DefaultMaxSize <= 0 || cfg.Submission.AbsoluteMaxSize < cfg.Submission.DefaultMaxSize {
		return ErrInvalidSubmissionConfigs
	}

	if cfg.App.SurveyID == "" {
		return ErrInvalidAppConfigs
	}

	return nil
}

func (cfg *ServerConfig) validate() error {
	if cfg.Address == "" || cfg.FormsDir == "" || cfg.MaxSize <= 0 || cfg.RequestTimeout <= 0 {
		return ErrInvalidServerConfigs
	}

	return nil
}
