// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type StructuredJSONConfig struct {
	App struct {
		SurveyID     string            `json:"survey_id"`
		SurveyName   string            `json:"survey_name"`
		XFormID      string            `json:"xform_id"`
		XFormURL     string            `json:"xform_url"`
		SupportEmail string            `json:"support_email"`
		Defaults     map[string]string `json:"defaults"`
	} `json:"app,omitempty"`

	Adapter struct {
		ServerURL         string   `json:"server_url"`
		RequestTimeout    Duration `json:"request_timeout"`
		SubmissionTimeout Duration `json:"submission_timeout"`
		ProbeTimeout      Duration `json:"probe_timeout"`
		MaxSizeTimeout    Duration `json:"max_size_timeout"`
	} `json:"adapter,omitempty"`

	Storage struct {
		DB struct {
			DSN string `json:"dsn"`
		} `json:"db,omitempty"`
		ForceEncoded bool `json:"force_encoded"`
	} `json:"storage,omitempty"`

	Workers struct {
		FreshnessDelay       Duration `json:"freshness_delay"`
		FreshnessInterval    Duration `json:"freshness_interval"`
		UploadDelay          Duration `json:"upload_delay"`
		UploadInterval       Duration `json:"upload_interval"`
		ConnectivityInterval Duration `json:"connectivity_interval"`
	} `json:"workers,omitempty"`

	Submission struct {
		DefaultMaxSize  string `json:"default_max_size"`
		AbsoluteMaxSize string `json:"absolute_max_size"`
	} `json:"submission,omitempty"`

	Metrics struct {
		Address string `json:"address"`
	} `json:"metrics,omitempty"`

	Server struct {
		HTTPAddress    string   `json:"http_address"`
		FormsDir       string   `json:"forms_dir"`
		MaxSize        string   `json:"max_size"`
		RequestTimeout Duration `json:"request_timeout"`
	} `json:"server,omitempty"`
}

func parseJSON(jsonFilePath string) (*StructuredConfig, error) {
	jsonFile, err := os.Open(jsonFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading a json file: %w", err)
	}
	defer jsonFile.Close()

	var jsonCfg StructuredJSONConfig
	if err := json.NewDecoder(jsonFile).Decode(&jsonCfg); err != nil {
		return nil, fmt.Errorf("error decoding json configs: %w", err)
	}

	cfg := &StructuredConfig{
		App: App{
			SurveyID:     jsonCfg.App.SurveyID,
			SurveyName:   jsonCfg.App.SurveyName,
			XFormID:      jsonCfg.App.XFormID,
			XFormURL:     jsonCfg.App.XFormURL,
			SupportEmail: jsonCfg.App.SupportEmail,
			Defaults:     jsonCfg.App.Defaults,
		},
		Adapter: Adapter{
			ServerURL:         jsonCfg.Adapter.ServerURL,
			RequestTimeout:    time.Duration(jsonCfg.Adapter.RequestTimeout),
			SubmissionTimeout: time.Duration(jsonCfg.Adapter.SubmissionTimeout),
			ProbeTimeout:      time.Duration(jsonCfg.Adapter.ProbeTimeout),
			MaxSizeTimeout:    time.Duration(jsonCfg.Adapter.MaxSizeTimeout),
		},
		Storage: Storage{
			DB:           DB{DSN: jsonCfg.Storage.DB.DSN},
			ForceEncoded: jsonCfg.Storage.ForceEncoded,
		},
		Workers: Workers{
			FreshnessDelay:       time.Duration(jsonCfg.Workers.FreshnessDelay),
			FreshnessInterval:    time.Duration(jsonCfg.Workers.FreshnessInterval),
			UploadDelay:          time.Duration(jsonCfg.Workers.UploadDelay),
			UploadInterval:       time.Duration(jsonCfg.Workers.UploadInterval),
			ConnectivityInterval: time.Duration(jsonCfg.Workers.ConnectivityInterval),
		},
		Submission: Submission{
			DefaultMaxSize:  jsonCfg.Submission.DefaultMaxSize,
			AbsoluteMaxSize: jsonCfg.Submission.AbsoluteMaxSize,
		},
		Metrics: Metrics{Address: jsonCfg.Metrics.Address},
		Server: Server{
			HTTPAddress:    jsonCfg.Server.HTTPAddress,
			FormsDir:       jsonCfg.Server.FormsDir,
			MaxSize:        jsonCfg.Server.MaxSize,
			RequestTimeout: time.Duration(jsonCfg.Server.RequestTimeout),
		},
	}

	return cfg, nil
}

// Duration is a wrapper around time.Duration that supports JSON unmarshaling from strings like "1h", "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(tmp)
		return nil
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
