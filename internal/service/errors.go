// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import "errors"

var (
	ErrInvalidBatch     = errors.New("invalid batch")
	ErrUploadInProgress = errors.New("upload is already in progress")
	ErrOffline          = errors.New("server is not reachable")
	ErrSurveyNotFound   = errors.New("survey not found")
	ErrFormIncomplete   = errors.New("form is incomplete")
	ErrUploadCancelled  = errors.New("upload cancelled")
)
