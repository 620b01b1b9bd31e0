// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MKhiriev/go-form-keeper/internal/config"
	"github.com/MKhiriev/go-form-keeper/internal/logger"
	"github.com/MKhiriev/go-form-keeper/internal/utils"
	"github.com/MKhiriev/go-form-keeper/models"
	"github.com/sethvargo/go-retry"
)

const (
	connectionPath    = "/connection"
	transformPath     = "/transform/xform"
	transformHashPath = "/transform/xform/hash"
	submissionPath    = "/submission/"
	maxSizePath       = "/submission/max-size/"

	// SubmissionFileField is the multipart part holding the instance XML.
	SubmissionFileField = "xml_submission_file"

	// LivenessMarker must appear in the probe response body.
	LivenessMarker = "connected"

	openRosaVersionHeader = "X-OpenRosa-Version"
	openRosaVersion       = "1.0"

	fileRetries      = 3
	fileRetryBackoff = 200 * time.Millisecond
)

type httpServerAdapter struct {
	client *utils.HTTPClient

	requestTimeout    time.Duration
	submissionTimeout time.Duration
	probeTimeout      time.Duration
	maxSizeTimeout    time.Duration

	now func() time.Time

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP implementation of [ServerAdapter].
// It normalises and validates the base URL from adapterCfg.ServerURL. Each
// endpoint class is bounded by its own timeout from adapterCfg, applied
// through the request context.
//
// Returns an error if adapterCfg.ServerURL is empty or cannot be parsed as a
// valid URL.
func NewHTTPServerAdapter(adapterCfg config.ClientAdapter, logger *logger.Logger) (ServerAdapter, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter server url: %w", err)
	}

	return &httpServerAdapter{
		client:            utils.NewHTTPClient(baseURL),
		requestTimeout:    adapterCfg.RequestTimeout,
		submissionTimeout: adapterCfg.SubmissionTimeout,
		probeTimeout:      adapterCfg.ProbeTimeout,
		maxSizeTimeout:    adapterCfg.MaxSizeTimeout,
		now:               time.Now,
		logger:            logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// GetFormParts implements [ServerAdapter]. It POSTs the survey reference as
// form data to POST /transform/xform and decodes the JSON response. A
// response missing the form, the model or the hash yields
// [ErrIncompleteFormParts].
func (h *httpServerAdapter) GetFormParts(ctx context.Context, ref models.SurveyRef) (models.FormParts, error) {
	ctx, cancel := withTimeout(ctx, h.requestTimeout)
	defer cancel()

	resp, err := h.client.R().
		SetContext(ctx).
		SetFormData(refFormData(ref)).
		Post(transformPath)
	if err != nil {
		return models.FormParts{}, fmt.Errorf("get form parts request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.FormParts{}, err
	}

	var parts models.FormParts
	if err = json.Unmarshal(resp.Body(), &parts); err != nil {
		return models.FormParts{}, fmt.Errorf("decode form parts response: %w", err)
	}

	if parts.Form == "" || parts.Model == "" || parts.Hash == "" {
		return models.FormParts{}, fmt.Errorf("%w: survey %s", ErrIncompleteFormParts, ref.ID)
	}

	return parts, nil
}

// GetFormPartsHash implements [ServerAdapter]. It POSTs the survey id to
// POST /transform/xform/hash and returns the hash field of the response.
func (h *httpServerAdapter) GetFormPartsHash(ctx context.Context, ref models.SurveyRef) (string, error) {
	ctx, cancel := withTimeout(ctx, h.requestTimeout)
	defer cancel()

	resp, err := h.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"enketoId": ref.ID}).
		Post(transformHashPath)
	if err != nil {
		return "", fmt.Errorf("get form parts hash request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return "", err
	}

	var result struct {
		Hash string `json:"hash"`
	}
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("decode form parts hash response: %w", err)
	}

	if result.Hash == "" {
		return "", fmt.Errorf("%w: survey %s", ErrEmptyHash, ref.ID)
	}

	return result.Hash, nil
}

// GetFile implements [ServerAdapter]. Transport errors and retryable statuses
// (5xx, 408, 429) are retried with exponential backoff; any other non-2xx
// status fails immediately.
func (h *httpServerAdapter) GetFile(ctx context.Context, fileURL string) (models.Blob, error) {
	log := logger.FromContext(ctx)

	ctx, cancel := withTimeout(ctx, h.requestTimeout)
	defer cancel()

	var blob models.Blob
	backoff := retry.WithMaxRetries(fileRetries, retry.NewExponential(fileRetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := h.client.R().
			SetContext(ctx).
			Get(fileURL)
		if err != nil {
			log.Debug().Err(err).Str("url", fileURL).Msg("file download attempt failed")
			return retry.RetryableError(fmt.Errorf("get file request: %w", err))
		}
		if err = mapHTTPError(resp); err != nil {
			if isRetryable(resp) {
				return retry.RetryableError(err)
			}
			return err
		}

		blob = models.Blob{
			MIMEType: mediaType(resp.Header().Get("Content-Type")),
			Data:     resp.Body(),
		}
		return nil
	})
	if err != nil {
		return models.Blob{}, err
	}

	return blob, nil
}

// Submit implements [ServerAdapter]. It POSTs the batch as multipart form data
// to POST /submission/{surveyID} with the OpenRosa version header. Non-2xx
// statuses are not errors: the status code is returned for classification.
func (h *httpServerAdapter) Submit(ctx context.Context, batch models.Batch) (int, error) {
	if !batch.IsComplete() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidBatch, batch.InstanceID)
	}

	ctx, cancel := withTimeout(ctx, h.submissionTimeout)
	defer cancel()

	req := h.client.R().
		SetContext(ctx).
		SetHeader(openRosaVersionHeader, openRosaVersion).
		SetMultipartField(SubmissionFileField, SubmissionFileField+".xml", "text/xml", strings.NewReader(batch.XML)).
		SetMultipartFormData(map[string]string{
			"Date": h.now().UTC().Format(http.TimeFormat),
		})

	for _, f := range batch.Files {
		req.SetMultipartField(f.FieldName, f.FileName, f.Item.MIMEType, bytes.NewReader(f.Item.Data))
	}

	resp, err := req.Post(submissionPath + url.PathEscape(batch.SurveyID))
	if err != nil {
		h.logger.Err(err).
			Str("func", "httpServerAdapter.Submit").
			Str("instance_id", batch.InstanceID).
			Int("batch_index", batch.BatchIndex).
			Msg("submission transport failure")
		return 0, fmt.Errorf("submit request: %w", err)
	}

	return resp.StatusCode(), nil
}

// GetMaximumSubmissionSize implements [ServerAdapter]. It GETs
// /submission/max-size/{surveyID}. The maxSize field may be a JSON number or
// a numeric string.
func (h *httpServerAdapter) GetMaximumSubmissionSize(ctx context.Context, ref models.SurveyRef) (int64, error) {
	ctx, cancel := withTimeout(ctx, h.maxSizeTimeout)
	defer cancel()

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(maxSizePath + url.PathEscape(ref.ID))
	if err != nil {
		return 0, fmt.Errorf("get max submission size request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return 0, err
	}

	return parseMaxSize(resp.Body())
}

// CheckConnection implements [ServerAdapter]. Any response whose body does
// not contain the liveness marker (a captive portal, a cached fallback page)
// counts as offline.
func (h *httpServerAdapter) CheckConnection(ctx context.Context) (bool, error) {
	ctx, cancel := withTimeout(ctx, h.probeTimeout)
	defer cancel()

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Cache-Control", "no-cache").
		Get(connectionPath)
	if err != nil {
		return false, fmt.Errorf("check connection request: %w", err)
	}

	return resp.IsSuccess() && strings.Contains(string(resp.Body()), LivenessMarker), nil
}

func refFormData(ref models.SurveyRef) map[string]string {
	data := map[string]string{"enketoId": ref.ID}
	if ref.ServerURL != "" {
		data["serverUrl"] = ref.ServerURL
	}
	if ref.XFormID != "" {
		data["xformId"] = ref.XFormID
	}
	if ref.XFormURL != "" {
		data["xformUrl"] = ref.XFormURL
	}
	return data
}

func parseMaxSize(body []byte) (int64, error) {
	var result struct {
		MaxSize json.RawMessage `json:"maxSize"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidMaxSize, err)
	}

	raw := strings.Trim(strings.TrimSpace(string(result.MaxSize)), `"`)
	if raw == "" || raw == "null" {
		return 0, ErrInvalidMaxSize
	}

	size, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxSize, raw)
	}
	if !(size >= 1) || math.IsInf(size, 1) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMaxSize, raw)
	}
	if size >= math.MaxInt64 {
		return math.MaxInt64, nil
	}

	return int64(size), nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(mt)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// IsNotFound reports whether err signals a survey or file missing on the
// server.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
