// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"github.com/go-resty/resty/v2"
)

// UserAgent is sent with every request of the offline client.
const UserAgent = "go-form-keeper"

// HTTPClient is a wrapper around the resty.Client HTTP client.
// It embeds *resty.Client to expose all of its methods directly.
//
// Example usage:
//
//	client := utils.NewHTTPClient("http://localhost:8080")
//	resp, err := client.R().Get("/connection")
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient creates an HTTPClient bound to baseURL. Relative request
// paths are resolved against it; absolute URLs are used as is.
//
// Each call returns an independent client instance with its own
// configuration, connection pool, and state. No client-wide timeout is set:
// callers bound every request through its context.
func NewHTTPClient(baseURL string) *HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", UserAgent)

	return &HTTPClient{Client: client}
}
