// Package utils provides common utility functions.
package utils

import (
	"net/http"
	"time"
)

// HeaderTransport adds fixed headers to every outgoing request.
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers http.Header
}

// RoundTrip implements http.RoundTripper.
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	for key, values := range t.Headers {
		if clone.Header.Get(key) != "" {
			continue
		}

		for _, v := range values {
			clone.Header.Add(key, v)
		}
	}

	return base.RoundTrip(clone)
}

// BuildHeaders creates HTTP headers with defaults.
func BuildHeaders(userAgent string, customHeaders map[string]string) http.Header {
	headers := http.Header{}

	if userAgent == "" {
		userAgent = "ytrends-worker/1.0"
	}

	headers.Set("User-Agent", userAgent)
	headers.Set("Accept", "application/json")

	for key, value := range customHeaders {
		headers.Set(key, value)
	}

	return headers
}

// NewHTTPClient returns a client with a timeout whose requests carry headers.
func NewHTTPClient(timeout time.Duration, headers http.Header) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &HeaderTransport{
			Base:    http.DefaultTransport,
			Headers: headers,
		},
	}
}
