package catalog

import (
	"net/http"
	"time"

	"github.com/dtroode/moviecat/internal/logger"
)

// LoggingTransport is an http.RoundTripper that logs catalog requests and
// their results. The API key is never logged.
type LoggingTransport struct {
	next   http.RoundTripper
	logger *logger.Logger
}

// NewLoggingTransport wraps next. A nil next means http.DefaultTransport.
func NewLoggingTransport(next http.RoundTripper, logger *logger.Logger) *LoggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &LoggingTransport{next: next, logger: logger}
}

// RoundTrip logs method, redacted query, duration and status for each request.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	query := redact(req)

	t.logger.Debug("Catalog request started",
		"method", req.Method,
		"query", query)

	resp, err := t.next.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger.Debug("Catalog request failed",
			"method", req.Method,
			"query", query,
			"duration_ms", duration.Milliseconds(),
			"error", err.Error())
		return nil, err
	}

	t.logger.Debug("Catalog request completed",
		"method", req.Method,
		"query", query,
		"duration_ms", duration.Milliseconds(),
		"status", resp.StatusCode)

	return resp, nil
}

func redact(req *http.Request) string {
	q := req.URL.Query()
	if q.Has("apikey") {
		q.Set("apikey", "REDACTED")
	}
	return q.Encode()
}
