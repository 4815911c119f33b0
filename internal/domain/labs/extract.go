package labs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ErrExtractorDisabled is returned when no extraction endpoint is configured.
var ErrExtractorDisabled = errors.New("result extraction is not configured")

// ExtractedResult is one row the extraction service read out of a scanned
// lab report. It mirrors CreateRequest minus the collection date, which the
// client confirms before saving.
type ExtractedResult struct {
	TestName       string  `json:"test_name"`
	TestCode       string  `json:"test_code"`
	Value          string  `json:"value"`
	Unit           *string `json:"unit,omitempty"`
	ReferenceRange *string `json:"reference_range,omitempty"`
	Method         *string `json:"method,omitempty"`
}

// Extractor calls the external document-extraction service. The service is
// opaque to us: it takes the raw report and answers with structured rows.
type Extractor struct {
	url    string
	apiKey string
	client *http.Client
	logger zerolog.Logger
}

// NewExtractor creates an extraction client. An empty url disables it.
func NewExtractor(url, apiKey string, logger zerolog.Logger) *Extractor {
	return &Extractor{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger.With().Str("component", "extractor").Logger(),
	}
}

// Enabled reports whether an extraction endpoint is configured.
func (e *Extractor) Enabled() bool { return e != nil && e.url != "" }

// Extract sends a report to the extraction service and decodes the rows it
// found. Extraction of a document with no recognizable results yields an
// empty slice, not an error.
func (e *Extractor) Extract(ctx context.Context, content []byte, contentType string) ([]ExtractedResult, error) {
	if !e.Enabled() {
		return nil, ErrExtractorDisabled
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		e.logger.Warn().Int("status", resp.StatusCode).Bytes("body", body).Msg("extraction service error")
		return nil, fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	var results []ExtractedResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	e.logger.Debug().Int("results", len(results)).Dur("elapsed", time.Since(start)).Msg("report extracted")
	return results, nil
}
