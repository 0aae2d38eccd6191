// Package schedule retrieves an event schedule and turns its records into
// canonical runs.
package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gdqcal/internal/models"
)

// Fetcher retrieves schedules over HTTP.
type Fetcher struct {
	client    *http.Client
	logger    *slog.Logger
	userAgent string
}

// NewFetcher creates a Fetcher with the given request timeout and User-Agent.
func NewFetcher(logger *slog.Logger, timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		userAgent: userAgent,
	}
}

// Fetch downloads and decodes the schedule at url. Every failure is returned
// as a *FetchError; nothing is retried.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*models.Schedule, error) {
	f.logger.Debug("Fetching schedule", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", resp.Status)}
	}

	var sched models.Schedule
	if err := json.NewDecoder(resp.Body).Decode(&sched); err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to decode schedule: %w", err)}
	}

	f.logger.Info("Fetched schedule", "event", sched.Event.Name, "records", len(sched.Records))
	return &sched, nil
}
