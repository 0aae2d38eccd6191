// Package publish uploads written calendar documents to a WebDAV collection,
// so subscribers can follow a stable URL.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/emersion/go-webdav"
)

// basicAuthTransport adds Basic Auth and a User-Agent to every request.
type basicAuthTransport struct {
	Username  string
	Password  string
	UserAgent string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.Username != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", t.UserAgent)
	return t.Transport.RoundTrip(req)
}

// Publisher writes documents into one WebDAV collection.
type Publisher struct {
	client   *webdav.Client
	logger   *slog.Logger
	endpoint string
}

// NewPublisher creates a Publisher for the collection at endpoint.
func NewPublisher(logger *slog.Logger, endpoint, username, password, userAgent string) (*Publisher, error) {
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  username,
		Password:  password,
		UserAgent: userAgent,
		Transport: http.DefaultTransport,
	}}

	client, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}
	return &Publisher{client: client, logger: logger, endpoint: endpoint}, nil
}

// Publish uploads data as name inside the collection, replacing any
// previous version.
func (p *Publisher) Publish(ctx context.Context, name string, data []byte) error {
	w, err := p.client.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to start upload of %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}

	p.logger.Info("Published document", "name", name, "endpoint", p.endpoint, "bytes", len(data))
	return nil
}
