// Package ingest fetches the animal speed CSV and normalizes its rows.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultFetchTimeout = 30 * time.Second

// Source opens the raw CSV document.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Location names the document for logs.
	Location() string
}

// NewSource returns an HTTPSource for http(s) locations and a FileSource otherwise.
func NewSource(location string, client *http.Client) Source {
	l := strings.ToLower(location)
	if strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") {
		return NewHTTPSource(location, client)
	}
	return FileSource{Path: location}
}

// FileSource reads a local CSV file.
type FileSource struct {
	Path string
}

// Open opens the file.
func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return f, nil
}

// Location returns the file path.
func (s FileSource) Location() string { return s.Path }

// HTTPSource downloads the CSV over HTTP.
type HTTPSource struct {
	URL    string
	client *http.Client
}

// NewHTTPSource creates an HTTPSource. A nil client gets a default with a timeout.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &HTTPSource{URL: url, client: client}
}

// Open issues a GET and returns the body for 2xx responses.
func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if resp.StatusCode/100 != 2 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, s.URL, resp.Status)
	}
	return resp.Body, nil
}

// Location returns the URL.
func (s *HTTPSource) Location() string { return s.URL }
