package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single document fetch.
	DefaultTimeout = 15 * time.Second
	// MaxDocumentBytes caps the size of a risks document.
	MaxDocumentBytes = 8 << 20
)

// ErrDocumentTooLarge reports a document above MaxDocumentBytes.
var ErrDocumentTooLarge = fmt.Errorf("schema: document exceeds %d bytes", MaxDocumentBytes)

// FetchOption customizes Fetch.
type FetchOption func(*fetcher)

type fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// WithHTTPClient overrides the client used for http(s) sources.
func WithHTTPClient(client *http.Client) FetchOption {
	return func(f *fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) FetchOption {
	return func(f *fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// Fetch reads the document from an http(s) URL, a file:// URL or a local path.
// There is no retry; a failure is reported once as a *SchemaError.
func Fetch(ctx context.Context, source string, opts ...FetchOption) ([]byte, error) {
	f := &fetcher{client: http.DefaultClient, timeout: DefaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, &SchemaError{Op: "fetch", Err: fmt.Errorf("no source configured")}
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.fetchHTTP(ctx, source)
	}
	path := strings.TrimPrefix(source, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SchemaError{Op: "read", Source: source, Err: err}
	}
	if len(data) > MaxDocumentBytes {
		return nil, &SchemaError{Op: "read", Source: source, Err: ErrDocumentTooLarge}
	}
	return data, nil
}

func (f *fetcher) fetchHTTP(ctx context.Context, url string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &SchemaError{Op: "fetch", Source: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &SchemaError{Op: "fetch", Source: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &SchemaError{Op: "fetch", Source: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentBytes+1))
	if err != nil {
		return nil, &SchemaError{Op: "fetch", Source: url, Err: err}
	}
	if len(data) > MaxDocumentBytes {
		return nil, &SchemaError{Op: "fetch", Source: url, Err: ErrDocumentTooLarge}
	}
	return data, nil
}

// Open fetches and loads the document at source.
func Open(ctx context.Context, source string, opts ...FetchOption) (*Schema, error) {
	data, err := Fetch(ctx, source, opts...)
	if err != nil {
		return nil, err
	}
	s, err := Load(data)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) && se.Source == "" {
			se.Source = source
		}
		return nil, err
	}
	return s, nil
}
