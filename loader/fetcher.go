package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	recorder "github.com/always-cache/section-viewer/pkg/response-recorder"
)

// Fetcher retrieves the fragment at a path.
// A non-success status must be reported as an error, preferably a *StatusError.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, path string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// StatusError is a retrieval that completed with a non-success status.
type StatusError struct {
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("retrieving %s: status %d %s", e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

func success(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// HTTPFetcher retrieves fragments from a content origin over HTTP.
// Paths are resolved relative to the origin base URL.
type HTTPFetcher struct {
	base   url.URL
	client *http.Client
}

// NewHTTPFetcher creates a fetcher for the given origin.
// The default HTTP client is used if client is nil.
func NewHTTPFetcher(base url.URL, client *http.Client) *HTTPFetcher {
	// relative paths resolve against the base directory, not its last segment
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{base: base, client: client}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing path %s: %w", path, err)
	}
	uri := h.base.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request for %s: %w", uri, err)
	}
	req.Header.Set("Accept", "text/html, text/markdown;q=0.9, */*;q=0.1")

	res, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("retrieving %s: %w", uri, err)
	}
	defer res.Body.Close()
	if !success(res.StatusCode) {
		io.Copy(io.Discard, res.Body)
		return "", &StatusError{Path: path, StatusCode: res.StatusCode}
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", uri, err)
	}
	return string(body), nil
}

// HandlerFetcher retrieves fragments by serving them through an in-process
// http.Handler, e.g. a file server over the content directory.
type HandlerFetcher struct {
	handler http.Handler
}

func NewHandlerFetcher(handler http.Handler) *HandlerFetcher {
	return &HandlerFetcher{handler: handler}
}

// NewDirFetcher serves fragments from a directory on disk.
func NewDirFetcher(dir string) *HandlerFetcher {
	return NewHandlerFetcher(http.FileServer(http.Dir(dir)))
}

func (h *HandlerFetcher) Fetch(ctx context.Context, path string) (string, error) {
	target := path
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("creating request for %s: %w", path, err)
	}
	rs := recorder.NewResponseSaver()
	h.handler.ServeHTTP(rs, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !rs.Success() {
		return "", &StatusError{Path: path, StatusCode: rs.StatusCode()}
	}
	return string(rs.Body()), nil
}
