package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherResolvesAgainstBase(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()
	base, err := url.Parse(srv.URL + "/site")
	require.NoError(t, err)

	content, err := NewHTTPFetcher(*base, srv.Client()).Fetch(context.Background(), "content/home.html?v=abc")
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", content)
	assert.Equal(t, "/site/content/home.html", gotPath)
	assert.Equal(t, "v=abc", gotQuery)
}

func TestHTTPFetcherReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	base, _ := url.Parse(srv.URL)

	_, err := NewHTTPFetcher(*base, nil).Fetch(context.Background(), "content/home.html")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, "retrieving content/home.html: status 500 Internal Server Error", err.Error())
}

func TestDirFetcher(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "content"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content", "bab1.html"), []byte("<h2>Bab 1</h2>"), 0o644))
	f := NewDirFetcher(dir)

	content, err := f.Fetch(context.Background(), "content/bab1.html?v=123")
	require.NoError(t, err)
	assert.Equal(t, "<h2>Bab 1</h2>", content)

	_, err = f.Fetch(context.Background(), "/content/nope.html")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestHandlerFetcherHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := NewHandlerFetcher(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		w.Write([]byte("late"))
	}))

	_, err := f.Fetch(ctx, "content/home.html")
	assert.ErrorIs(t, err, context.Canceled)
}
