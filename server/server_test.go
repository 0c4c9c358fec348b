package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sectionviewer "github.com/always-cache/section-viewer"
	"github.com/always-cache/section-viewer/loader"
	"github.com/always-cache/section-viewer/navigation"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = zerolog.Nop()

func newTestServer(t *testing.T, initialize bool) (*httptest.Server, *Server, *sectionviewer.Viewer) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"content/home.html": "<h2>Home</h2>",
		"content/bab1.html": "<h2>Bab 1</h2>",
		"content/bab2.html": "<h2>Bab 2</h2>",
	} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	viewer, err := sectionviewer.CreateViewer(sectionviewer.Config{
		Sections: []sectionviewer.Section{
			{ID: "home", Path: "content/home.html", Title: "Home", Group: "Gambaran Umum"},
			{ID: "bab1", Path: "content/bab1.html", Title: "Bab 1", Group: "Bagian Utama"},
			{ID: "bab2", Path: "content/bab2.html", Title: "Bab 2", Group: "Bagian Utama"},
			{ID: "gone", Path: "content/gone.html", Title: "Gone", Group: "Bagian Utama"},
		},
		Fetcher:       loader.NewDirFetcher(dir),
		Preload:       []string{"home"},
		EnablePreload: true,
		Logger:        &quiet,
	})
	require.NoError(t, err)
	t.Cleanup(viewer.Close)
	if initialize {
		require.NoError(t, viewer.Initialize(context.Background()))
	}

	s := New(Config{ContentDir: dir, Title: "Metpen", Logger: &quiet}, viewer)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, s, viewer
}

func do(t *testing.T, method, url string, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode(t *testing.T, res *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}

func TestHealthz(t *testing.T) {
	ts, _, _ := newTestServer(t, false)
	res := do(t, http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, readBody(t, res))
}

func TestShellPage(t *testing.T) {
	ts, _, _ := newTestServer(t, true)
	res := do(t, http.MethodGet, ts.URL+"/", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := readBody(t, res)

	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "<title>Metpen</title>")
	assert.Contains(t, body, `<div class="nav-group">Bagian Utama</div>`)
	assert.Contains(t, body, `<a class="nav-item active" href="#home" data-section="home">Home</a>`)
	assert.Contains(t, body, `data-section="bab1">Bab 1</a>`)
	assert.NotContains(t, body, "<h2>Home</h2>", "the shell never carries section content")
}

func TestStateAndNavigate(t *testing.T) {
	ts, _, _ := newTestServer(t, true)

	var st state
	decode(t, do(t, http.MethodGet, ts.URL+"/api/state", ""), &st)
	assert.Equal(t, "home", st.Current)
	assert.True(t, st.Initialized)
	require.Len(t, st.Items, 4)
	assert.Equal(t, itemState{ID: "home", Title: "Home", Group: "Gambaran Umum", Active: true}, st.Items[0])

	res := do(t, http.MethodPost, ts.URL+"/api/navigate/bab1", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	decode(t, res, &st)
	assert.Equal(t, "bab1", st.Current)
	assert.Contains(t, st.Content, "<h2>Bab 1</h2>")
	assert.True(t, st.Items[1].Active)
	assert.False(t, st.Items[0].Active)

	assert.Contains(t, readBody(t, do(t, http.MethodGet, ts.URL+"/api/content", "")), "<h2>Bab 1</h2>")
}

func TestNavigateBeforeInitialize(t *testing.T) {
	ts, _, _ := newTestServer(t, false)
	res := do(t, http.MethodPost, ts.URL+"/api/navigate/bab1", "")
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestNavigateToMissingFragment(t *testing.T) {
	ts, _, _ := newTestServer(t, true)
	var st state
	decode(t, do(t, http.MethodPost, ts.URL+"/api/navigate/gone", ""), &st)
	assert.Equal(t, "gone", st.Current)
	assert.Contains(t, st.Content, "Content Unavailable")
}

func TestFragment(t *testing.T) {
	ts, _, viewer := newTestServer(t, true)

	res := do(t, http.MethodGet, ts.URL+"/api/fragments/bab2", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "SectionViewer; fwd=uri-miss; stored", res.Header.Get("Cache-Status"))
	assert.Equal(t, "<h2>Bab 2</h2>", readBody(t, res))
	assert.True(t, viewer.Loader().Cached("bab2"))

	res = do(t, http.MethodGet, ts.URL+"/api/fragments/bab2", "")
	assert.Equal(t, "SectionViewer; hit", res.Header.Get("Cache-Status"))

	res = do(t, http.MethodGet, ts.URL+"/api/fragments/gone", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "SectionViewer; fwd=uri-miss; detail=fallback", res.Header.Get("Cache-Status"))

	res = do(t, http.MethodGet, ts.URL+"/api/fragments/nowhere", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHistory(t *testing.T) {
	ts, _, viewer := newTestServer(t, true)
	do(t, http.MethodPost, ts.URL+"/api/navigate/bab1", "")
	do(t, http.MethodPost, ts.URL+"/api/navigate/bab2", "")

	var st state
	decode(t, do(t, http.MethodPost, ts.URL+"/api/history/back", ""), &st)
	assert.Equal(t, "bab1", st.Current)
	assert.Contains(t, st.Content, "<h2>Bab 1</h2>")

	decode(t, do(t, http.MethodPost, ts.URL+"/api/history/forward", ""), &st)
	assert.Equal(t, "bab2", st.Current)
	assert.Equal(t, "#bab2", viewer.Address().Fragment())

	res := do(t, http.MethodPost, ts.URL+"/api/history/forward", "")
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestKeys(t *testing.T) {
	ts, _, _ := newTestServer(t, true)
	do(t, http.MethodPost, ts.URL+"/api/navigate/bab1", "")

	var res struct {
		Handled bool   `json:"handled"`
		Current string `json:"current"`
	}
	decode(t, do(t, http.MethodPost, ts.URL+"/api/keys", `{"key":"Home"}`), &res)
	assert.False(t, res.Handled)
	assert.Equal(t, "bab1", res.Current)

	decode(t, do(t, http.MethodPost, ts.URL+"/api/keys", `{"key":"Home","meta":true}`), &res)
	assert.True(t, res.Handled)
	assert.Equal(t, "home", res.Current)

	bad := do(t, http.MethodPost, ts.URL+"/api/keys", `{"key":`)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestClearCache(t *testing.T) {
	ts, _, viewer := newTestServer(t, true)
	do(t, http.MethodGet, ts.URL+"/api/fragments/bab1", "")
	require.Equal(t, []string{"bab1", "home"}, viewer.Loader().Keys())

	res := do(t, http.MethodDelete, ts.URL+"/api/cache/bab1", "")
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, []string{"home"}, viewer.Loader().Keys())

	res = do(t, http.MethodDelete, ts.URL+"/api/cache", "")
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Equal(t, []string{"home"}, viewer.Loader().Keys(), "the current section is reloaded")
}

func TestContentFiles(t *testing.T) {
	ts, _, _ := newTestServer(t, false)
	res := do(t, http.MethodGet, ts.URL+"/content/bab1.html", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "<h2>Bab 1</h2>", readBody(t, res))
}

func TestEvents(t *testing.T) {
	ts, s, _ := newTestServer(t, true)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool { return s.events.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	do(t, http.MethodPost, ts.URL+"/api/navigate/bab1", "")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var change navigation.Change
	require.NoError(t, conn.ReadJSON(&change))
	assert.Equal(t, navigation.Change{ID: "bab1", PreviousID: "home"}, change)

	require.NoError(t, s.Shutdown(context.Background()))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestGroups(t *testing.T) {
	got := groups([]itemState{
		{ID: "home", Group: "A"},
		{ID: "bab1", Group: "B"},
		{ID: "bab2", Group: "B"},
		{ID: "extra"},
	})
	require.Len(t, got, 3)
	assert.Len(t, got[1].Items, 2)
	assert.Equal(t, "", got[2].Name)
}
