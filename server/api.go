package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	sectionviewer "github.com/always-cache/section-viewer"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

type itemState struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Group  string `json:"group,omitempty"`
	Active bool   `json:"active"`
}

type state struct {
	Current     string      `json:"current"`
	Initialized bool        `json:"initialized"`
	Items       []itemState `json:"items"`
	Content     string      `json:"content,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) snapshot(withContent bool) state {
	active := make(map[string]bool)
	for _, item := range s.viewer.Items() {
		active[item.ID] = item.Active
	}
	sections := s.viewer.Sections()
	st := state{
		Current:     s.viewer.CurrentSection(),
		Initialized: s.viewer.Initialized(),
		Items:       make([]itemState, len(sections)),
	}
	for i, sec := range sections {
		st.Items[i] = itemState{ID: sec.ID, Title: sec.Title, Group: sec.Group, Active: active[sec.ID]}
	}
	if withContent {
		st.Content = s.viewer.Content()
	}
	return st
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot(false))
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.viewer.NavigateTo(r.Context(), id); err != nil {
		s.viewerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(true))
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(s.viewer.Content()))
}

// handleFragment serves the raw fragment of a section through the loader.
func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, ok := s.viewer.Path(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no content for section "+id)
		return
	}
	res, err := s.viewer.Loader().Load(id, path).Wait(r.Context())
	if err != nil {
		// the client went away
		hlog.FromRequest(r).Debug().Err(err).Str("section", id).Msg("Fragment request abandoned")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Status", res.CacheStatus())
	w.Header().Set("Cache-Control", "no-store")
	w.Write([]byte(res.Content))
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.handleMove(w, r, s.viewer.Back)
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	s.handleMove(w, r, s.viewer.Forward)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request, move func(context.Context) (bool, error)) {
	moved, err := move(r.Context())
	if err != nil {
		s.viewerError(w, r, err)
		return
	}
	if !moved {
		writeError(w, http.StatusConflict, "no history entry")
		return
	}
	writeJSON(w, http.StatusOK, s.snapshot(true))
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	var key sectionviewer.Key
	if err := json.NewDecoder(r.Body).Decode(&key); err != nil {
		writeError(w, http.StatusBadRequest, "invalid key: "+err.Error())
		return
	}
	handled := s.viewer.HandleKey(r.Context(), key)
	writeJSON(w, http.StatusOK, struct {
		Handled bool `json:"handled"`
		state
	}{handled, s.snapshot(handled)})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.viewer.ClearAndReload(r.Context()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Reload after clearing cache failed")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.viewer.ClearCache(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) viewerError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, sectionviewer.ErrNotInitialized) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("Viewer error")
	writeError(w, http.StatusInternalServerError, err.Error())
}
