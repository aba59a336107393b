package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/workspace"
)

// SessionHandler exposes the tab workspace over HTTP. Every response carries
// the full session state so a client can render the tab bar from any reply.
type SessionHandler struct {
	ws *workspace.Workspace
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(ws *workspace.Workspace) *SessionHandler {
	return &SessionHandler{ws: ws}
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ws.Snapshot())
}

// Open handles POST /api/session/open. With new_tab set the note opens in a
// fresh tab (or focuses its existing one); otherwise it replaces the active
// tab's content.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path   string `json:"path"`
		NewTab bool   `json:"new_tab"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	sess, err := h.ws.OpenNote(r.Context(), req.Path, req.NewTab)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("open note failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Close handles POST /api/session/close. Without an index it closes the
// active tab.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Index != nil {
		writeJSON(w, http.StatusOK, h.ws.CloseTab(*req.Index))
		return
	}
	writeJSON(w, http.StatusOK, h.ws.CloseActive())
}

// Activate handles POST /api/session/activate.
func (h *SessionHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	writeJSON(w, http.StatusOK, h.ws.Activate(req.Index))
}

// Edit handles POST /api/session/edit. It stages unsaved content on the
// note's tab; nothing touches disk until save.
func (h *SessionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.ws.Edit(req.Path, req.Content))
}

// Scroll handles POST /api/session/scroll.
func (h *SessionHandler) Scroll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path     string `json:"path"`
		Position int    `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.ws.SetScroll(req.Path, req.Position))
}

// Save handles POST /api/session/save. Without a path it saves the active
// tab.
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	var err error
	if req.Path != "" {
		err = h.ws.Save(r.Context(), req.Path)
	} else {
		err = h.ws.SaveActive(r.Context())
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("save failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, h.ws.Snapshot())
}

// Action handles POST /api/session/action, the keyboard shortcut dispatch
// endpoint.
func (h *SessionHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("action is required"))
		return
	}
	if err := h.ws.Dispatch(r.Context(), req.Action); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusOK, h.ws.Snapshot())
}
