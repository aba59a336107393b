package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
)

func folderPath(r *http.Request) string {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// RenameNote handles POST /api/notes/rename.
//
//	@Summary		Rename a note, keeping its folder
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameNoteRequest	true	"Note path and new name"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/rename [post]
func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path    string `json:"path"`
		NewName string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" || req.NewName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and new_name are required"))
		return
	}
	note, err := h.svc.RenameNote(r.Context(), req.Path, req.NewName)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("a note with that name already exists"))
		default:
			slog.Error("rename note failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// MoveNote handles POST /api/notes/move.
//
//	@Summary		Move a note into another folder
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveNoteRequest	true	"Note path and destination folder"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/move [post]
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path   string `json:"path"`
		Folder string `json:"folder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.MoveNote(r.Context(), req.Path, req.Folder)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("move note failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// FindNote handles GET /api/find.
//
//	@Summary		Find a note by name, case-insensitively
//	@Tags			notes
//	@Produce		json
//	@Param			name	query		string	true	"Note name, with or without .md"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/find [get]
func (h *Handler) FindNote(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'name' is required"))
		return
	}
	note, err := h.svc.FindByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("find note failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Backlinks handles GET /api/backlinks. It returns the notes linking to the
// given path; the same list is embedded in single-note responses.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("path")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), target)
	if err != nil {
		slog.Error("backlinks failed", slog.String("path", target), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if bl == nil {
		bl = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": bl})
}

// OutgoingLinks handles GET /api/outgoing-links. It returns the notes the
// given path links to, the mirror of Backlinks.
func (h *Handler) OutgoingLinks(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("path")
	if source == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	links, err := h.svc.OutgoingLinks(r.Context(), source)
	if err != nil {
		slog.Error("outgoing links failed", slog.String("path", source), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if links == nil {
		links = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

// LocalGraph handles GET /api/graph/local. It returns the link neighborhood
// of one note for a note-centered graph view.
func (h *Handler) LocalGraph(w http.ResponseWriter, r *http.Request) {
	notePath := r.URL.Query().Get("path")
	if notePath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	nodes, links, err := h.svc.LocalGraph(r.Context(), notePath)
	if err != nil {
		slog.Error("local graph failed", slog.String("path", notePath), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}

// Blocks handles GET /api/blocks. It lists the addressable headings of a
// note, for [[note#block-id]] link completion.
func (h *Handler) Blocks(w http.ResponseWriter, r *http.Request) {
	notePath := r.URL.Query().Get("path")
	if notePath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	blocks, err := h.svc.Blocks(r.Context(), notePath)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("blocks failed", slog.String("path", notePath), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	if blocks == nil {
		blocks = []parser.Block{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocks": blocks})
}

// Transclusion handles GET /api/transclusion. It resolves an embed link
// ("name" or "name#block-id") to the content it stands for.
func (h *Handler) Transclusion(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("link")
	if link == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'link' is required"))
		return
	}
	tr, err := h.svc.ResolveTransclusion(r.Context(), link)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("transclusion failed", slog.String("link", link), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// ListFolders handles GET /api/folders.
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.Folders(r.Context())
	if err != nil {
		slog.Error("list folders failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if folders == nil {
		folders = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// CreateFolder handles POST /api/folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.CreateFolder(r.Context(), req.Path); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("folder already exists"))
		} else {
			slog.Error("create folder failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// FolderContents handles GET /api/folders/*. It returns the notes a delete
// would remove, for the confirmation step.
func (h *Handler) FolderContents(w http.ResponseWriter, r *http.Request) {
	folder := folderPath(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folder path is required"))
		return
	}
	contents, err := h.svc.FolderContents(r.Context(), folder)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if contents == nil {
		contents = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": contents})
}

// DeleteFolder handles DELETE /api/folders/*.
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	folder := folderPath(r)
	if folder == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folder path is required"))
		return
	}
	if err := h.svc.DeleteFolder(r.Context(), folder); err != nil {
		slog.Error("delete folder failed", slog.String("folder", folder), slog.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameFolder handles POST /api/folders/rename.
func (h *Handler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path    string `json:"path"`
		NewName string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" || req.NewName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and new_name are required"))
		return
	}
	newFolder, err := h.svc.RenameFolder(r.Context(), req.Path, req.NewName)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("a folder with that name already exists"))
		default:
			slog.Error("rename folder failed", slog.String("folder", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folder": newFolder})
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		slog.Error("list tags failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// NotesByTag handles GET /api/tags/{tag}.
func (h *Handler) NotesByTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	paths, err := h.svc.NotesByTag(r.Context(), tag)
	if err != nil {
		slog.Error("notes by tag failed", slog.String("tag", tag), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if paths == nil {
		paths = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": paths})
}

// ListTodos handles GET /api/todos.
func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	includeDone := r.URL.Query().Get("include_done") == "true"
	todos, err := h.svc.Todos(r.Context(), includeDone)
	if err != nil {
		slog.Error("list todos failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"todos": todos})
}

// ToggleTodo handles POST /api/todos/toggle.
func (h *Handler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
		Line int    `json:"line"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" || req.Line < 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("path and line are required"))
		return
	}
	note, err := h.svc.ToggleTodo(r.Context(), req.Path, req.Line)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("toggle todo failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DailyNote handles GET /api/daily. It returns today's daily note, creating
// it on first access.
func (h *Handler) DailyNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.DailyNote(r.Context(), time.Now())
	if err != nil {
		slog.Error("daily note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// RecentNotes handles GET /api/recent.
func (h *Handler) RecentNotes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notes": h.svc.RecentNotes(r.Context())})
}
