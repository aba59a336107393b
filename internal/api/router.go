package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// ws, if non-nil, mounts the tab session endpoints.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// vaultRoot is used to resolve the attachments directory.
func NewRouter(svc *noteservice.Service, ws *workspace.Workspace, authEnabled bool, token string, sseHandler http.Handler, vaultRoot string) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(vaultRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD. The fixed-path POST routes come before the wildcard.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/rename", h.RenameNote)
	r.Post("/notes/move", h.MoveNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.UpdateNote)
	r.Delete("/notes/*", h.DeleteNote)

	// Name lookup.
	r.Get("/find", h.FindNote)

	// Folders. GET on a folder path lists what a delete would remove.
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.CreateFolder)
	r.Post("/folders/rename", h.RenameFolder)
	r.Get("/folders/*", h.FolderContents)
	r.Delete("/folders/*", h.DeleteFolder)

	// Search.
	r.Get("/search", h.Search)

	// Graph and links.
	r.Get("/graph", h.Graph)
	r.Get("/graph/local", h.LocalGraph)
	r.Get("/backlinks", h.Backlinks)
	r.Get("/outgoing-links", h.OutgoingLinks)

	// Block references and transclusion.
	r.Get("/blocks", h.Blocks)
	r.Get("/transclusion", h.Transclusion)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Get("/tags/{tag}", h.NotesByTag)

	// Todos.
	r.Get("/todos", h.ListTodos)
	r.Post("/todos/toggle", h.ToggleTodo)

	// Daily and recent notes.
	r.Get("/daily", h.DailyNote)
	r.Get("/recent", h.RecentNotes)

	// Tab session.
	if ws != nil {
		sh := NewSessionHandler(ws)
		r.Get("/session", sh.Get)
		r.Post("/session/open", sh.Open)
		r.Post("/session/close", sh.Close)
		r.Post("/session/activate", sh.Activate)
		r.Post("/session/edit", sh.Edit)
		r.Post("/session/scroll", sh.Scroll)
		r.Post("/session/save", sh.Save)
		r.Post("/session/action", sh.Action)
	}

	// Attachments upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
