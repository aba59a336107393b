package api

import (
	"github.com/starford/ansuz/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Content string `json:"content" example:"# Hello\nWorld" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Title   string `json:"title" example:"Hello" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// GraphNode is a node in the knowledge graph.
type GraphNode struct {
	ID    string `json:"id" example:"notes/hello.md" validate:"required"`
	Title string `json:"title,omitempty" example:"Hello"`
}

// GraphLink is an edge in the knowledge graph.
type GraphLink struct {
	Source string `json:"source" example:"notes/hello.md" validate:"required"`
	Target string `json:"target" example:"notes/world.md" validate:"required"`
}

// GraphResponse wraps the knowledge graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes" validate:"required"`
	Links []GraphLink `json:"links" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/image.png" validate:"required"`
}

// RenameNoteRequest is the request body for renaming a note.
type RenameNoteRequest struct {
	Path    string `json:"path" example:"notes/old.md" validate:"required"`
	NewName string `json:"new_name" example:"new-name" validate:"required"`
}

// MoveNoteRequest is the request body for moving a note into a folder.
type MoveNoteRequest struct {
	Path   string `json:"path" example:"notes/hello.md" validate:"required"`
	Folder string `json:"folder" example:"archive"`
}

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest struct {
	Path string `json:"path" example:"projects/2026" validate:"required"`
}

// RenameFolderRequest is the request body for renaming a folder.
type RenameFolderRequest struct {
	Path    string `json:"path" example:"projects" validate:"required"`
	NewName string `json:"new_name" example:"archive" validate:"required"`
}

// ToggleTodoRequest identifies one checkbox line in a note.
type ToggleTodoRequest struct {
	Path string `json:"path" example:"tasks.md" validate:"required"`
	Line int    `json:"line" example:"3" validate:"required"`
}

// OpenNoteRequest is the request body for opening a note in the session.
type OpenNoteRequest struct {
	Path   string `json:"path" example:"notes/hello.md" validate:"required"`
	NewTab bool   `json:"new_tab" example:"true"`
}

// DispatchActionRequest carries a keyboard-shortcut action name.
type DispatchActionRequest struct {
	Action string `json:"action" example:"next-tab" validate:"required"`
}
