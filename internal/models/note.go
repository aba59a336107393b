// Package models defines the domain types for Ansuz.
package models

import "time"

// Note represents a Markdown file in the vault, fully loaded.
type Note struct {
	Path         string    `json:"path"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	LastModified time.Time `json:"last_modified"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Folder    string    `json:"folder"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link represents a directed edge between two notes.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"` // "inline" or "frontmatter"
}

// Todo is a checkbox item extracted from a note body.
type Todo struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}
