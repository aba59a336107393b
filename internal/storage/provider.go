// Package storage defines the vault file-system abstraction.
package storage

import (
	"os"

	"github.com/starford/ansuz/internal/models"
)

// Provider is the interface for vault file operations. All paths are relative
// to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Stat returns file info for the file at path.
	Stat(path string) (os.FileInfo, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move relocates a note into another folder, keeping its file name, and
	// returns the new path.
	Move(path, newFolder string) (string, error)
	// Rename gives the note at path a new file name in the same directory and
	// returns the new path. A missing .md extension is appended. Renaming
	// onto an existing note fails.
	Rename(path, newName string) (string, error)
	// RenameFolder renames a vault folder and returns the new folder path.
	RenameFolder(folder, newName string) (string, error)
	// CreateFolder creates a vault folder. An existing folder is an error.
	CreateFolder(folder string) error
	// DeleteFolder removes a folder and everything inside it.
	DeleteFolder(folder string) error
	// FolderContents returns the paths of the notes that DeleteFolder would
	// remove, for the confirmation step of a two-phase delete.
	FolderContents(folder string) ([]string, error)
	// Folders returns every folder in the vault.
	Folders() ([]string, error)
}
