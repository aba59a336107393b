package index

import "github.com/starford/ansuz/internal/models"

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string, links []string, todos []models.Todo) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	GetNote(path string) (*NoteRow, error)
	ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphLink, error)
	LocalGraph(path string) ([]GraphNode, []GraphLink, error)
	Backlinks(target string) ([]string, error)
	OutgoingLinks(source string) ([]string, error)
	Tags() ([]string, error)
	NotesByTag(tag string) ([]string, error)
	Todos(includeDone bool) ([]models.Todo, error)
	SetTodoDone(path string, line int, done bool) error
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
