// Package noteservice coordinates vault storage, the search index, and open
// tabs. It is the single entry point for note mutations so that every write
// keeps all three in agreement.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/session"
	"github.com/starford/ansuz/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Backlinks   []string       `json:"backlinks"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tabs receives cascade calls when a vault operation invalidates open tabs.
// *workspace.Workspace satisfies it.
type Tabs interface {
	NoteRenamed(oldPath string, note models.Note) session.Session
	FolderRenamed(oldFolder, newFolder string) session.Session
	NoteDeleted(path string) session.Session
	FolderDeleted(folder string) session.Session
}

const maxRecent = 20

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    index.NoteIndex
	tabs  Tabs

	dailyFolder   string
	dailyTemplate string

	mu     sync.Mutex
	recent []string
}

// Option configures a Service.
type Option func(*Service)

// WithDailyNotes sets the folder daily notes live in and the template body
// new daily notes are created from.
func WithDailyNotes(folder, template string) Option {
	return func(s *Service) {
		s.dailyFolder = folder
		s.dailyTemplate = template
	}
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.NoteIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db, dailyFolder: "Daily Notes"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTabs wires the open-tab cascade target. Set after construction because
// the workspace itself loads notes through this service.
func (s *Service) SetTabs(t Tabs) {
	s.tabs = t
}

// GetNote reads a note from storage, parses it, and enriches with backlinks.
func (s *Service) GetNote(_ context.Context, notePath string) (*NoteDetail, error) {
	data, err := s.store.Read(notePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	s.touchRecent(notePath)
	return s.buildNoteDetail(notePath, data)
}

// FindByName locates a note by its file-name stem, case-insensitively, so
// that "roadmap" finds "Projects/Roadmap.md". A trailing ".md" on the name
// is optional.
func (s *Service) FindByName(ctx context.Context, name string) (*NoteDetail, error) {
	want := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), ".md"))
	if want == "" {
		return nil, apperr.ErrNotFound
	}
	known, err := s.db.AllPaths()
	if err != nil {
		return nil, err
	}
	for p := range known {
		if strings.ToLower(stem(p)) == want {
			return s.GetNote(ctx, p)
		}
	}
	return nil, apperr.ErrNotFound
}

// CreateNote writes a new note and indexes it. Creating a note that already
// exists returns the existing note unchanged, so a double-click in a client
// never clobbers content.
func (s *Service) CreateNote(_ context.Context, notePath string, content []byte) (*NoteDetail, error) {
	if existing, err := s.store.Read(notePath); err == nil {
		s.touchRecent(notePath)
		return s.buildNoteDetail(notePath, existing)
	}
	if err := s.store.Write(notePath, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(notePath, content); err != nil {
		return nil, err
	}
	s.touchRecent(notePath)
	return s.buildNoteDetail(notePath, content)
}

// UpdateNote writes updated content with optimistic concurrency.
func (s *Service) UpdateNote(_ context.Context, notePath string, content []byte, ifMatch string) (*NoteDetail, error) {
	existing, err := s.store.Read(notePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if !checksum.Matches(existing, ifMatch) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(notePath, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(notePath, content); err != nil {
		return nil, err
	}
	s.touchRecent(notePath)
	return s.buildNoteDetail(notePath, content)
}

// DeleteNote removes a note from storage and index and closes its tab.
func (s *Service) DeleteNote(_ context.Context, notePath string) error {
	if err := s.store.Delete(notePath); err != nil {
		return err
	}
	if err := s.db.DeleteNote(notePath); err != nil {
		return err
	}
	s.dropRecent(notePath)
	if s.tabs != nil {
		s.tabs.NoteDeleted(notePath)
	}
	return nil
}

// RenameNote gives a note a new file name in place. The index rows for the
// old path are dropped, the note is reindexed under the new path, and every
// note that linked to it is reindexed so its links resolve again.
func (s *Service) RenameNote(ctx context.Context, notePath, newName string) (*NoteDetail, error) {
	linkers, err := s.db.Backlinks(notePath)
	if err != nil {
		return nil, err
	}
	newPath, err := s.store.Rename(notePath, newName)
	if err != nil {
		return nil, err
	}
	detail, err := s.reindexMoved(ctx, notePath, newPath, linkers)
	if err != nil {
		return nil, err
	}
	if s.tabs != nil {
		s.tabs.NoteRenamed(notePath, models.Note{
			Path:         newPath,
			Title:        detail.Title,
			Content:      detail.Content,
			LastModified: detail.UpdatedAt,
		})
	}
	return detail, nil
}

// MoveNote relocates a note into another folder, keeping its file name.
func (s *Service) MoveNote(ctx context.Context, notePath, newFolder string) (*NoteDetail, error) {
	newPath, err := s.store.Move(notePath, newFolder)
	if err != nil {
		return nil, err
	}
	detail, err := s.reindexMoved(ctx, notePath, newPath, nil)
	if err != nil {
		return nil, err
	}
	if s.tabs != nil {
		s.tabs.NoteRenamed(notePath, models.Note{
			Path:         newPath,
			Title:        detail.Title,
			Content:      detail.Content,
			LastModified: detail.UpdatedAt,
		})
	}
	return detail, nil
}

// reindexMoved shifts index state from oldPath to newPath and reindexes the
// notes in linkers so that stem resolution picks up the change.
func (s *Service) reindexMoved(_ context.Context, oldPath, newPath string, linkers []string) (*NoteDetail, error) {
	if err := s.db.DeleteNote(oldPath); err != nil {
		return nil, err
	}
	data, err := s.store.Read(newPath)
	if err != nil {
		return nil, err
	}
	if err := s.IndexFile(newPath, data); err != nil {
		return nil, err
	}
	for _, p := range linkers {
		if p == oldPath {
			continue
		}
		src, err := s.store.Read(p)
		if err != nil {
			continue
		}
		if err := s.IndexFile(p, src); err != nil {
			return nil, err
		}
	}
	s.renameRecent(oldPath, newPath)
	return s.buildNoteDetail(newPath, data)
}

// CreateFolder creates an empty vault folder.
func (s *Service) CreateFolder(_ context.Context, folder string) error {
	return s.store.CreateFolder(folder)
}

// Folders returns every folder in the vault.
func (s *Service) Folders(_ context.Context) ([]string, error) {
	return s.store.Folders()
}

// FolderContents returns the note paths that DeleteFolder would remove. A
// client shows this list before asking for the destructive second phase.
func (s *Service) FolderContents(_ context.Context, folder string) ([]string, error) {
	return s.store.FolderContents(folder)
}

// DeleteFolder removes a folder with everything in it and drops the index
// rows for the removed notes.
func (s *Service) DeleteFolder(_ context.Context, folder string) error {
	contents, err := s.store.FolderContents(folder)
	if err != nil {
		return err
	}
	if err := s.store.DeleteFolder(folder); err != nil {
		return err
	}
	for _, p := range contents {
		if err := s.db.DeleteNote(p); err != nil {
			return err
		}
		s.dropRecent(p)
	}
	if s.tabs != nil {
		s.tabs.FolderDeleted(folder)
	}
	return nil
}

// RenameFolder renames a vault folder and reindexes every note inside it
// under its new path.
func (s *Service) RenameFolder(_ context.Context, folder, newName string) (string, error) {
	contents, err := s.store.FolderContents(folder)
	if err != nil {
		return "", err
	}
	newFolder, err := s.store.RenameFolder(folder, newName)
	if err != nil {
		return "", err
	}
	oldPrefix := strings.Trim(strings.ReplaceAll(folder, "\\", "/"), "/") + "/"
	for _, oldPath := range contents {
		newPath := newFolder + "/" + strings.TrimPrefix(oldPath, oldPrefix)
		if err := s.db.DeleteNote(oldPath); err != nil {
			return "", err
		}
		data, err := s.store.Read(newPath)
		if err != nil {
			continue
		}
		if err := s.IndexFile(newPath, data); err != nil {
			return "", err
		}
		s.renameRecent(oldPath, newPath)
	}
	if s.tabs != nil {
		s.tabs.FolderRenamed(folder, newFolder)
	}
	return newFolder, nil
}

// ListNotes returns paginated notes with optional tag filter.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag, sort string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph returns all nodes and links for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

// LocalGraph returns the link neighborhood of one note for a note-centered
// graph view.
func (s *Service) LocalGraph(_ context.Context, notePath string) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.LocalGraph(notePath)
}

// Backlinks returns all note paths that link to the given target.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	return s.db.Backlinks(target)
}

// OutgoingLinks returns the note paths the given note links to.
func (s *Service) OutgoingLinks(_ context.Context, source string) ([]string, error) {
	return s.db.OutgoingLinks(source)
}

// Blocks returns the addressable headings of a note, the targets a
// [[note#block-id]] link can point at.
func (s *Service) Blocks(_ context.Context, notePath string) ([]parser.Block, error) {
	data, err := s.store.Read(notePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return parser.ExtractBlocks(string(data)), nil
}

// Transclusion is the resolved content of an embed link: the whole note for
// "name", a single heading's section for "name#block-id".
type Transclusion struct {
	Path    string `json:"path"`
	BlockID string `json:"block_id,omitempty"`
	Content string `json:"content"`
}

// ResolveTransclusion resolves an embed link to the content it stands for.
// The note name is matched like FindByName; an unknown name or block ID
// returns ErrNotFound.
func (s *Service) ResolveTransclusion(ctx context.Context, link string) (*Transclusion, error) {
	name, blockID, _ := strings.Cut(link, "#")
	note, err := s.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if blockID == "" {
		return &Transclusion{Path: note.Path, Content: note.Content}, nil
	}
	for _, b := range parser.ExtractBlocks(note.Content) {
		if b.ID == blockID {
			section, ok := parser.ExtractSection(note.Content, b.Line)
			if !ok {
				return nil, apperr.ErrNotFound
			}
			return &Transclusion{Path: note.Path, BlockID: blockID, Content: section}, nil
		}
	}
	return nil, fmt.Errorf("noteservice: no block %q in %s: %w", blockID, note.Path, apperr.ErrNotFound)
}

// Tags returns every distinct tag in the vault.
func (s *Service) Tags(_ context.Context) ([]string, error) {
	return s.db.Tags()
}

// NotesByTag returns the paths of notes carrying tag.
func (s *Service) NotesByTag(_ context.Context, tag string) ([]string, error) {
	return s.db.NotesByTag(tag)
}

// Todos returns checkbox items across the vault, open ones only unless
// includeDone is set.
func (s *Service) Todos(_ context.Context, includeDone bool) ([]models.Todo, error) {
	return s.db.Todos(includeDone)
}

// ToggleTodo flips the checkbox on the given 1-based line of a note and
// persists the change. Only the todo row is touched in the index; the file
// watcher reconciles the rest of the note's index entry after the write.
func (s *Service) ToggleTodo(_ context.Context, notePath string, line int) (*NoteDetail, error) {
	data, err := s.store.Read(notePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	updated, ok := parser.ToggleTodoLine(string(data), line)
	if !ok {
		return nil, fmt.Errorf("noteservice: no todo at %s:%d: %w", notePath, line, apperr.ErrNotFound)
	}
	if err := s.store.Write(notePath, []byte(updated)); err != nil {
		return nil, err
	}
	done := strings.Contains(strings.Split(updated, "\n")[line-1], "[x]")
	if err := s.db.SetTodoDone(notePath, line, done); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(notePath, []byte(updated))
}

// DailyNote returns today's daily note, creating it from the configured
// template on first access.
func (s *Service) DailyNote(ctx context.Context, now time.Time) (*NoteDetail, error) {
	notePath := path.Join(s.dailyFolder, now.Format("2006-01-02")+".md")
	if data, err := s.store.Read(notePath); err == nil {
		s.touchRecent(notePath)
		return s.buildNoteDetail(notePath, data)
	}
	content := expandTemplateVars(s.dailyTemplate, now)
	return s.CreateNote(ctx, notePath, []byte(content))
}

// RecentNotes returns recently opened note paths, most recent first.
func (s *Service) RecentNotes(_ context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.recent))
	copy(out, s.recent)
	return out
}

// IndexFile parses data and upserts it into the index, resolving wikilinks
// against the indexed note set. Exported so that sync and watcher can reuse it.
func (s *Service) IndexFile(notePath string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	title := res.Title
	if title == "" {
		title = stem(notePath)
	}
	known, err := s.db.AllPaths()
	if err != nil {
		return err
	}
	known[notePath] = struct{}{}

	var todos []models.Todo
	for _, td := range parser.ExtractTodos(string(data)) {
		todos = append(todos, models.Todo{Path: notePath, Line: td.Line, Text: td.Text, Done: td.Done})
	}

	return s.db.UpsertNote(index.NoteRow{
		Path:      notePath,
		Title:     title,
		Checksum:  checksum.Sum(data),
		Tags:      nonNilSlice(res.Tags),
		UpdatedAt: time.Now(),
	}, res.Body, index.ResolveLinks(res.Links, known), todos)
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading the file.
func (s *Service) buildNoteDetail(notePath string, data []byte) (*NoteDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	title := res.Title
	if title == "" {
		title = stem(notePath)
	}
	bl, err := s.db.Backlinks(notePath)
	if err != nil {
		return nil, err
	}
	updated := time.Now()
	if info, err := s.store.Stat(notePath); err == nil {
		updated = info.ModTime()
	}
	return &NoteDetail{
		Path:        notePath,
		Title:       title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Backlinks:   nonNilSlice(bl),
		UpdatedAt:   updated,
	}, nil
}

func (s *Service) touchRecent(notePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.recent)+1)
	out = append(out, notePath)
	for _, p := range s.recent {
		if p != notePath {
			out = append(out, p)
		}
	}
	if len(out) > maxRecent {
		out = out[:maxRecent]
	}
	s.recent = out
}

func (s *Service) dropRecent(notePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.recent[:0]
	for _, p := range s.recent {
		if p != notePath {
			out = append(out, p)
		}
	}
	s.recent = out
}

func (s *Service) renameRecent(oldPath, newPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.recent {
		if p == oldPath {
			s.recent[i] = newPath
		}
	}
}

func stem(p string) string {
	return strings.TrimSuffix(path.Base(strings.ReplaceAll(p, "\\", "/")), ".md")
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
