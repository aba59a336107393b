package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// GraphNode is a node in the knowledge graph.
type GraphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// GraphLink is a directed edge in the knowledge graph.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// UpsertNote inserts or replaces a note, its FTS entry, links, tags, and
// todos within a transaction. links must already be resolved to note paths.
func (db *DB) UpsertNote(n NoteRow, body string, links []string, todos []models.Todo) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(n.Tags)

	// Upsert notes table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO notes (path, title, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.Path, n.Title, n.Checksum, string(tagsJSON), body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, n.Path, n.Title, body, n.Tags); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, n.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, type) VALUES (?, ?, 'inline')`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(n.Path, target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	// Replace tags.
	_, _ = tx.Exec(`DELETE FROM tags WHERE path = ?`, n.Path)
	for _, tag := range n.Tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO tags (tag, path) VALUES (?, ?)`, tag, n.Path); err != nil {
			return fmt.Errorf("index: insert tag: %w", err)
		}
	}

	// Replace todos.
	_, _ = tx.Exec(`DELETE FROM todos WHERE path = ?`, n.Path)
	for _, td := range todos {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO todos (path, line, text, done) VALUES (?, ?, ?, ?)`,
			n.Path, td.Line, td.Text, td.Done); err != nil {
			return fmt.Errorf("index: insert todo: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry, outgoing links, tags, and todos.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM tags WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM todos WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)

	return tx.Commit()
}

// GetNote returns the indexed row for path, or nil when not indexed.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	var (
		n        NoteRow
		tagsJSON string
	)
	err := db.conn.QueryRow(
		`SELECT path, title, checksum, tags, updated_at FROM notes WHERE path = ?`, path,
	).Scan(&n.Path, &n.Title, &n.Checksum, &tagsJSON, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
	return &n, nil
}

// ListNotes returns a page of notes with an optional tag filter.
// sort is one of "updated_at", "title", "path" (default "path").
func (db *DB) ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	order := "path ASC"
	switch sort {
	case "updated_at":
		order = "updated_at DESC"
	case "title":
		order = "title ASC"
	}

	where := ""
	args := []any{}
	if tag != "" {
		where = "WHERE path IN (SELECT path FROM tags WHERE tag = ?)"
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM notes `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	query := fmt.Sprintf(`SELECT path, title, checksum, tags, updated_at FROM notes %s ORDER BY %s LIMIT ? OFFSET ?`, where, order)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var (
			n        NoteRow
			tagsJSON string
		)
		if err := rows.Scan(&n.Path, &n.Title, &n.Checksum, &tagsJSON, &n.UpdatedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllPaths returns every indexed note path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Backlinks returns all note paths that link to the given target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// OutgoingLinks returns the note paths the given note links to.
func (db *DB) OutgoingLinks(source string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT target FROM links WHERE source = ? ORDER BY target`, source)
	if err != nil {
		return nil, fmt.Errorf("index: outgoing links: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Graph returns all notes as nodes and all links as edges.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	nodeRows, err := db.conn.Query(`SELECT path, title FROM notes ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer nodeRows.Close()

	var nodes []GraphNode
	for nodeRows.Next() {
		var n GraphNode
		if err := nodeRows.Scan(&n.ID, &n.Title); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, err
	}

	linkRows, err := db.conn.Query(`SELECT source, target FROM links ORDER BY source, target`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer linkRows.Close()

	var links []GraphLink
	for linkRows.Next() {
		var l GraphLink
		if err := linkRows.Scan(&l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, linkRows.Err()
}

// LocalGraph returns the immediate link neighborhood of one note: the note
// itself, every indexed note linked from or to it, and the edges between them.
func (db *DB) LocalGraph(path string) ([]GraphNode, []GraphLink, error) {
	rows, err := db.conn.Query(
		`SELECT source, target FROM links WHERE source = ? OR target = ? ORDER BY source, target`,
		path, path,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("index: local graph: %w", err)
	}
	defer rows.Close()

	connected := map[string]struct{}{path: {}}
	var links []GraphLink
	for rows.Next() {
		var l GraphLink
		if err := rows.Scan(&l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		connected[l.Source] = struct{}{}
		connected[l.Target] = struct{}{}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	paths := make([]string, 0, len(connected))
	for p := range connected {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var nodes []GraphNode
	for _, p := range paths {
		n, err := db.GetNote(p)
		if err != nil {
			return nil, nil, err
		}
		if n == nil {
			// Link target without a note behind it yet.
			continue
		}
		nodes = append(nodes, GraphNode{ID: n.Path, Title: n.Title})
	}
	return nodes, links, nil
}

// Tags returns every distinct tag, sorted.
func (db *DB) Tags() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT tag FROM tags ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// NotesByTag returns the paths of notes carrying tag.
func (db *DB) NotesByTag(tag string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT path FROM tags WHERE tag = ? ORDER BY path`, tag)
	if err != nil {
		return nil, fmt.Errorf("index: notes by tag: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Todos returns todo items across all notes, excluding completed ones unless
// includeDone is set.
func (db *DB) Todos(includeDone bool) ([]models.Todo, error) {
	query := `SELECT path, line, text, done FROM todos ORDER BY path, line`
	if !includeDone {
		query = `SELECT path, line, text, done FROM todos WHERE done = 0 ORDER BY path, line`
	}
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("index: todos: %w", err)
	}
	defer rows.Close()

	var out []models.Todo
	for rows.Next() {
		var td models.Todo
		if err := rows.Scan(&td.Path, &td.Line, &td.Text, &td.Done); err != nil {
			return nil, err
		}
		out = append(out, td)
	}
	return out, rows.Err()
}
