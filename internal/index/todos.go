package index

import (
	"fmt"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
)

// todosForPath attaches a note path to parser todo items.
func todosForPath(path string, items []parser.Todo) []models.Todo {
	out := make([]models.Todo, len(items))
	for i, it := range items {
		out[i] = models.Todo{Path: path, Line: it.Line, Text: it.Text, Done: it.Done}
	}
	return out
}

// SetTodoDone updates the completion state of one todo row.
func (db *DB) SetTodoDone(path string, line int, done bool) error {
	res, err := db.conn.Exec(`UPDATE todos SET done = ? WHERE path = ? AND line = ?`, done, path, line)
	if err != nil {
		return fmt.Errorf("index: set todo done: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("index: no todo at %s:%d", path, line)
	}
	return nil
}
