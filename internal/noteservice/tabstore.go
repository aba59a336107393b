package noteservice

import (
	"context"

	"github.com/starford/ansuz/internal/models"
)

// TabStore adapts the service to the note loading and saving contract the
// workspace expects for its tabs.
type TabStore struct {
	Svc *Service
}

// GetNote loads a note as a tab model.
func (t TabStore) GetNote(ctx context.Context, path string) (*models.Note, error) {
	detail, err := t.Svc.GetNote(ctx, path)
	if err != nil {
		return nil, err
	}
	return &models.Note{
		Path:         detail.Path,
		Title:        detail.Title,
		Content:      detail.Content,
		LastModified: detail.UpdatedAt,
	}, nil
}

// SaveNote persists edited tab content.
func (t TabStore) SaveNote(ctx context.Context, path, content string) error {
	if err := t.Svc.store.Write(path, []byte(content)); err != nil {
		return err
	}
	return t.Svc.IndexFile(path, []byte(content))
}
