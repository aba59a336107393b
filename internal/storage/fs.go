package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Directories skipped by listings: internal state and binary assets.
var skipDirs = map[string]struct{}{
	".git":        {},
	".ansuz":      {},
	"attachments": {},
}

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to vault directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s: %w", rel, apperr.ErrInvalidPath)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s: %w", rel, apperr.ErrInvalidPath)
	}
	return abs, nil
}

// skipped reports whether any component of rel is an internal directory.
func skipped(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if _, ok := skipDirs[part]; ok {
			return true
		}
	}
	return false
}

// titleFromPath derives a display title from the file name stem.
func titleFromPath(rel string) string {
	base := path.Base(filepath.ToSlash(rel))
	return strings.TrimSuffix(base, ".md")
}

// List walks dir (relative to root) and returns metadata for every .md file,
// sorted by folder then title. Internal directories are skipped.
func (f *FS) List(dir string) ([]models.NoteMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []models.NoteMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(f.root, p)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if rel != "." && skipped(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") || skipped(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		out = append(out, models.NoteMetadata{
			Path:      rel,
			Title:     titleFromPath(rel),
			Folder:    folderOf(rel),
			Checksum:  checksum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sortMetadata(out)
	return out, nil
}

// folderOf returns the containing folder of a vault path ("" at the root).
func folderOf(rel string) string {
	dir := path.Dir(filepath.ToSlash(rel))
	if dir == "." {
		return ""
	}
	return dir
}

// sortMetadata orders listings by folder, then title (the sidebar order).
func sortMetadata(metas []models.NoteMetadata) {
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].Folder != metas[j].Folder {
			return metas[i].Folder < metas[j].Folder
		}
		return metas[i].Title < metas[j].Title
	})
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Stat returns file info for a vault path.
func (f *FS) Stat(path string) (os.FileInfo, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return info, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ansuz-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes a file from the vault.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// Move relocates a note into newFolder, keeping its file name.
func (f *FS) Move(notePath, newFolder string) (string, error) {
	absOld, err := f.safePath(notePath)
	if err != nil {
		return "", err
	}
	name := filepath.Base(absOld)
	newRel := name
	if newFolder != "" {
		newRel = path.Join(filepath.ToSlash(newFolder), name)
	}
	absNew, err := f.safePath(newRel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return "", fmt.Errorf("storage: move: %w", err)
	}
	return newRel, nil
}

// Rename gives a note a new file name in the same directory.
func (f *FS) Rename(notePath, newName string) (string, error) {
	absOld, err := f.safePath(notePath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(absOld); err != nil {
		return "", fmt.Errorf("storage: rename %s: %w", notePath, apperr.ErrNotFound)
	}
	if !strings.HasSuffix(newName, ".md") {
		newName += ".md"
	}
	newRel := path.Join(folderOf(notePath), newName)
	absNew, err := f.safePath(newRel)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(absNew); err == nil {
		return "", fmt.Errorf("storage: rename target %s: %w", newRel, apperr.ErrAlreadyExists)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	return newRel, nil
}

// RenameFolder renames a vault folder in place.
func (f *FS) RenameFolder(folder, newName string) (string, error) {
	absOld, err := f.safePath(folder)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(absOld)
	if err != nil {
		return "", fmt.Errorf("storage: rename folder %s: %w", folder, apperr.ErrNotFound)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("storage: %s is not a folder: %w", folder, apperr.ErrInvalidPath)
	}
	newRel := path.Join(folderOf(strings.Trim(filepath.ToSlash(folder), "/")), newName)
	absNew, err := f.safePath(newRel)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(absNew); err == nil {
		return "", fmt.Errorf("storage: folder %s: %w", newRel, apperr.ErrAlreadyExists)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return "", fmt.Errorf("storage: rename folder: %w", err)
	}
	return newRel, nil
}

// CreateFolder creates a vault folder.
func (f *FS) CreateFolder(folder string) error {
	abs, err := f.safePath(folder)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err == nil {
		return fmt.Errorf("storage: folder %s: %w", folder, apperr.ErrAlreadyExists)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: create folder: %w", err)
	}
	return nil
}

// DeleteFolder removes a folder and everything inside it.
func (f *FS) DeleteFolder(folder string) error {
	if strings.Trim(filepath.ToSlash(folder), "/") == "" {
		return fmt.Errorf("storage: refusing to delete vault root: %w", apperr.ErrInvalidPath)
	}
	abs, err := f.safePath(folder)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("storage: delete folder %s: %w", folder, apperr.ErrNotFound)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: %s is not a folder: %w", folder, apperr.ErrInvalidPath)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("storage: delete folder: %w", err)
	}
	return nil
}

// FolderContents lists the notes a folder delete would remove.
func (f *FS) FolderContents(folder string) ([]string, error) {
	metas, err := f.List(folder)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(metas))
	for i, m := range metas {
		paths[i] = m.Path
	}
	return paths, nil
}

// Folders returns every folder in the vault, internal directories excluded.
func (f *FS) Folders() ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() || p == f.root {
			return nil
		}
		rel, relErr := filepath.Rel(f.root, p)
		if relErr != nil {
			return relErr
		}
		if skipped(rel) {
			return filepath.SkipDir
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: folders: %w", err)
	}
	return out, nil
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
