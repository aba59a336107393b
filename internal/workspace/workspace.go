// Package workspace owns the live document session. A single internal
// goroutine holds the session value and applies transitions posted through a
// channel, so concurrent API handlers never observe a partially applied
// update and no mutexes are needed.
//
// Store I/O happens outside the loop. Every async completion carries the path
// it was dispatched for and is re-validated against the current session when
// it lands; completions whose tab has been closed or repointed in the
// meantime are dropped.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/session"
)

// Store is the slice of the note service the workspace needs: reading a note
// before opening it and persisting a tab's content on save.
type Store interface {
	GetNote(ctx context.Context, path string) (*models.Note, error)
	SaveNote(ctx context.Context, path, content string) error
}

// Keyboard-shortcut actions accepted by Dispatch. The mapping from keys or
// mouse buttons to actions lives in the client; the workspace only knows
// action names.
const (
	ActionCloseTab = "close-tab"
	ActionNextTab  = "next-tab"
	ActionPrevTab  = "prev-tab"
	ActionSave     = "save"
)

type applyReq struct {
	fn    func(session.Session) session.Session
	reply chan session.Session
}

// Workspace owns the current session value.
type Workspace struct {
	store  Store
	logger *slog.Logger
	notify func(session.Session)

	applyCh chan applyReq

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// New creates a workspace with an empty session and starts its event loop.
// notify, if non-nil, is called with a copy of the session after every change.
func New(store Store, logger *slog.Logger, notify func(session.Session)) *Workspace {
	w := &Workspace{
		store:   store,
		logger:  logger,
		notify:  notify,
		applyCh: make(chan applyReq),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Workspace) run() {
	defer close(w.stopped)

	var current session.Session
	for {
		select {
		case <-w.stopCh:
			return
		case req := <-w.applyCh:
			next := req.fn(current)
			current = next
			req.reply <- next
		}
	}
}

// Close stops the event loop.
func (w *Workspace) Close() {
	if w.closed.CompareAndSwap(false, true) {
		close(w.stopCh)
	}
	<-w.stopped
}

// apply posts a transition to the loop, notifies, and returns the resulting
// session. After Close it returns the zero session.
func (w *Workspace) apply(fn func(session.Session) session.Session) session.Session {
	next := w.post(fn)
	if w.notify != nil {
		w.notify(next)
	}
	return next
}

func (w *Workspace) post(fn func(session.Session) session.Session) session.Session {
	req := applyReq{fn: fn, reply: make(chan session.Session, 1)}
	select {
	case w.applyCh <- req:
	case <-w.stopped:
		return session.Session{}
	}
	return <-req.reply
}

// Snapshot returns a copy of the current session. Reads do not notify.
func (w *Workspace) Snapshot() session.Session {
	return w.post(func(s session.Session) session.Session { return s })
}

// OpenNote reads the note at path and opens it: in a new tab when newTab is
// set (middle-click semantics), otherwise replacing the active tab
// (single-click preview semantics).
func (w *Workspace) OpenNote(ctx context.Context, path string, newTab bool) (session.Session, error) {
	note, err := w.store.GetNote(ctx, path)
	if err != nil {
		return w.Snapshot(), fmt.Errorf("workspace: open %s: %w", path, err)
	}
	if newTab {
		return w.apply(func(s session.Session) session.Session {
			return session.OpenInNewTab(s, *note)
		}), nil
	}
	return w.apply(func(s session.Session) session.Session {
		return session.ReplaceActiveTab(s, *note)
	}), nil
}

// Edit records an in-memory edit for the tab holding path, marking it dirty.
// Edits for paths that are no longer open are dropped.
func (w *Workspace) Edit(path, content string) session.Session {
	return w.apply(func(s session.Session) session.Session {
		return session.Edit(s, path, content)
	})
}

// SetScroll stores the scroll position of the tab holding path.
func (w *Workspace) SetScroll(path string, pos int) session.Session {
	return w.apply(func(s session.Session) session.Session {
		return session.UpdateTabByPath(s, path, func(t session.Tab) session.Tab {
			t.ScrollPosition = pos
			return t
		})
	})
}

// Save persists the current content of the tab holding path. The path and
// content are captured before the write; the dirty flag is cleared only if a
// tab with that path still exists, holding that same content, when the write
// completes. On store failure the tab stays dirty so the edit survives for a
// retry.
func (w *Workspace) Save(ctx context.Context, path string) error {
	snap := w.Snapshot()
	i := snap.IndexOf(path)
	if i < 0 {
		return apperr.ErrNotFound
	}
	content := snap.Tabs[i].Note.Content

	if err := w.store.SaveNote(ctx, path, content); err != nil {
		return fmt.Errorf("workspace: save %s: %w", path, err)
	}

	w.apply(func(s session.Session) session.Session {
		if s.IndexOf(path) < 0 {
			w.logger.Debug("workspace: dropping stale save completion", slog.String("path", path))
			return s
		}
		return session.MarkSaved(s, path, content)
	})
	return nil
}

// SaveActive saves the active tab, if any.
func (w *Workspace) SaveActive(ctx context.Context) error {
	t, ok := w.Snapshot().Active()
	if !ok {
		return apperr.ErrNotFound
	}
	return w.Save(ctx, t.Note.Path)
}

// CloseTab closes the tab at index. The caller is responsible for having
// confirmed the close when the tab was dirty.
func (w *Workspace) CloseTab(index int) session.Session {
	return w.apply(func(s session.Session) session.Session {
		return session.CloseTab(s, index)
	})
}

// CloseActive closes the active tab.
func (w *Workspace) CloseActive() session.Session {
	return w.apply(func(s session.Session) session.Session {
		return session.CloseTab(s, s.ActiveIndex)
	})
}

// Activate focuses the tab at index.
func (w *Workspace) Activate(index int) session.Session {
	return w.apply(func(s session.Session) session.Session {
		return session.ActivateTab(s, index)
	})
}

// NextTab cycles focus rightwards.
func (w *Workspace) NextTab() session.Session {
	return w.apply(session.NextTab)
}

// PrevTab cycles focus leftwards.
func (w *Workspace) PrevTab() session.Session {
	return w.apply(session.PrevTab)
}

// Dispatch runs a named keyboard action.
func (w *Workspace) Dispatch(ctx context.Context, action string) error {
	switch action {
	case ActionCloseTab:
		w.CloseActive()
	case ActionNextTab:
		w.NextTab()
	case ActionPrevTab:
		w.PrevTab()
	case ActionSave:
		return w.SaveActive(ctx)
	default:
		return fmt.Errorf("workspace: unknown action %q", action)
	}
	return nil
}

// NoteRenamed repoints the tab that held oldPath at the re-read note. Called
// by the note service after a successful rename.
func (w *Workspace) NoteRenamed(oldPath string, note models.Note) session.Session {
	return w.apply(func(s session.Session) session.Session {
		return session.RenameNoteTab(s, oldPath, note)
	})
}

// FolderRenamed rewrites the paths of every open tab inside oldFolder.
func (w *Workspace) FolderRenamed(oldFolder, newFolder string) session.Session {
	return w.apply(func(s session.Session) session.Session {
		return session.RenameFolderTabs(s, oldFolder, newFolder)
	})
}

// NoteDeleted closes the tab holding path, if open.
func (w *Workspace) NoteDeleted(path string) session.Session {
	return w.apply(func(s session.Session) session.Session {
		return session.RemoveTabs(s, func(t session.Tab) bool {
			return t.Note.Path == path
		})
	})
}

// FolderDeleted closes every tab whose note lived inside folder.
func (w *Workspace) FolderDeleted(folder string) session.Session {
	return w.apply(func(s session.Session) session.Session {
		return session.RemoveTabs(s, func(t session.Tab) bool {
			return session.PathInFolder(t.Note.Path, folder)
		})
	})
}
