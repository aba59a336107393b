// Package session implements the open-document session state machine: the
// ordered list of tabs plus the active selection, with one pure transition
// function per user-facing action.
//
// All transitions are total functions (Session, args) -> Session. They never
// mutate their inputs and never fail: out-of-range indices are clamped or
// ignored so that a stale index from the UI can not leave the session in an
// inconsistent state. Callers own persisting the returned value.
package session

import (
	"log/slog"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// Tab is one open editing session for a note. Its note's path is a mutable
// attribute, not its identity: a rename updates the embedded note in place
// while the tab keeps its position.
type Tab struct {
	Note           models.Note `json:"note"`
	Dirty          bool        `json:"dirty"`
	ScrollPosition int         `json:"scroll_position,omitempty"`
}

// Session is the ordered set of open tabs plus which one is active.
// Tab order is tab-bar order and is preserved across rename and update
// operations. The zero value is the empty session, where ActiveIndex 0 is a
// sentinel rather than a valid index.
type Session struct {
	Tabs        []Tab `json:"tabs"`
	ActiveIndex int   `json:"active_index"`
}

// IndexOf returns the position of the tab holding path, or -1.
func (s Session) IndexOf(path string) int {
	for i, t := range s.Tabs {
		if t.Note.Path == path {
			return i
		}
	}
	return -1
}

// Active returns the active tab, or false for the empty session.
func (s Session) Active() (Tab, bool) {
	if len(s.Tabs) == 0 || s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Tabs) {
		return Tab{}, false
	}
	return s.Tabs[s.ActiveIndex], true
}

func cloneTabs(tabs []Tab) []Tab {
	out := make([]Tab, len(tabs))
	copy(out, tabs)
	return out
}

// OpenInNewTab appends a fresh tab for note and focuses it. If a tab with the
// same path is already open the session is returned with that tab focused
// instead: opening never duplicates a path.
func OpenInNewTab(s Session, note models.Note) Session {
	if i := s.IndexOf(note.Path); i >= 0 {
		return Session{Tabs: s.Tabs, ActiveIndex: i}
	}
	tabs := make([]Tab, len(s.Tabs), len(s.Tabs)+1)
	copy(tabs, s.Tabs)
	tabs = append(tabs, Tab{Note: note})
	return Session{Tabs: tabs, ActiveIndex: len(tabs) - 1}
}

// ReplaceActiveTab reuses the active tab for note (single-click preview
// semantics). An empty session becomes a singleton. A stale active index is
// clamped into range rather than rejected; clamping that actually changes the
// index is logged so out-of-sync callers stay visible in debug builds.
func ReplaceActiveTab(s Session, note models.Note) Session {
	if len(s.Tabs) == 0 {
		return Session{Tabs: []Tab{{Note: note}}}
	}
	idx := s.ActiveIndex
	if idx > len(s.Tabs)-1 {
		idx = len(s.Tabs) - 1
	}
	if idx < 0 {
		idx = 0
	}
	if idx != s.ActiveIndex {
		slog.Debug("session: clamped stale active index",
			slog.Int("given", s.ActiveIndex), slog.Int("clamped", idx))
	}
	tabs := cloneTabs(s.Tabs)
	tabs[idx] = Tab{Note: note}
	return Session{Tabs: tabs, ActiveIndex: idx}
}

// CloseTab removes the tab at closeIndex. Out-of-range indices are a no-op.
// Closing the active tab selects the tab that slid into its place, or the new
// rightmost tab when the closed one was rightmost. Closing a tab left of the
// active one shifts the active index so it keeps pointing at the same tab.
func CloseTab(s Session, closeIndex int) Session {
	if closeIndex < 0 || closeIndex >= len(s.Tabs) {
		return s
	}
	tabs := make([]Tab, 0, len(s.Tabs)-1)
	tabs = append(tabs, s.Tabs[:closeIndex]...)
	tabs = append(tabs, s.Tabs[closeIndex+1:]...)

	if len(tabs) == 0 {
		return Session{}
	}

	active := s.ActiveIndex
	switch {
	case closeIndex == active:
		if closeIndex > len(tabs)-1 {
			active = len(tabs) - 1
		} else {
			active = closeIndex
		}
	case closeIndex < active:
		active--
	}
	return Session{Tabs: tabs, ActiveIndex: active}
}

// ActivateTab focuses the tab at index; out-of-range indices are a no-op.
func ActivateTab(s Session, index int) Session {
	if index < 0 || index >= len(s.Tabs) {
		return s
	}
	return Session{Tabs: s.Tabs, ActiveIndex: index}
}

// NextTab cycles the active tab rightwards, wrapping at the end.
func NextTab(s Session) Session {
	if len(s.Tabs) == 0 {
		return s
	}
	return Session{Tabs: s.Tabs, ActiveIndex: (s.ActiveIndex + 1) % len(s.Tabs)}
}

// PrevTab cycles the active tab leftwards, wrapping at the start.
func PrevTab(s Session) Session {
	if len(s.Tabs) == 0 {
		return s
	}
	return Session{Tabs: s.Tabs, ActiveIndex: (s.ActiveIndex - 1 + len(s.Tabs)) % len(s.Tabs)}
}

// UpdateTabByPath applies fn to the unique tab holding path, leaving every
// other tab untouched. No tab with that path means no-op. This is the
// re-validation point for async completions: a save or fetch that lands after
// its tab was closed or repointed simply matches nothing and is dropped.
func UpdateTabByPath(s Session, path string, fn func(Tab) Tab) Session {
	i := s.IndexOf(path)
	if i < 0 {
		return s
	}
	tabs := cloneTabs(s.Tabs)
	tabs[i] = fn(tabs[i])
	return Session{Tabs: tabs, ActiveIndex: s.ActiveIndex}
}

// Edit replaces the content of the tab holding path and marks it dirty.
func Edit(s Session, path, content string) Session {
	return UpdateTabByPath(s, path, func(t Tab) Tab {
		t.Note.Content = content
		t.Dirty = true
		return t
	})
}

// MarkSaved clears the dirty flag of the tab holding path, if still open and
// its content still equals what was written. An edit that landed while the
// write was in flight keeps the tab dirty so it is not lost.
func MarkSaved(s Session, path, saved string) Session {
	return UpdateTabByPath(s, path, func(t Tab) Tab {
		if t.Note.Content == saved {
			t.Dirty = false
		}
		return t
	})
}

// RemoveTabs drops every tab for which drop returns true. Survivors keep
// their order. The active index follows the previously active tab's path when
// it survived; otherwise it falls back to min(old index, len-1).
func RemoveTabs(s Session, drop func(Tab) bool) Session {
	activePath := ""
	hadActive := false
	if t, ok := s.Active(); ok {
		activePath = t.Note.Path
		hadActive = true
	}

	survivors := make([]Tab, 0, len(s.Tabs))
	for _, t := range s.Tabs {
		if !drop(t) {
			survivors = append(survivors, t)
		}
	}
	if len(survivors) == 0 {
		return Session{}
	}

	if hadActive {
		for i, t := range survivors {
			if t.Note.Path == activePath {
				return Session{Tabs: survivors, ActiveIndex: i}
			}
		}
	}
	active := s.ActiveIndex
	if active > len(survivors)-1 {
		active = len(survivors) - 1
	}
	if active < 0 {
		active = 0
	}
	return Session{Tabs: survivors, ActiveIndex: active}
}

// PathInFolder reports whether notePath lives inside folder. Both arguments
// may use forward or back slashes. The folder is matched as a bounded path
// segment, so "work/project" does not match "work/projects". An empty folder
// never matches: the root must not wipe every tab on a cascading delete.
func PathInFolder(notePath, folder string) bool {
	f := strings.Trim(strings.ReplaceAll(folder, "\\", "/"), "/")
	if f == "" {
		return false
	}
	n := strings.ReplaceAll(notePath, "\\", "/")
	return strings.Contains("/"+n+"/", "/"+f+"/")
}

// RenameFolderTabs rewrites the path of every tab inside oldFolder to live
// under newFolder, preserving everything after the folder segment and each
// path's original separator style. Tabs outside the folder are unchanged, as
// is the whole session when oldFolder normalizes to empty.
func RenameFolderTabs(s Session, oldFolder, newFolder string) Session {
	oldF := strings.Trim(strings.ReplaceAll(oldFolder, "\\", "/"), "/")
	newF := strings.Trim(strings.ReplaceAll(newFolder, "\\", "/"), "/")
	if oldF == "" {
		return s
	}
	tabs := cloneTabs(s.Tabs)
	for i, t := range tabs {
		if !PathInFolder(t.Note.Path, oldF) {
			continue
		}
		tabs[i].Note.Path = rewriteFolderSegment(t.Note.Path, oldF, newF)
	}
	return Session{Tabs: tabs, ActiveIndex: s.ActiveIndex}
}

// rewriteFolderSegment swaps the bounded folder segment oldF for newF inside
// p. Both folders must already be normalized to forward slashes with no
// surrounding slashes.
func rewriteFolderSegment(p, oldF, newF string) string {
	backslashes := strings.Contains(p, "\\")
	norm := strings.ReplaceAll(p, "\\", "/")
	wrapped := strings.Replace("/"+norm+"/", "/"+oldF+"/", "/"+newF+"/", 1)
	out := wrapped[1 : len(wrapped)-1]
	if backslashes {
		out = strings.ReplaceAll(out, "/", "\\")
	}
	return out
}

// RenameNoteTab repoints the tab holding oldPath at note (freshly re-read
// after a rename). The tab keeps its position and its dirty flag resets: the
// on-disk content is authoritative after a rename. No-op when oldPath is not
// open.
func RenameNoteTab(s Session, oldPath string, note models.Note) Session {
	return UpdateTabByPath(s, oldPath, func(Tab) Tab {
		return Tab{Note: note}
	})
}
