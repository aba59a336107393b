package noteservice

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/session"
	"github.com/starford/ansuz/internal/testutil"
)

func testService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	return NewService(store, db, opts...)
}

// tabsRecorder captures cascade calls.
type tabsRecorder struct {
	renamed       []string
	folderRenamed []string
	deleted       []string
	folderDeleted []string
}

func (r *tabsRecorder) NoteRenamed(oldPath string, note models.Note) session.Session {
	r.renamed = append(r.renamed, oldPath+"->"+note.Path)
	return session.Session{}
}

func (r *tabsRecorder) FolderRenamed(oldFolder, newFolder string) session.Session {
	r.folderRenamed = append(r.folderRenamed, oldFolder+"->"+newFolder)
	return session.Session{}
}

func (r *tabsRecorder) NoteDeleted(path string) session.Session {
	r.deleted = append(r.deleted, path)
	return session.Session{}
}

func (r *tabsRecorder) FolderDeleted(folder string) session.Session {
	r.folderDeleted = append(r.folderDeleted, folder)
	return session.Session{}
}

func TestCreateNote_ReturnsExistingUnchanged(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	first, err := svc.CreateNote(ctx, "ideas.md", []byte("original content"))
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	second, err := svc.CreateNote(ctx, "ideas.md", []byte("different content"))
	if err != nil {
		t.Fatalf("CreateNote existing: %v", err)
	}
	if second.Content != first.Content {
		t.Errorf("existing note content = %q, want %q", second.Content, first.Content)
	}
}

func TestGetNote_TitleFallsBackToStem(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "Projects/Q3 Plan.md", []byte("no heading here")); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	n, err := svc.GetNote(ctx, "Projects/Q3 Plan.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if n.Title != "Q3 Plan" {
		t.Errorf("title = %q, want %q", n.Title, "Q3 Plan")
	}
}

func TestGetNote_NotFound(t *testing.T) {
	svc := testService(t)
	_, err := svc.GetNote(context.Background(), "missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateNote_ChecksumConflict(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	n, err := svc.CreateNote(ctx, "c.md", []byte("v1"))
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := svc.UpdateNote(ctx, "c.md", []byte("v2"), n.Checksum); err != nil {
		t.Fatalf("UpdateNote with matching checksum: %v", err)
	}
	_, err = svc.UpdateNote(ctx, "c.md", []byte("v3"), n.Checksum)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale update err = %v, want ErrConflict", err)
	}
}

func TestFindByName(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	if _, err := svc.CreateNote(ctx, "Projects/Roadmap.md", []byte("plans")); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"Roadmap", "roadmap", "Roadmap.md", " roadmap "} {
		n, err := svc.FindByName(ctx, name)
		if err != nil {
			t.Fatalf("FindByName(%q): %v", name, err)
		}
		if n.Path != "Projects/Roadmap.md" {
			t.Errorf("FindByName(%q) path = %q", name, n.Path)
		}
	}
	if _, err := svc.FindByName(ctx, "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown name err = %v, want ErrNotFound", err)
	}
}

func TestRenameNote_ReindexesLinkers(t *testing.T) {
	svc := testService(t)
	rec := &tabsRecorder{}
	svc.SetTabs(rec)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "target.md", []byte("the target")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, "linker.md", []byte("see [[target]]")); err != nil {
		t.Fatal(err)
	}

	n, err := svc.RenameNote(ctx, "target.md", "destination")
	if err != nil {
		t.Fatalf("RenameNote: %v", err)
	}
	if n.Path != "destination.md" {
		t.Errorf("new path = %q, want destination.md", n.Path)
	}

	bl, err := svc.Backlinks(ctx, "target.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(bl) != 0 {
		t.Errorf("old path still has backlinks: %v", bl)
	}
	if len(rec.renamed) != 1 || rec.renamed[0] != "target.md->destination.md" {
		t.Errorf("cascade calls = %v", rec.renamed)
	}
}

func TestMoveNote(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	if err := svc.CreateFolder(ctx, "archive"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, "old.md", []byte("content")); err != nil {
		t.Fatal(err)
	}

	n, err := svc.MoveNote(ctx, "old.md", "archive")
	if err != nil {
		t.Fatalf("MoveNote: %v", err)
	}
	if n.Path != "archive/old.md" {
		t.Errorf("moved path = %q, want archive/old.md", n.Path)
	}
	if _, err := svc.GetNote(ctx, "old.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old path still readable: %v", err)
	}
}

func TestDeleteFolder_TwoPhase(t *testing.T) {
	svc := testService(t)
	rec := &tabsRecorder{}
	svc.SetTabs(rec)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "work/a.md", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, "work/b.md", []byte("b")); err != nil {
		t.Fatal(err)
	}

	contents, err := svc.FolderContents(ctx, "work")
	if err != nil {
		t.Fatalf("FolderContents: %v", err)
	}
	if len(contents) != 2 {
		t.Fatalf("contents = %v, want 2 notes", contents)
	}

	if err := svc.DeleteFolder(ctx, "work"); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	paths, _ := svc.db.AllPaths()
	if len(paths) != 0 {
		t.Errorf("index still holds %v after folder delete", paths)
	}
	if len(rec.folderDeleted) != 1 || rec.folderDeleted[0] != "work" {
		t.Errorf("cascade calls = %v", rec.folderDeleted)
	}
}

func TestRenameFolder_ReindexesContents(t *testing.T) {
	svc := testService(t)
	rec := &tabsRecorder{}
	svc.SetTabs(rec)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "work/sub/deep.md", []byte("deep note")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, "work/top.md", []byte("top note")); err != nil {
		t.Fatal(err)
	}

	newFolder, err := svc.RenameFolder(ctx, "work", "projects")
	if err != nil {
		t.Fatalf("RenameFolder: %v", err)
	}
	if newFolder != "projects" {
		t.Errorf("new folder = %q, want projects", newFolder)
	}

	paths, _ := svc.db.AllPaths()
	for p := range paths {
		if strings.HasPrefix(p, "work/") {
			t.Errorf("stale indexed path %q", p)
		}
	}
	if _, ok := paths["projects/sub/deep.md"]; !ok {
		t.Errorf("projects/sub/deep.md not indexed; have %v", paths)
	}
	if len(rec.folderRenamed) != 1 || rec.folderRenamed[0] != "work->projects" {
		t.Errorf("cascade calls = %v", rec.folderRenamed)
	}
}

func TestDeleteNote_Cascades(t *testing.T) {
	svc := testService(t)
	rec := &tabsRecorder{}
	svc.SetTabs(rec)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "gone.md", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteNote(ctx, "gone.md"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if len(rec.deleted) != 1 || rec.deleted[0] != "gone.md" {
		t.Errorf("cascade calls = %v", rec.deleted)
	}
}

func TestToggleTodo(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	body := "# Tasks\n- [ ] buy milk\n- [x] done already\n"
	if _, err := svc.CreateNote(ctx, "tasks.md", []byte(body)); err != nil {
		t.Fatal(err)
	}

	n, err := svc.ToggleTodo(ctx, "tasks.md", 2)
	if err != nil {
		t.Fatalf("ToggleTodo: %v", err)
	}
	if !strings.Contains(n.Content, "- [x] buy milk") {
		t.Errorf("content after toggle:\n%s", n.Content)
	}

	open, err := svc.Todos(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 0 {
		t.Errorf("open todos = %+v, want none", open)
	}

	if _, err := svc.ToggleTodo(ctx, "tasks.md", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("toggling a non-checkbox line: err = %v, want ErrNotFound", err)
	}
}

func TestDailyNote(t *testing.T) {
	svc := testService(t, WithDailyNotes("journal", "# {{date}}\n\n{{weekday}} notes\n"))
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

	n, err := svc.DailyNote(ctx, now)
	if err != nil {
		t.Fatalf("DailyNote: %v", err)
	}
	if n.Path != "journal/2024-03-15.md" {
		t.Errorf("path = %q", n.Path)
	}
	if !strings.Contains(n.Content, "# 2024-03-15") || !strings.Contains(n.Content, "Friday notes") {
		t.Errorf("template not expanded:\n%s", n.Content)
	}

	// Second access returns the same note without rewriting it.
	if _, err := svc.UpdateNote(ctx, n.Path, []byte(n.Content+"\nedited"), ""); err != nil {
		t.Fatal(err)
	}
	again, err := svc.DailyNote(ctx, now)
	if err != nil {
		t.Fatalf("DailyNote again: %v", err)
	}
	if !strings.Contains(again.Content, "edited") {
		t.Error("second access clobbered the existing daily note")
	}
}

func TestRecentNotes(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	for _, p := range []string{"a.md", "b.md", "c.md"} {
		if _, err := svc.CreateNote(ctx, p, []byte(p)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.GetNote(ctx, "a.md"); err != nil {
		t.Fatal(err)
	}

	recent := svc.RecentNotes(ctx)
	if len(recent) != 3 || recent[0] != "a.md" {
		t.Errorf("recent = %v, want a.md first of 3", recent)
	}

	if err := svc.DeleteNote(ctx, "b.md"); err != nil {
		t.Fatal(err)
	}
	recent = svc.RecentNotes(ctx)
	for _, p := range recent {
		if p == "b.md" {
			t.Error("deleted note still in recent list")
		}
	}
}

func TestExpandTemplateVars(t *testing.T) {
	now := time.Date(2024, 7, 4, 14, 5, 0, 0, time.UTC)
	got := expandTemplateVars("{{date}} {{time}} {{year}}-{{month}}-{{day}} {{weekday}} {{datetime}}", now)
	want := "2024-07-04 14:05 2024-07-04 Thursday 2024-07-04 14:05"
	if got != want {
		t.Errorf("expanded = %q, want %q", got, want)
	}

	if got := expandTemplateVars("", now); got != "# 2024-07-04\n" {
		t.Errorf("empty template = %q", got)
	}
}

func TestBlocks(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	body := "---\ntitle: Plan\n---\n# Plan\n\n## Action Items\n- [ ] one\n"
	if _, err := svc.CreateNote(ctx, "plan.md", []byte(body)); err != nil {
		t.Fatal(err)
	}

	blocks, err := svc.Blocks(ctx, "plan.md")
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("blocks = %+v, want 2", blocks)
	}
	if blocks[1].ID != "action-items" || blocks[1].Line != 6 {
		t.Errorf("blocks[1] = %+v", blocks[1])
	}

	if _, err := svc.Blocks(ctx, "missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing note: err = %v, want ErrNotFound", err)
	}
}

func TestResolveTransclusion(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	body := "# Roadmap\n\n## Q3 Goals\n- ship it\n\n## Q4 Goals\n- rest\n"
	if _, err := svc.CreateNote(ctx, "Projects/Roadmap.md", []byte(body)); err != nil {
		t.Fatal(err)
	}

	// Whole note, name matched case-insensitively without the extension.
	tr, err := svc.ResolveTransclusion(ctx, "roadmap")
	if err != nil {
		t.Fatalf("ResolveTransclusion: %v", err)
	}
	if tr.Path != "Projects/Roadmap.md" || tr.Content != body {
		t.Errorf("whole-note transclusion = %+v", tr)
	}

	// One heading's section, stopping before the next sibling heading.
	tr, err = svc.ResolveTransclusion(ctx, "roadmap#q3-goals")
	if err != nil {
		t.Fatalf("ResolveTransclusion block: %v", err)
	}
	if tr.Content != "## Q3 Goals\n- ship it\n" {
		t.Errorf("section = %q", tr.Content)
	}
	if tr.BlockID != "q3-goals" {
		t.Errorf("block id = %q", tr.BlockID)
	}

	if _, err := svc.ResolveTransclusion(ctx, "roadmap#nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown block: err = %v, want ErrNotFound", err)
	}
	if _, err := svc.ResolveTransclusion(ctx, "ghost#q3-goals"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown note: err = %v, want ErrNotFound", err)
	}
}

func TestLocalGraph(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateNote(ctx, "hub.md", []byte("# Hub\nsee [[spoke]]\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, "spoke.md", []byte("# Spoke\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateNote(ctx, "island.md", []byte("# Island\n")); err != nil {
		t.Fatal(err)
	}
	// Reindex hub now that spoke exists, so the link resolves.
	data := []byte("# Hub\nsee [[spoke]]\n")
	if err := svc.IndexFile("hub.md", data); err != nil {
		t.Fatal(err)
	}

	nodes, links, err := svc.LocalGraph(ctx, "hub.md")
	if err != nil {
		t.Fatalf("LocalGraph: %v", err)
	}
	if len(nodes) != 2 || len(links) != 1 {
		t.Fatalf("nodes = %+v links = %+v, want hub+spoke and one edge", nodes, links)
	}
	for _, n := range nodes {
		if n.ID == "island.md" {
			t.Errorf("unconnected note in local graph: %+v", nodes)
		}
	}
}
