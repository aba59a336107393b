package mcpserver

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/noteservice"
	"github.com/starford/ansuz/internal/storage"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "ansuz-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	svc := noteservice.NewService(store, db)
	srv := New(svc, store)
	return srv, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "find_note":
		result, err = srv.findNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "list_todos":
		result, err = srv.listTodos(ctx, req)
	case "daily_note":
		result, err = srv.dailyNote(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "test.md",
		"content": "# Test\nHello",
	})
	text := resultText(r)
	if text != "created: test.md" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{
		"path": "test.md",
	})
	text = resultText(r)
	if text != "# Test\nHello" {
		t.Errorf("read result = %q", text)
	}
}

func TestCreateExistingNote(t *testing.T) {
	srv, _ := testServer(t)

	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path": "dup.md", "content": "original",
	})
	r := callTool(t, srv, "create_note", map[string]interface{}{
		"path": "dup.md", "content": "clobber attempt",
	})
	if text := resultText(r); !strings.Contains(text, "already exists") {
		t.Errorf("duplicate create result = %q", text)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{"path": "dup.md"})
	if text := resultText(r); text != "original" {
		t.Errorf("content after duplicate create = %q", text)
	}
}

func TestFindNote(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path": "Projects/Roadmap.md", "content": "plans",
	})

	r := callTool(t, srv, "find_note", map[string]interface{}{"name": "roadmap"})
	if text := resultText(r); !strings.HasPrefix(text, "Projects/Roadmap.md") {
		t.Errorf("find result = %q", text)
	}

	r = callTool(t, srv, "find_note", map[string]interface{}{"name": "ghost"})
	if !r.IsError {
		t.Error("expected error for unknown name")
	}
}

func TestListNotes(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("a.md", []byte("a"))
	_ = store.Write("b.md", []byte("b"))

	r := callTool(t, srv, "list_notes", map[string]interface{}{})
	text := resultText(r)
	if text == "" {
		t.Error("list returned empty")
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "b.md",
		"content": "the target",
	})
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "a.md",
		"content": "links to [[b]]",
	})

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"path": "b.md"})
	text := resultText(r)
	if text != "a.md" {
		t.Errorf("backlinks = %q, want a.md", text)
	}
}

func TestListTodos(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]interface{}{
		"path":    "tasks.md",
		"content": "- [ ] write docs\n- [x] ship it",
	})

	r := callTool(t, srv, "list_todos", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "tasks.md:1 write docs") {
		t.Errorf("todos = %q", text)
	}
	if strings.Contains(text, "ship it") {
		t.Errorf("done todo leaked into open list: %q", text)
	}
}

func TestDailyNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "daily_note", map[string]interface{}{})
	text := resultText(r)
	if !strings.HasPrefix(text, "Daily Notes/") {
		t.Errorf("daily note result = %q", text)
	}
}
