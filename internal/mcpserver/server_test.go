package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/testutil"
	"github.com/starford/quire/internal/vault"
)

func testServer(t *testing.T) (*Server, string, *testutil.StubRenderer) {
	t.Helper()
	root, store := testutil.TestVault(t)
	renderer := &testutil.StubRenderer{}
	svc := noteservice.NewService(store, renderer)
	return New(svc, vault.NewManager(store), root), root, renderer
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "save_note":
		result, err = srv.saveNote(ctx, req)
	case "resolve_pdf_preview":
		result, err = srv.resolvePdfPreview(ctx, req)
	case "render_note":
		result, err = srv.renderNote(ctx, req)
	case "get_engine_contract":
		result, err = srv.getEngineContract(ctx, req)
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

func TestCreateReadSaveNote(t *testing.T) {
	srv, root, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"title":  "Midterm Notes!",
		"engine": "typst",
	})
	if text := resultText(r); text != "created: notes/midterm-notes.typ" {
		t.Fatalf("create result = %q", text)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{"path": "notes/midterm-notes.typ"})
	if text := resultText(r); !strings.HasPrefix(text, `#set document(title: "Midterm Notes!")`) {
		t.Errorf("read result = %q", text)
	}

	r = callTool(t, srv, "save_note", map[string]interface{}{
		"path":    "notes/midterm-notes.typ",
		"content": "= Rewritten\n",
	})
	if r.IsError {
		t.Fatalf("save failed: %s", resultText(r))
	}
	data, _ := os.ReadFile(filepath.Join(root, "notes", "midterm-notes.typ"))
	if string(data) != "= Rewritten\n" {
		t.Errorf("content = %q", data)
	}
}

func TestCreateNote_BadEngine(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "create_note", map[string]interface{}{"title": "x", "engine": "word"})
	if !r.IsError || !strings.HasPrefix(resultText(r), "[invalid_input]") {
		t.Errorf("result = %q, want invalid_input error", resultText(r))
	}
}

func TestListNotes(t *testing.T) {
	srv, root, _ := testServer(t)
	testutil.WriteNote(t, root, "notes/a.tex", "a")
	testutil.WriteNote(t, root, "notes/deep/b.typ", "b")
	testutil.WriteNote(t, root, "notes/c.txt", "c")

	r := callTool(t, srv, "list_notes", map[string]interface{}{})
	var items []noteItem
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	paths := map[string]bool{}
	for _, it := range items {
		paths[it.Path] = true
	}
	if !paths["notes/a.tex"] || !paths["notes/deep/b.typ"] {
		t.Errorf("paths = %v", paths)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "notes/nope.tex"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
	if !strings.HasPrefix(resultText(r), "[not_found]") {
		t.Errorf("error = %q", resultText(r))
	}
}

func TestSaveNote_NeverCreates(t *testing.T) {
	srv, root, _ := testServer(t)
	r := callTool(t, srv, "save_note", map[string]interface{}{"path": "notes/ghost.tex", "content": "x"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
	if _, err := os.Stat(filepath.Join(root, "notes", "ghost.tex")); err == nil {
		t.Error("save_note created a file")
	}
}

func TestSaveNote_MissingContent(t *testing.T) {
	srv, root, _ := testServer(t)
	testutil.WriteNote(t, root, "notes/a.tex", "keep")
	r := callTool(t, srv, "save_note", map[string]interface{}{"path": "notes/a.tex"})
	if !r.IsError {
		t.Error("expected error without content")
	}
}

func TestPathTraversalRejected(t *testing.T) {
	srv, _, _ := testServer(t)
	for _, p := range []string{"../outside.tex", "/etc/passwd", "notes/../../x.typ"} {
		r := callTool(t, srv, "read_note", map[string]interface{}{"path": p})
		if !r.IsError || !strings.HasPrefix(resultText(r), "[invalid_input]") {
			t.Errorf("read %q = %q, want invalid_input", p, resultText(r))
		}
	}
}

func TestRenderAndPreview(t *testing.T) {
	srv, root, renderer := testServer(t)
	testutil.WriteNote(t, root, "notes/a.typ", "= A")

	r := callTool(t, srv, "resolve_pdf_preview", map[string]interface{}{"path": "notes/a.typ"})
	if text := resultText(r); text != "no pdf rendered yet" {
		t.Errorf("preview before render = %q", text)
	}

	r = callTool(t, srv, "render_note", map[string]interface{}{"path": "notes/a.typ"})
	if r.IsError {
		t.Fatalf("render failed: %s", resultText(r))
	}
	var item renderItem
	if err := json.Unmarshal([]byte(resultText(r)), &item); err != nil {
		t.Fatal(err)
	}
	if item.PDFPath != "notes/a.pdf" {
		t.Errorf("pdf = %q", item.PDFPath)
	}

	r = callTool(t, srv, "resolve_pdf_preview", map[string]interface{}{"path": "notes/a.typ"})
	if text := resultText(r); text != "notes/a.pdf" {
		t.Errorf("preview after render = %q", text)
	}

	renderer.Err = apperr.InvalidInput("typst failed: error: unclosed delimiter")
	r = callTool(t, srv, "render_note", map[string]interface{}{"path": "notes/a.typ"})
	if !r.IsError || !strings.Contains(resultText(r), "unclosed delimiter") {
		t.Errorf("failed render = %q", resultText(r))
	}
}

func TestEngineContract(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_engine_contract", map[string]interface{}{})
	text := resultText(r)
	for _, want := range []string{"notes/", ".tex", ".typ", "latexmk", "pdflatex", "typst compile"} {
		if !strings.Contains(text, want) {
			t.Errorf("contract missing %q", want)
		}
	}

	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != contractURI || tc.Text != EngineContract {
		t.Errorf("resource = %+v", contents[0])
	}
}
