package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/testutil"
	"github.com/starford/quire/internal/vault"
)

type env struct {
	router   http.Handler
	root     string
	renderer *testutil.StubRenderer
}

// testEnv sets up a temp vault, journal, service, and router for testing.
// A non-empty authToken switches on token mode.
func testEnv(t *testing.T, authToken string) *env {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) *env {
	t.Helper()
	root, store := testutil.TestVault(t)
	renderer := &testutil.StubRenderer{}
	svc := noteservice.NewService(store, renderer, noteservice.WithJournal(testutil.TestJournal(t)))
	router := NewRouter(svc, vault.NewManager(store), root, authEnabled, token, sseHandler)
	return &env{router: router, root: root, renderer: renderer}
}

func (e *env) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestCreateAndGetNote(t *testing.T) {
	e := testEnv(t, "")

	w := e.do(t, http.MethodPost, "/notes", map[string]string{"title": "Midterm Notes!", "engine": "latex"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[NoteSummary](t, w)
	if created.Path != "notes/midterm-notes.tex" {
		t.Errorf("path = %q, want notes/midterm-notes.tex", created.Path)
	}
	if created.Engine.String() != "latex" {
		t.Errorf("engine = %v", created.Engine)
	}

	w = e.do(t, http.MethodGet, "/notes/notes/midterm-notes.tex", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	doc := decode[NoteDocument](t, w)
	if doc.Title != "midterm-notes" {
		t.Errorf("title = %q", doc.Title)
	}
	if !strings.Contains(doc.Content, `\title{Midterm Notes!}`) {
		t.Errorf("content = %q", doc.Content)
	}
	if got := w.Header().Get("ETag"); got != `"`+doc.Checksum+`"` {
		t.Errorf("ETag = %q, checksum = %q", got, doc.Checksum)
	}
}

func TestCreateCollisionGetsSuffix(t *testing.T) {
	e := testEnv(t, "")

	body := map[string]string{"title": "Midterm Notes!", "engine": "latex"}
	e.do(t, http.MethodPost, "/notes", body)
	w := e.do(t, http.MethodPost, "/notes", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("second create = %d", w.Code)
	}
	if got := decode[NoteSummary](t, w).Path; got != "notes/midterm-notes-2.tex" {
		t.Errorf("path = %q, want notes/midterm-notes-2.tex", got)
	}
}

func TestCreateNote_Validation(t *testing.T) {
	e := testEnv(t, "")

	cases := []map[string]string{
		{"title": "", "engine": "typst"},
		{"title": "   ", "engine": "typst"},
		{"title": "x", "engine": "markdown"},
		{"title": "x"},
	}
	for _, body := range cases {
		w := e.do(t, http.MethodPost, "/notes", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%v: status = %d, want 400", body, w.Code)
			continue
		}
		if kind := decode[errResponse](t, w).Kind; kind != "invalid_input" {
			t.Errorf("%v: kind = %q", body, kind)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON = %d, want 400", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	e := testEnv(t, "")
	testutil.WriteNote(t, e.root, "notes/lock.typ", "v1")

	w := e.do(t, http.MethodGet, "/notes/notes/lock.typ", nil)
	etag := w.Header().Get("ETag")

	w = e.do(t, http.MethodPut, "/notes/notes/lock.typ", map[string]string{"content": "v2"}, "If-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}

	// Same tag again is stale now.
	w = e.do(t, http.MethodPut, "/notes/notes/lock.typ", map[string]string{"content": "v3"}, "If-Match", etag)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}
	if kind := decode[errResponse](t, w).Kind; kind != "conflict" {
		t.Errorf("kind = %q", kind)
	}
	data, _ := os.ReadFile(filepath.Join(e.root, "notes", "lock.typ"))
	if string(data) != "v2" {
		t.Errorf("content = %q, want v2", data)
	}
}

func TestUpdateWithoutIfMatchAndEmptyContent(t *testing.T) {
	e := testEnv(t, "")
	p := testutil.WriteNote(t, e.root, "notes/free.tex", "v1")

	w := e.do(t, http.MethodPut, "/notes/notes/free.tex", map[string]string{"content": ""})
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	data, _ := os.ReadFile(p)
	if len(data) != 0 {
		t.Errorf("content = %q, want empty", data)
	}

	w = e.do(t, http.MethodPut, "/notes/notes/free.tex", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing content = %d, want 400", w.Code)
	}
}

func TestUpdateNote_NotFound(t *testing.T) {
	e := testEnv(t, "")

	w := e.do(t, http.MethodPut, "/notes/notes/ghost.tex", map[string]string{"content": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
	if _, err := os.Stat(filepath.Join(e.root, "notes", "ghost.tex")); err == nil {
		t.Error("save created the note")
	}
}

func TestGetNote_NotFound(t *testing.T) {
	e := testEnv(t, "")

	w := e.do(t, http.MethodGet, "/notes/notes/nope.typ", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
	if kind := decode[errResponse](t, w).Kind; kind != "not_found" {
		t.Errorf("kind = %q", kind)
	}
}

func TestTraversalRejected(t *testing.T) {
	e := testEnv(t, "")

	for _, target := range []string{
		"/notes/..%2F..%2Fetc%2Fpasswd",
		"/preview/..%2Fsecret.tex",
		"/render/%2Fetc%2Fpasswd",
	} {
		method := http.MethodGet
		if strings.HasPrefix(target, "/render") {
			method = http.MethodPost
		}
		w := e.do(t, method, target, nil)
		if w.Code == http.StatusOK {
			t.Errorf("%s %s = 200, want rejection", method, target)
		}
	}
}

func TestListNotes(t *testing.T) {
	e := testEnv(t, "")
	old := testutil.WriteNote(t, e.root, "notes/old.tex", "a")
	testutil.WriteNote(t, e.root, "notes/sub/new.typ", "b")
	testutil.WriteNote(t, e.root, "notes/readme.md", "ignored")
	testutil.WriteNote(t, e.root, "outside.tex", "ignored")
	past := time.Now().Add(-time.Hour)
	_ = os.Chtimes(old, past, past)

	w := e.do(t, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	resp := decode[NoteListResponse](t, w)
	if resp.Total != 2 || len(resp.Notes) != 2 {
		t.Fatalf("notes = %+v", resp.Notes)
	}
	if resp.Notes[0].Path != "notes/sub/new.typ" || resp.Notes[1].Path != "notes/old.tex" {
		t.Errorf("order = %q, %q", resp.Notes[0].Path, resp.Notes[1].Path)
	}
}

func TestVaultEndpoint(t *testing.T) {
	e := testEnv(t, "")
	testutil.WriteNote(t, e.root, "notes/a.typ", "x")

	w := e.do(t, http.MethodGet, "/vault", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("vault = %d", w.Code)
	}
	resp := decode[VaultResponse](t, w)
	if resp.RootPath != e.root || resp.NoteCount != 1 {
		t.Errorf("vault = %+v", resp)
	}
}

func TestPreviewRenderAndServePDF(t *testing.T) {
	e := testEnv(t, "")
	testutil.WriteNote(t, e.root, "notes/a.typ", "= A")

	w := e.do(t, http.MethodGet, "/preview/notes/a.typ", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("preview = %d", w.Code)
	}
	if p := decode[PreviewResponse](t, w); p.PDFPath != nil {
		t.Errorf("pdf before render = %q", *p.PDFPath)
	}

	w = e.do(t, http.MethodGet, "/pdf/notes/a.typ", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("pdf before render = %d, want 404", w.Code)
	}

	w = e.do(t, http.MethodPost, "/render/notes/a.typ", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("render = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[RenderResponse](t, w)
	if res.PDFPath != "notes/a.pdf" || res.Path != "notes/a.typ" || res.RunID == "" {
		t.Errorf("render = %+v", res)
	}

	w = e.do(t, http.MethodGet, "/preview/notes/a.typ", nil)
	if p := decode[PreviewResponse](t, w); p.PDFPath == nil || *p.PDFPath != "notes/a.pdf" {
		t.Errorf("preview after render = %+v", p)
	}

	w = e.do(t, http.MethodGet, "/pdf/notes/a.typ", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pdf = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestRender_ErrorKinds(t *testing.T) {
	e := testEnv(t, "")

	w := e.do(t, http.MethodPost, "/render/notes/missing.tex", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note render = %d, want 404", w.Code)
	}

	testutil.WriteNote(t, e.root, "notes/bad.tex", "x")
	e.renderer.Err = apperr.InvalidInput("latexmk failed: ! Emergency stop.")
	w = e.do(t, http.MethodPost, "/render/notes/bad.tex", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("failed render = %d, want 400", w.Code)
	}
	body := decode[errResponse](t, w)
	if body.Kind != "invalid_input" || !strings.Contains(body.Error, "Emergency stop") {
		t.Errorf("body = %+v", body)
	}

	e.renderer.Err = apperr.IO(os.ErrPermission, "run latexmk")
	w = e.do(t, http.MethodPost, "/render/notes/bad.tex", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("io failure = %d, want 500", w.Code)
	}
	if body := decode[errResponse](t, w); body.Error != "internal error" || body.Kind != "io" {
		t.Errorf("body = %+v", body)
	}
}

func TestRendersHistory(t *testing.T) {
	e := testEnv(t, "")
	testutil.WriteNote(t, e.root, "notes/a.typ", "= A")
	testutil.WriteNote(t, e.root, "notes/b.tex", "x")

	e.do(t, http.MethodPost, "/render/notes/a.typ", nil)
	e.renderer.Err = apperr.InvalidInput("pdflatex failed: boom")
	e.do(t, http.MethodPost, "/render/notes/b.tex", nil)

	w := e.do(t, http.MethodGet, "/renders", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("renders = %d", w.Code)
	}
	all := decode[RenderListResponse](t, w).Renders
	if len(all) != 2 {
		t.Fatalf("renders = %+v", all)
	}

	w = e.do(t, http.MethodGet, "/renders?path=notes/b.tex&limit=5", nil)
	one := decode[RenderListResponse](t, w).Renders
	if len(one) != 1 {
		t.Fatalf("filtered renders = %+v", one)
	}
	if one[0].Path != "notes/b.tex" || one[0].Status != "failed" || one[0].ErrorKind != "invalid_input" {
		t.Errorf("entry = %+v", one[0])
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := testEnv(t, "secret123")

	w := e.do(t, http.MethodPost, "/notes", map[string]string{"title": "Auth", "engine": "typst"},
		"Authorization", "Bearer secret123")
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	e := testEnv(t, "secret123")

	w := e.do(t, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	e := testEnv(t, "secret123")

	w := e.do(t, http.MethodGet, "/notes", nil, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	e := testEnv(t, "")

	w := e.do(t, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// sseStub writes headers and blocks until the request context is done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	e := testEnvWithSSE(t, true, "secret", sseStub)

	w := e.do(t, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	e := testEnvWithSSE(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
