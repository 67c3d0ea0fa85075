package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/engine"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/vault"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers for one vault.
type Handler struct {
	svc    *noteservice.Service
	vaults *vault.Manager
	root   string
}

// NewHandler creates a new Handler serving the vault at root.
func NewHandler(svc *noteservice.Service, vaults *vault.Manager, root string) *Handler {
	return &Handler{svc: svc, vaults: vaults, root: root}
}

// notePath extracts the vault-relative path from the URL wildcard and
// resolves it under the vault root. Encoded slashes (notes%2Fa.tex) are
// accepted.
func (h *Handler) notePath(r *http.Request) (string, error) {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return storage.Resolve(h.root, raw)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.InvalidInput("invalid JSON body")
	}
	return nil
}

// Vault handles GET /api/vault.
//
//	@Summary		Describe the served vault
//	@Tags			vault
//	@Produce		json
//	@Success		200	{object}	VaultResponse
//	@Security		BearerAuth
//	@Router			/vault [get]
func (h *Handler) Vault(w http.ResponseWriter, _ *http.Request) {
	info, err := h.vaults.OpenOrCreate(h.root)
	if err != nil {
		writeError(w, "open vault", err)
		return
	}
	writeJSON(w, http.StatusOK, VaultResponse{RootPath: info.RootPath, NoteCount: info.NoteCount})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, most recently modified first
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, _ *http.Request) {
	notes, err := h.vaults.ListNotes(h.root)
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	items := make([]NoteSummary, len(notes))
	for i, n := range notes {
		items[i] = toSummary(h.root, n)
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Vault-relative note path"
//	@Success		200		{object}	NoteDocument
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path, err := h.notePath(r)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	doc, err := h.svc.ReadNote(r.Context(), path)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, http.StatusOK, NoteDocument{
		NoteSummary: toSummary(h.root, doc.NoteSummary),
		Content:     doc.Content,
		Checksum:    doc.Checksum,
	})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note from the engine template
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Title and engine"
//	@Success		201		{object}	NoteSummary
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "create note", err)
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.KindInvalidInput, err.Error()))
		return
	}
	eng, err := engine.Parse(req.Engine)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	summary, err := h.svc.CreateNote(r.Context(), h.root, req.Title, eng)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSummary(h.root, *summary))
}

// UpdateNote handles PUT /api/notes/*.
//
//	@Summary		Replace note content with optional optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Vault-relative note path"
//	@Param			If-Match	header	string				false	"Checksum the client last read"
//	@Param			body		body	UpdateNoteRequest	true	"New content"
//	@Success		200		{object}	SaveNoteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	path, err := h.notePath(r)
	if err != nil {
		writeError(w, "save note", err)
		return
	}
	var req UpdateNoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "save note", err)
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(apperr.KindInvalidInput, err.Error()))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	sum, err := h.svc.SaveNoteIfMatch(r.Context(), path, *req.Content, ifMatch)
	if err != nil {
		writeError(w, "save note", err)
		return
	}
	w.Header().Set("ETag", `"`+sum+`"`)
	writeJSON(w, http.StatusOK, SaveNoteResponse{Path: storage.Rel(h.root, path), Checksum: sum})
}

// Preview handles GET /api/preview/*.
//
//	@Summary		Locate the rendered PDF of a note without rendering
//	@Tags			render
//	@Produce		json
//	@Param			path	path		string	true	"Vault-relative note path"
//	@Success		200		{object}	PreviewResponse
//	@Security		BearerAuth
//	@Router			/preview/{path} [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	path, err := h.notePath(r)
	if err != nil {
		writeError(w, "preview", err)
		return
	}
	resp := PreviewResponse{Path: storage.Rel(h.root, path)}
	if pdf, ok := h.svc.ResolvePdfPreview(path); ok {
		rel := storage.Rel(h.root, pdf)
		resp.PDFPath = &rel
	}
	writeJSON(w, http.StatusOK, resp)
}

// Render handles POST /api/render/*.
//
//	@Summary		Render a note to PDF
//	@Tags			render
//	@Produce		json
//	@Param			path	path		string	true	"Vault-relative note path"
//	@Success		200		{object}	RenderResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render/{path} [post]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	path, err := h.notePath(r)
	if err != nil {
		writeError(w, "render", err)
		return
	}
	res, err := h.svc.RenderToPdf(r.Context(), path)
	if err != nil {
		writeError(w, "render", err)
		return
	}
	writeJSON(w, http.StatusOK, toRenderResponse(h.root, res))
}

// Renders handles GET /api/renders.
//
//	@Summary		List recorded render runs, newest first
//	@Tags			render
//	@Produce		json
//	@Param			path	query		string	false	"Vault-relative note path"
//	@Param			limit	query		int		false	"Max entries"
//	@Success		200		{object}	RenderListResponse
//	@Security		BearerAuth
//	@Router			/renders [get]
func (h *Handler) Renders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	var path string
	if rel := q.Get("path"); rel != "" {
		abs, err := storage.Resolve(h.root, rel)
		if err != nil {
			writeError(w, "list renders", err)
			return
		}
		path = abs
	}

	entries, err := h.svc.History(r.Context(), path, limit)
	if err != nil {
		writeError(w, "list renders", err)
		return
	}
	out := make([]RenderEntry, len(entries))
	for i, e := range entries {
		out[i] = toRenderEntry(h.root, e)
	}
	writeJSON(w, http.StatusOK, RenderListResponse{Renders: out})
}
