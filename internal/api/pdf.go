package api

import (
	"net/http"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/storage"
)

// ServePDF handles GET /api/pdf/*. The wildcard is the note path; the
// response is the PDF rendered beside it.
//
//	@Summary		Download the rendered PDF of a note
//	@Tags			render
//	@Produce		application/pdf
//	@Param			path	path	string	true	"Vault-relative note path"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pdf/{path} [get]
func (h *Handler) ServePDF(w http.ResponseWriter, r *http.Request) {
	path, err := h.notePath(r)
	if err != nil {
		writeError(w, "serve pdf", err)
		return
	}
	pdf, ok := h.svc.ResolvePdfPreview(path)
	if !ok {
		writeError(w, "serve pdf", apperr.NotFound("no rendered pdf for %s", storage.Rel(h.root, path)))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, pdf)
}
