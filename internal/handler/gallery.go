package handler

import (
	"log/slog"
	"net/http"

	"github.com/atelier-catalogo/catalogo/internal/service"
	"github.com/atelier-catalogo/catalogo/internal/view"
)

// placeholderSVG is served at service.DefaultPlaceholderURL.
const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="400" height="500" viewBox="0 0 400 500">` +
	`<rect width="400" height="500" fill="#f3ede6"/>` +
	`<text x="200" y="255" font-family="serif" font-size="22" fill="#9b8b7a" text-anchor="middle">Foto no disponible</text>` +
	`</svg>`

// GalleryHandler renders the public catalog.
type GalleryHandler struct {
	entries *service.EntryService
}

// NewGalleryHandler creates a new GalleryHandler.
func NewGalleryHandler(entries *service.EntryService) *GalleryHandler {
	return &GalleryHandler{entries: entries}
}

// HandleGallery renders the gallery page.
// GET /{$}
func (h *GalleryHandler) HandleGallery(w http.ResponseWriter, r *http.Request) {
	g, err := h.entries.Gallery(r.Context())
	if err != nil {
		slog.Error("load gallery", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	view.GalleryPage(g).Render(r.Context(), w)
}

// HandlePlaceholder serves the image shown for unresolvable photos.
func HandlePlaceholder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write([]byte(placeholderSVG))
}
