package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

// PhotoHandler serves photo bytes for stores that keep them locally.
type PhotoHandler struct {
	photos domain.BlobReader
}

// NewPhotoHandler creates a new PhotoHandler.
func NewPhotoHandler(photos domain.BlobReader) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

// HandleServe serves photo bytes with the stored Content-Type.
// GET /photos/{key...}
func (h *PhotoHandler) HandleServe(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.NotFound(w, r)
		return
	}

	data, contentType, err := h.photos.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Error("serve photo", "key", key, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Keys are never reused, so the bytes behind a URL never change.
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
