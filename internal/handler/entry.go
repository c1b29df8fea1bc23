package handler

import (
	"net/http"

	"github.com/atelier-catalogo/catalogo/internal/domain"
	"github.com/atelier-catalogo/catalogo/internal/service"
)

// EntryHandler serves the JSON API for garments and work samples.
type EntryHandler struct {
	entries *service.EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entries *service.EntryService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

// kindOf reads the kind the route was registered for.
func kindOf(w http.ResponseWriter, r *http.Request) (domain.Kind, bool) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Recurso desconocido.")
		return "", false
	}
	return kind, true
}

// HandleCreate creates an entry.
// POST /api/{kind}
// Response: 201 {"id": "..."}
func (h *EntryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindOf(w, r)
	if !ok {
		return
	}

	var req entryRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Cuerpo de la solicitud inválido.")
		return
	}
	details, err := req.details(kind, nil)
	if err != nil {
		writeServiceError(w, "create entry", err)
		return
	}
	files, err := req.uploads()
	if err != nil {
		writeServiceError(w, "create entry", err)
		return
	}

	id, err := h.entries.Create(r.Context(), details, files)
	if err != nil {
		writeServiceError(w, "create entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// HandleList returns every entry of the kind, newest first.
// GET /api/{kind}
func (h *EntryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindOf(w, r)
	if !ok {
		return
	}
	entries, err := h.entries.List(r.Context(), kind)
	if err != nil {
		writeServiceError(w, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// HandleGet returns a single entry.
// GET /api/{kind}/{id}
func (h *EntryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindOf(w, r)
	if !ok {
		return
	}
	entry, err := h.entries.Get(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// HandleUpdate applies a partial update.
// PATCH /api/{kind}/{id}
// Request: any subset of the entry fields, "photos" to add or replace slots
// and "removePhotos" to clear slots.
func (h *EntryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindOf(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	var req entryRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Cuerpo de la solicitud inválido.")
		return
	}
	if err := validateSlots(req.RemovePhotos); err != nil {
		writeServiceError(w, "update entry", err)
		return
	}
	files, err := req.uploads()
	if err != nil {
		writeServiceError(w, "update entry", err)
		return
	}

	var details domain.Details
	if req.hasFields(kind) {
		current, err := h.entries.Get(r.Context(), kind, id)
		if err != nil {
			writeServiceError(w, "update entry", err)
			return
		}
		if details, err = req.details(kind, current.Details); err != nil {
			writeServiceError(w, "update entry", err)
			return
		}
	}

	if err := h.entries.Update(r.Context(), kind, id, details, files, req.RemovePhotos); err != nil {
		writeServiceError(w, "update entry", err)
		return
	}

	entry, err := h.entries.Get(r.Context(), kind, id)
	if err != nil {
		writeServiceError(w, "get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// HandleDelete removes an entry and its photos.
// DELETE /api/{kind}/{id}
func (h *EntryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindOf(w, r)
	if !ok {
		return
	}
	if err := h.entries.Remove(r.Context(), kind, r.PathValue("id")); err != nil {
		writeServiceError(w, "delete entry", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Publicación eliminada"})
}

// HandleDeletePhoto removes a single photo from an entry.
// DELETE /api/{kind}/{id}/photos/{slot}
func (h *EntryHandler) HandleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindOf(w, r)
	if !ok {
		return
	}
	if err := h.entries.RemovePhoto(r.Context(), kind, r.PathValue("id"), r.PathValue("slot")); err != nil {
		writeServiceError(w, "delete photo", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Foto eliminada"})
}
