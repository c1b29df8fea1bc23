package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/atelier-catalogo/catalogo/internal/domain"
	"github.com/atelier-catalogo/catalogo/internal/service"
	"github.com/atelier-catalogo/catalogo/internal/view"
)

// maxFormBody bounds a multipart submission: every photo slot at its limit
// plus room for the text fields.
const maxFormBody = domain.MaxPhotoSlots*(10<<20) + 1<<20

// AdminHandler serves the management pages.
type AdminHandler struct {
	entries *service.EntryService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(entries *service.EntryService) *AdminHandler {
	return &AdminHandler{entries: entries}
}

// HandleAdmin renders the admin page.
// GET /admin
func (h *AdminHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	h.renderAdmin(w, r, http.StatusOK, "")
}

func (h *AdminHandler) renderAdmin(w http.ResponseWriter, r *http.Request, status int, flash string) {
	op := OperatorFromContext(r.Context())
	if op == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	g, err := h.entries.Gallery(r.Context())
	if err != nil {
		slog.Error("load admin page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	view.AdminPage(op.Email, g, flash).Render(r.Context(), w)
}

// renderFailure re-renders the admin page with the message for err.
func (h *AdminHandler) renderFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op, "error", err)
	}
	msg := body.Message
	if len(body.Missing) > 0 {
		msg += " (" + strings.Join(body.Missing, ", ") + ")"
	}
	h.renderAdmin(w, r, status, msg)
}

// HandleCreate processes a creation form.
// POST /admin/{kind}
func (h *AdminHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	details, files, err := parseEntryForm(w, r, kind)
	if err != nil {
		h.renderFailure(w, r, "parse entry form", err)
		return
	}
	if _, err := h.entries.Create(r.Context(), details, files); err != nil {
		h.renderFailure(w, r, "create entry", err)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleUpdate processes an edit form.
// POST /admin/{kind}/{id}
func (h *AdminHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	details, files, err := parseEntryForm(w, r, kind)
	if err != nil {
		h.renderFailure(w, r, "parse entry form", err)
		return
	}
	removed := r.MultipartForm.Value["remove_photo"]
	if err := validateSlots(removed); err != nil {
		h.renderFailure(w, r, "parse entry form", err)
		return
	}

	if err := h.entries.Update(r.Context(), kind, r.PathValue("id"), details, files, removed); err != nil {
		h.renderFailure(w, r, "update entry", err)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleDelete removes an entry and its card.
// POST /admin/{kind}/{id}/delete
func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	id := r.PathValue("id")

	if err := h.entries.Remove(r.Context(), kind, id); err != nil {
		writeActionError(w, "delete entry", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	sse.RemoveElementByID(view.EntryCardID(id))
}

// HandleDeletePhoto removes one photo and re-renders the entry card.
// POST /admin/{kind}/{id}/photos/{slot}/delete
func (h *AdminHandler) HandleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	id := r.PathValue("id")

	if err := h.entries.RemovePhoto(r.Context(), kind, id, r.PathValue("slot")); err != nil {
		writeActionError(w, "delete photo", err)
		return
	}

	entry, err := h.entries.Get(r.Context(), kind, id)
	if err != nil {
		writeActionError(w, "get entry after photo delete", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	sse.PatchElementTempl(
		view.EntryCard(*entry),
		datastar.WithSelectorID(view.EntryCardID(id)),
	)
}

// writeActionError answers a failed datastar action with a plain status.
func writeActionError(w http.ResponseWriter, op string, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op, "error", err)
	}
	http.Error(w, body.Message, status)
}

func redirectSSE(w http.ResponseWriter, r *http.Request, url string) {
	sse := datastar.NewSSE(w, r)
	sse.Redirect(url)
}

// parseEntryForm reads the text fields and photo slots of a multipart
// entry form. Empty file inputs leave their slot nil.
func parseEntryForm(w http.ResponseWriter, r *http.Request, kind domain.Kind) (domain.Details, []*domain.PhotoUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return nil, nil, &domain.ValidationError{Reason: "el formulario es demasiado grande o está mal formado"}
	}

	var details domain.Details
	switch kind {
	case domain.KindGarment:
		price, err := parsePrice(r.FormValue("price"))
		if err != nil {
			return nil, nil, err
		}
		details = &domain.Garment{
			Name:        r.FormValue("name"),
			Description: r.FormValue("description"),
			Price:       price,
			Sizes:       service.SplitSizes(r.FormValue("sizes")),
		}
	case domain.KindWorkSample:
		date, err := parseDate(r.FormValue("date"))
		if err != nil {
			return nil, nil, err
		}
		details = &domain.WorkSample{
			Title:         r.FormValue("title"),
			Description:   r.FormValue("detail"),
			CompletedDate: date,
		}
	}

	files := make([]*domain.PhotoUpload, domain.MaxPhotoSlots)
	for i := range files {
		file, header, err := r.FormFile(domain.SlotKey(i))
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				continue
			}
			return nil, nil, &domain.ValidationError{Reason: "no se pudo leer " + domain.SlotKey(i)}
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, nil, err
		}
		if len(data) == 0 {
			continue
		}
		// Detect content type from file bytes (more reliable than multipart header).
		files[i] = &domain.PhotoUpload{
			Filename:    header.Filename,
			ContentType: http.DetectContentType(data),
			Data:        data,
		}
	}
	return details, files, nil
}
