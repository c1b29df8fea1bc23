package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

// maxJSONBody bounds API payloads; photos travel inline as data URIs.
const maxJSONBody = 50 << 20

// errorResponse is the body of every API error.
type errorResponse struct {
	Message string   `json:"message"`
	Missing []string `json:"missing,omitempty"`
}

// writeJSON sends a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}

// writeError sends a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// readJSON decodes the request body into the given destination.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst)
}

// statusFor maps a service error to its HTTP status and user-facing message.
func statusFor(err error) (int, errorResponse) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		if len(verr.Missing) > 0 {
			return http.StatusBadRequest, errorResponse{Message: "Faltan campos obligatorios.", Missing: verr.Missing}
		}
		return http.StatusBadRequest, errorResponse{Message: verr.Reason}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{Message: err.Error()}
	case errors.Is(err, domain.ErrMissingPrimaryPhoto):
		return http.StatusBadRequest, errorResponse{Message: "La foto principal es obligatoria.", Missing: []string{domain.PrimarySlot}}
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusBadGateway, errorResponse{Message: "No se pudieron subir las fotos. Intente nuevamente."}
	case errors.Is(err, domain.ErrSlotNotFound):
		return http.StatusNotFound, errorResponse{Message: "La foto no existe."}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Message: "La publicación no existe."}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Message: "No autenticado."}
	}
	return http.StatusInternalServerError, errorResponse{Message: "Error en el servidor. Intente nuevamente."}
}

// writeServiceError logs unexpected failures and sends the mapped response.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op, "error", err)
	}
	writeJSON(w, status, body)
}
