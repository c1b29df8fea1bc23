package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atelier-catalogo/catalogo/internal/domain"
	"github.com/atelier-catalogo/catalogo/internal/repository/inline"
	"github.com/atelier-catalogo/catalogo/internal/service"
)

const dateLayout = "2006-01-02"

// EntryDTO is the JSON representation of a catalog entry. Photos carry
// resolved URLs keyed by slot.
type EntryDTO struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	CreatedAt string            `json:"createdAt"`
	Photos    map[string]string `json:"photos"`

	// Garment fields.
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`

	// Work sample fields.
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
	Date   string `json:"date,omitempty"`
}

func toEntryDTO(e domain.ResolvedEntry) EntryDTO {
	dto := EntryDTO{
		ID:        e.ID,
		Kind:      string(e.Kind),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		Photos:    e.PhotoURLs,
	}
	switch d := e.Details.(type) {
	case *domain.Garment:
		dto.Name = d.Name
		dto.Description = d.Description
		dto.Price = d.Price
		dto.Sizes = d.Sizes
	case *domain.WorkSample:
		dto.Title = d.Title
		dto.Detail = d.Description
		if d.CompletedDate != nil {
			dto.Date = d.CompletedDate.Format(dateLayout)
		}
	}
	return dto
}

func toEntryDTOs(entries []domain.ResolvedEntry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

// entryRequest is the body of create and patch requests for either kind.
// Pointer fields distinguish "absent" from "empty" for partial updates.
type entryRequest struct {
	Name        *string     `json:"name"`
	Description *string     `json:"description"`
	Price       *priceField `json:"price"`
	Sizes       *sizesField `json:"sizes"`

	Title  *string `json:"title"`
	Detail *string `json:"detail"`
	Date   *string `json:"date"`

	Photos       map[string]string `json:"photos"`
	RemovePhotos []string          `json:"removePhotos"`
}

// priceField accepts a JSON number or a numeric string.
type priceField struct{ value *float64 }

func (p *priceField) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		p.value = &v
	case string:
		parsed, err := parsePrice(v)
		if err != nil {
			return err
		}
		p.value = parsed
	default:
		return errors.New("price must be a number")
	}
	return nil
}

// sizesField accepts a JSON list or a comma-joined string.
type sizesField struct{ values []string }

func (s *sizesField) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(b, &s.values); err == nil {
		return nil
	}
	var joined string
	if err := json.Unmarshal(b, &joined); err != nil {
		return errors.New("sizes must be a list or a comma-separated string")
	}
	s.values = service.SplitSizes(joined)
	return nil
}

// parsePrice turns form input into a price; blank input is absent.
func parsePrice(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, &domain.ValidationError{Reason: "price must be a number"}
	}
	return &v, nil
}

// parseDate turns YYYY-MM-DD input into a date; blank input is absent.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, &domain.ValidationError{Reason: "date must be formatted as YYYY-MM-DD"}
	}
	return &d, nil
}

// hasFields reports whether the request touches any text field of kind.
func (req *entryRequest) hasFields(kind domain.Kind) bool {
	if kind == domain.KindGarment {
		return req.Name != nil || req.Description != nil || req.Price != nil || req.Sizes != nil
	}
	return req.Title != nil || req.Detail != nil || req.Date != nil
}

// details builds the Details of kind from the request, starting from base
// so that absent fields keep their current value on partial updates.
func (req *entryRequest) details(kind domain.Kind, base domain.Details) (domain.Details, error) {
	switch kind {
	case domain.KindGarment:
		g := &domain.Garment{}
		if b, ok := base.(*domain.Garment); ok {
			*g = *b
		}
		if req.Name != nil {
			g.Name = *req.Name
		}
		if req.Description != nil {
			g.Description = *req.Description
		}
		if req.Price != nil {
			g.Price = req.Price.value
		}
		if req.Sizes != nil {
			g.Sizes = req.Sizes.values
		}
		return g, nil
	case domain.KindWorkSample:
		w := &domain.WorkSample{}
		if b, ok := base.(*domain.WorkSample); ok {
			*w = *b
		}
		if req.Title != nil {
			w.Title = *req.Title
		}
		if req.Detail != nil {
			w.Description = *req.Detail
		}
		if req.Date != nil {
			d, err := parseDate(*req.Date)
			if err != nil {
				return nil, err
			}
			w.CompletedDate = d
		}
		return w, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidInput, kind)
}

// uploads decodes the inline photos into form-positioned uploads.
func (req *entryRequest) uploads() ([]*domain.PhotoUpload, error) {
	if len(req.Photos) == 0 {
		return nil, nil
	}
	files := make([]*domain.PhotoUpload, domain.MaxPhotoSlots)
	for slot, uri := range req.Photos {
		i, ok := domain.SlotIndex(slot)
		if !ok || i >= domain.MaxPhotoSlots {
			return nil, &domain.ValidationError{Reason: fmt.Sprintf("unknown photo slot %q", slot)}
		}
		if uri == "" {
			continue
		}
		contentType, data, err := inline.ParseDataURI(uri)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", slot, err)
		}
		files[i] = &domain.PhotoUpload{Filename: slot, ContentType: contentType, Data: data}
	}
	return files, nil
}

func validateSlots(slots []string) error {
	for _, slot := range slots {
		if _, ok := domain.SlotIndex(slot); !ok {
			return &domain.ValidationError{Reason: fmt.Sprintf("unknown photo slot %q", slot)}
		}
	}
	return nil
}
