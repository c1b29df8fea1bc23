// Package document converts entry details to and from the stored document
// shape shared by the document-oriented entry repositories.
package document

import (
	"fmt"
	"time"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

// Fields is the stored form of the kind-specific entry fields.
type Fields struct {
	Name          string     `json:"name,omitempty" firestore:"name,omitempty"`
	Title         string     `json:"title,omitempty" firestore:"title,omitempty"`
	Description   string     `json:"description,omitempty" firestore:"description,omitempty"`
	Price         *float64   `json:"price,omitempty" firestore:"price,omitempty"`
	Sizes         []string   `json:"sizes,omitempty" firestore:"sizes,omitempty"`
	CompletedDate *time.Time `json:"completedDate,omitempty" firestore:"completedDate,omitempty"`
}

// FromDetails flattens details into stored fields.
func FromDetails(d domain.Details) Fields {
	switch v := d.(type) {
	case *domain.Garment:
		return Fields{Name: v.Name, Description: v.Description, Price: v.Price, Sizes: v.Sizes}
	case *domain.WorkSample:
		return Fields{Title: v.Title, Description: v.Description, CompletedDate: v.CompletedDate}
	default:
		panic(fmt.Sprintf("document: unhandled details type %T", d))
	}
}

// Details rebuilds the details variant for kind.
func (f Fields) Details(kind domain.Kind) (domain.Details, error) {
	switch kind {
	case domain.KindGarment:
		return &domain.Garment{Name: f.Name, Description: f.Description, Price: f.Price, Sizes: f.Sizes}, nil
	case domain.KindWorkSample:
		return &domain.WorkSample{Title: f.Title, Description: f.Description, CompletedDate: f.CompletedDate}, nil
	}
	return nil, fmt.Errorf("document: unknown kind %q", kind)
}

// Paths returns every stored field of the kind keyed by field name. Absent
// optional values are nil so partial updates can clear them.
func Paths(d domain.Details) map[string]any {
	f := FromDetails(d)
	switch d.(type) {
	case *domain.Garment:
		return map[string]any{
			"name":        f.Name,
			"description": f.Description,
			"price":       nilIfNil(f.Price),
			"sizes":       nilIfEmpty(f.Sizes),
		}
	default:
		var date any
		if f.CompletedDate != nil {
			date = *f.CompletedDate
		}
		return map[string]any{
			"title":         f.Title,
			"description":   f.Description,
			"completedDate": date,
		}
	}
}

func nilIfNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nilIfEmpty(s []string) any {
	if len(s) == 0 {
		return nil
	}
	return s
}
