package service

import (
	"html"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

var stripTagsPolicy = bluemonday.StripTagsPolicy()

// plainText removes markup and surrounding whitespace from operator input.
// Views escape on output, so entities produced by the policy are decoded.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripTagsPolicy.Sanitize(s)))
}

// SplitSizes turns a comma-joined size list into its canonical form.
func SplitSizes(raw string) []string {
	return normalizeSizes(strings.Split(raw, ","))
}

func normalizeSizes(sizes []string) []string {
	var out []string
	for _, s := range sizes {
		if s = plainText(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeDetails returns a cleaned copy of d.
func normalizeDetails(d domain.Details) domain.Details {
	switch v := d.(type) {
	case *domain.Garment:
		return &domain.Garment{
			Name:        plainText(v.Name),
			Description: plainText(v.Description),
			Price:       v.Price,
			Sizes:       normalizeSizes(v.Sizes),
		}
	case *domain.WorkSample:
		return &domain.WorkSample{
			Title:         plainText(v.Title),
			Description:   plainText(v.Description),
			CompletedDate: v.CompletedDate,
		}
	default:
		panic("service: unhandled details type")
	}
}

// validateDetails enforces the required-field list of each kind.
func validateDetails(d domain.Details) error {
	if missing := d.MissingFields(); len(missing) > 0 {
		return &domain.ValidationError{Missing: missing}
	}
	switch v := d.(type) {
	case *domain.Garment:
		if math.IsNaN(*v.Price) || math.IsInf(*v.Price, 0) {
			return &domain.ValidationError{Reason: "price must be a number"}
		}
		if *v.Price < 0 {
			return &domain.ValidationError{Reason: "price must not be negative"}
		}
	case *domain.WorkSample:
	default:
		panic("service: unhandled details type")
	}
	return nil
}
