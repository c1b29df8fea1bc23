package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind names a catalog listing type. It doubles as the collection name and
// the URL segment of the listing.
type Kind string

const (
	KindGarment    Kind = "garments"
	KindWorkSample Kind = "work-samples"
)

// Kinds lists every catalog kind in display order.
var Kinds = []Kind{KindGarment, KindWorkSample}

// ParseKind validates a raw kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindGarment, KindWorkSample:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: unknown catalog kind %q", ErrInvalidInput, s)
}

// Details holds the kind-specific text fields of an entry. It is implemented
// only by *Garment and *WorkSample.
type Details interface {
	Kind() Kind
	// MissingFields returns the names of required fields that are blank.
	MissingFields() []string
	details()
}

// Garment is a dress offered for sale.
type Garment struct {
	Name        string
	Description string
	Price       *float64 // nil when not provided
	Sizes       []string
}

func (*Garment) Kind() Kind { return KindGarment }
func (*Garment) details()   {}

func (g *Garment) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(g.Name) == "" {
		missing = append(missing, "name")
	}
	if g.Price == nil {
		missing = append(missing, "price")
	}
	return missing
}

// WorkSample showcases a finished commission.
type WorkSample struct {
	Title         string
	Description   string
	CompletedDate *time.Time // nil when unknown
}

func (*WorkSample) Kind() Kind { return KindWorkSample }
func (*WorkSample) details()   {}

func (w *WorkSample) MissingFields() []string {
	if strings.TrimSpace(w.Title) == "" {
		return []string{"title"}
	}
	return nil
}

// Entry is a persisted catalog listing.
type Entry struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time
	Details   Details
	Photos    PhotoSet
}

// ResolvedEntry is an entry whose photo references have been turned into
// retrieval URLs for rendering.
type ResolvedEntry struct {
	Entry
	PhotoURLs map[string]string
}

// PrimaryURL returns the cover image URL, falling back to the first
// populated slot when photo1 is absent.
func (e ResolvedEntry) PrimaryURL() string {
	if u, ok := e.PhotoURLs[PrimarySlot]; ok {
		return u
	}
	for _, k := range e.Photos.Keys() {
		if u, ok := e.PhotoURLs[k]; ok {
			return u
		}
	}
	return ""
}

// Gallery is the public catalog page content.
type Gallery struct {
	Heading     string
	Garments    []ResolvedEntry
	WorkSamples []ResolvedEntry
}

// EntryUpdate describes a partial update. A nil Details leaves the text
// fields untouched. SetPhotos overwrites or adds slots; DropPhotos removes
// slots without rewriting the rest of the photo set.
type EntryUpdate struct {
	Details    Details
	SetPhotos  PhotoSet
	DropPhotos []string
}

// EntryRepository persists catalog entries, one collection per kind.
type EntryRepository interface {
	// Insert stores a new entry and assigns its ID.
	Insert(ctx context.Context, entry *Entry) error
	// ListAll returns every entry of the kind, newest first.
	ListAll(ctx context.Context, kind Kind) ([]Entry, error)
	GetByID(ctx context.Context, kind Kind, id string) (*Entry, error)
	UpdatePartial(ctx context.Context, kind Kind, id string, update EntryUpdate) error
	DeleteByID(ctx context.Context, kind Kind, id string) error
}
