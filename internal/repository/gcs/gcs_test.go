package gcs

import (
	"errors"
	"testing"

	"cloud.google.com/go/storage"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

var _ domain.BlobStore = (*BlobStore)(nil)

func TestPublicURL_EscapesSegments(t *testing.T) {
	got := publicURL("atelier", "garments/01H-vestido azul.jpg")
	want := "https://storage.googleapis.com/atelier/garments/01H-vestido%20azul.jpg"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestMapError_NotFound(t *testing.T) {
	if err := mapError("delete", "k", storage.ErrObjectNotExist); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	other := errors.New("boom")
	if err := mapError("delete", "k", other); !errors.Is(err, other) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
