package inline_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/atelier-catalogo/catalogo/internal/domain"
	"github.com/atelier-catalogo/catalogo/internal/repository/inline"
)

var _ domain.BlobStore = inline.New()

func TestBlobStore_ReferenceIsPayload(t *testing.T) {
	store := inline.New()
	ctx := context.Background()
	data := []byte("fake-jpeg")

	ref, err := store.Put(ctx, "ignored", "image/jpeg", data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	url, err := store.ResolveURL(ctx, ref)
	if err != nil {
		t.Fatalf("ResolveURL: %v", err)
	}
	if url != ref {
		t.Fatalf("expected URL to equal reference")
	}

	contentType, got, err := inline.ParseDataURI(ref)
	if err != nil {
		t.Fatalf("ParseDataURI: %v", err)
	}
	if contentType != "image/jpeg" || !bytes.Equal(got, data) {
		t.Fatalf("unexpected payload %q %q", contentType, got)
	}
}

func TestBlobStore_ResolveRejectsKeys(t *testing.T) {
	_, err := inline.New().ResolveURL(context.Background(), "garments/a.jpg")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseDataURI_Invalid(t *testing.T) {
	for _, uri := range []string{
		"http://example.com/a.jpg",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,%%%",
	} {
		if _, _, err := inline.ParseDataURI(uri); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%q: expected ErrInvalidInput, got %v", uri, err)
		}
	}
}

func TestParseDataURI_StripsParameters(t *testing.T) {
	contentType, _, err := inline.ParseDataURI("data:image/png;name=a.png;base64,AA==")
	if err != nil {
		t.Fatalf("ParseDataURI: %v", err)
	}
	if contentType != "image/png" {
		t.Fatalf("expected image/png, got %q", contentType)
	}
}
