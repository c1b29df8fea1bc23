package firestore

import (
	"testing"

	"cloud.google.com/go/firestore"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

func TestBuildUpdates_PhotoSlotsUseFieldPaths(t *testing.T) {
	updates := buildUpdates(domain.EntryUpdate{
		SetPhotos:  domain.PhotoSet{"photo1": "C"},
		DropPhotos: []string{"photo2"},
	})
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}

	byPath := map[string]any{}
	for _, u := range updates {
		if len(u.FieldPath) != 2 || u.FieldPath[0] != "photos" {
			t.Fatalf("unexpected field path %v", u.FieldPath)
		}
		byPath[u.FieldPath[1]] = u.Value
	}
	if byPath["photo1"] != "C" {
		t.Fatalf("expected photo1=C, got %v", byPath["photo1"])
	}
	if byPath["photo2"] != firestore.Delete {
		t.Fatalf("expected photo2 to use the delete sentinel, got %v", byPath["photo2"])
	}
}

func TestBuildUpdates_ClearsAbsentOptionalFields(t *testing.T) {
	price := 10.0
	updates := buildUpdates(domain.EntryUpdate{
		Details: &domain.Garment{Name: "Vestido", Price: &price},
	})

	byPath := map[string]any{}
	for _, u := range updates {
		byPath[u.FieldPath[0]] = u.Value
	}
	if byPath["name"] != "Vestido" || byPath["price"] != 10.0 {
		t.Fatalf("unexpected updates %v", byPath)
	}
	if byPath["sizes"] != firestore.Delete {
		t.Fatalf("expected sizes to be deleted, got %v", byPath["sizes"])
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	e := &domain.Entry{
		Kind:    domain.KindWorkSample,
		Details: &domain.WorkSample{Title: "Boda", Description: "Encaje"},
		Photos:  domain.PhotoSet{"photo1": "A"},
	}
	got, err := toDocument(e).toEntry(domain.KindWorkSample, "id1")
	if err != nil {
		t.Fatalf("toEntry: %v", err)
	}
	ws := got.Details.(*domain.WorkSample)
	if got.ID != "id1" || ws.Title != "Boda" || got.Photos["photo1"] != "A" {
		t.Fatalf("unexpected entry %+v", got)
	}
}
