package service_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/atelier-catalogo/catalogo/internal/domain"
	"github.com/atelier-catalogo/catalogo/internal/service"
)

func jpeg(name string) *domain.PhotoUpload {
	return &domain.PhotoUpload{Filename: name, ContentType: "image/jpeg", Data: []byte("jpeg:" + name)}
}

func TestMergeForEdit_OverwriteOrphansOldReference(t *testing.T) {
	merged, orphaned := service.MergeForEdit(
		domain.PhotoSet{"photo1": "A", "photo2": "B"},
		domain.PhotoSet{"photo1": "C"},
		nil,
	)

	if want := (domain.PhotoSet{"photo1": "C", "photo2": "B"}); !reflect.DeepEqual(merged, want) {
		t.Fatalf("expected merged %v, got %v", want, merged)
	}
	if want := []string{"A"}; !reflect.DeepEqual(orphaned, want) {
		t.Fatalf("expected orphaned %v, got %v", want, orphaned)
	}
}

func TestMergeForEdit_RemovalOrphansReference(t *testing.T) {
	merged, orphaned := service.MergeForEdit(
		domain.PhotoSet{"photo1": "A", "photo2": "B"},
		domain.PhotoSet{},
		[]string{"photo2"},
	)

	if want := (domain.PhotoSet{"photo1": "A"}); !reflect.DeepEqual(merged, want) {
		t.Fatalf("expected merged %v, got %v", want, merged)
	}
	if want := []string{"B"}; !reflect.DeepEqual(orphaned, want) {
		t.Fatalf("expected orphaned %v, got %v", want, orphaned)
	}
}

func TestMergeForEdit_DoesNotMutateInputs(t *testing.T) {
	existing := domain.PhotoSet{"photo1": "A"}
	service.MergeForEdit(existing, domain.PhotoSet{"photo1": "B"}, []string{"photo1"})
	if existing["photo1"] != "A" {
		t.Fatalf("existing set was mutated: %v", existing)
	}
}

func TestMergeForEdit_ReplacedAndRemovedSlotOrphansBoth(t *testing.T) {
	merged, orphaned := service.MergeForEdit(
		domain.PhotoSet{"photo1": "A", "photo2": "B"},
		domain.PhotoSet{"photo2": "C"},
		[]string{"photo2"},
	)
	if want := (domain.PhotoSet{"photo1": "A"}); !reflect.DeepEqual(merged, want) {
		t.Fatalf("expected merged %v, got %v", want, merged)
	}
	if want := []string{"B", "C"}; !reflect.DeepEqual(orphaned, want) {
		t.Fatalf("expected orphaned %v, got %v", want, orphaned)
	}
}

func TestMergeForEdit_AddNewSlot(t *testing.T) {
	merged, orphaned := service.MergeForEdit(
		domain.PhotoSet{"photo1": "A"},
		domain.PhotoSet{"photo3": "D"},
		[]string{"photo2"}, // not present: no effect
	)
	if want := (domain.PhotoSet{"photo1": "A", "photo3": "D"}); !reflect.DeepEqual(merged, want) {
		t.Fatalf("expected merged %v, got %v", want, merged)
	}
	if len(orphaned) != 0 {
		t.Fatalf("expected no orphans, got %v", orphaned)
	}
}

func TestValidateRequiredPrimary(t *testing.T) {
	if err := service.ValidateRequiredPrimary(domain.PhotoSet{}, true); !errors.Is(err, domain.ErrMissingPrimaryPhoto) {
		t.Fatalf("expected ErrMissingPrimaryPhoto on create, got %v", err)
	}
	if err := service.ValidateRequiredPrimary(nil, false); err != nil {
		t.Fatalf("expected edit without photos to pass, got %v", err)
	}
	if err := service.ValidateRequiredPrimary(domain.PhotoSet{"photo2": "B"}, true); err != nil {
		t.Fatalf("expected non-empty set to pass, got %v", err)
	}
}

func TestBuildFromSubmission_AssignsPositionalSlots(t *testing.T) {
	log := &callLog{}
	blobs := newFakeBlobs(log)
	m := service.NewPhotoSetManager(blobs)

	set, err := m.BuildFromSubmission(context.Background(), domain.KindGarment,
		[]*domain.PhotoUpload{jpeg("front.jpg"), nil, jpeg("Back Side.JPG")})
	if err != nil {
		t.Fatalf("BuildFromSubmission: %v", err)
	}

	if len(set) != 2 {
		t.Fatalf("expected 2 slots, got %v", set)
	}
	if _, ok := set["photo2"]; ok {
		t.Fatal("empty form slot must not produce a photo")
	}
	if !strings.HasPrefix(set["photo1"], "garments/") || !strings.HasSuffix(set["photo1"], "-front.jpg") {
		t.Fatalf("unexpected photo1 key %q", set["photo1"])
	}
	if !strings.HasSuffix(set["photo3"], "-back-side.jpg") {
		t.Fatalf("unexpected photo3 key %q", set["photo3"])
	}
}

func TestBuildFromSubmission_KeysAreUniquePerUpload(t *testing.T) {
	blobs := newFakeBlobs(&callLog{})
	m := service.NewPhotoSetManager(blobs)
	ctx := context.Background()

	first, err := m.BuildFromSubmission(ctx, domain.KindGarment, []*domain.PhotoUpload{jpeg("same.jpg")})
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := m.BuildFromSubmission(ctx, domain.KindGarment, []*domain.PhotoUpload{jpeg("same.jpg")})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if first["photo1"] == second["photo1"] {
		t.Fatalf("expected distinct keys for repeated filename, got %q twice", first["photo1"])
	}
}

func TestBuildFromSubmission_FailureIsAllOrNothing(t *testing.T) {
	blobs := newFakeBlobs(&callLog{})
	blobs.failPutFile = "bad.jpg"
	m := service.NewPhotoSetManager(blobs)

	set, err := m.BuildFromSubmission(context.Background(), domain.KindWorkSample,
		[]*domain.PhotoUpload{jpeg("good1.jpg"), jpeg("bad.jpg"), jpeg("good2.jpg")})
	if !errors.Is(err, domain.ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if set != nil {
		t.Fatalf("expected no photo set, got %v", set)
	}
	if keys := blobs.keys(); len(keys) != 0 {
		t.Fatalf("expected uploaded blobs to be cleaned up, still stored: %v", keys)
	}
}

func TestValidateUploads(t *testing.T) {
	big := &domain.PhotoUpload{Filename: "big.jpg", ContentType: "image/jpeg", Data: make([]byte, 10*1024*1024+1)}
	pdf := &domain.PhotoUpload{Filename: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}
	empty := &domain.PhotoUpload{Filename: "a.jpg", ContentType: "image/jpeg"}

	for name, files := range map[string][]*domain.PhotoUpload{
		"too large":    {big},
		"wrong type":   {nil, pdf},
		"empty upload": {empty},
	} {
		if err := service.ValidateUploads(files); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
	if err := service.ValidateUploads([]*domain.PhotoUpload{jpeg("ok.jpg"), nil}); err != nil {
		t.Fatalf("expected valid uploads to pass, got %v", err)
	}
}
