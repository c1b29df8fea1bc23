package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

const maxPhotoSize = 10 * 1024 * 1024 // 10MB

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// PhotoSetManager owns the mapping from photo slots to stored blobs.
type PhotoSetManager struct {
	blobs  domain.BlobStore
	newKey func(kind domain.Kind, filename string) string
}

// NewPhotoSetManager creates a PhotoSetManager backed by the given blob store.
func NewPhotoSetManager(blobs domain.BlobStore) *PhotoSetManager {
	return &PhotoSetManager{blobs: blobs, newKey: generateStorageKey}
}

// ValidateUploads checks content type and size of every present file.
func ValidateUploads(files []*domain.PhotoUpload) error {
	for i, f := range files {
		if f == nil {
			continue
		}
		slot := domain.SlotKey(i)
		if len(f.Data) == 0 {
			return &domain.ValidationError{Reason: slot + " is empty"}
		}
		if !allowedPhotoTypes[f.ContentType] {
			return &domain.ValidationError{Reason: slot + ": only JPEG, PNG, WebP and GIF images are accepted"}
		}
		if len(f.Data) > maxPhotoSize {
			return &domain.ValidationError{Reason: slot + ": image exceeds 10MB limit"}
		}
	}
	return nil
}

// BuildFromSubmission uploads every present file and returns the resulting
// photo set, keyed by form position. Either all uploads succeed or none of
// the references are returned; blobs stored before a failure are removed.
func (m *PhotoSetManager) BuildFromSubmission(ctx context.Context, kind domain.Kind, files []*domain.PhotoUpload) (domain.PhotoSet, error) {
	refs := make([]string, len(files))

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		if f == nil {
			continue
		}
		g.Go(func() error {
			ref, err := m.blobs.Put(gctx, m.newKey(kind, f.Filename), f.ContentType, f.Data)
			if err != nil {
				return fmt.Errorf("%s: %w", domain.SlotKey(i), err)
			}
			refs[i] = ref
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var uploaded []string
		for _, ref := range refs {
			if ref != "" {
				uploaded = append(uploaded, ref)
			}
		}
		m.DeleteBlobs(context.WithoutCancel(ctx), uploaded)
		return nil, fmt.Errorf("%w: %w", domain.ErrUploadFailed, err)
	}

	set := make(domain.PhotoSet)
	for i, ref := range refs {
		if ref != "" {
			set[domain.SlotKey(i)] = ref
		}
	}
	return set, nil
}

// DeleteBlobs removes every reference concurrently. Failures are logged and
// counted, never returned: callers use it only for cleanup.
func (m *PhotoSetManager) DeleteBlobs(ctx context.Context, refs []string) int {
	failed := make([]bool, len(refs))

	var g errgroup.Group
	for i, ref := range refs {
		g.Go(func() error {
			if err := m.blobs.Delete(ctx, ref); err != nil && !errors.Is(err, domain.ErrNotFound) {
				slog.Warn("delete orphaned photo", "ref", logRef(ref), "error", err)
				failed[i] = true
			}
			return nil
		})
	}
	g.Wait()

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	return n
}

// MergeForEdit applies incoming slots over existing ones, then drops the
// removed slots. Orphaned lists every reference no longer reachable from
// the merged set: overwritten and removed references from existing, plus
// incoming references whose slot was removed in the same edit.
func MergeForEdit(existing, incoming domain.PhotoSet, removed []string) (domain.PhotoSet, []string) {
	merged := existing.Clone()
	for k, ref := range incoming {
		merged[k] = ref
	}
	for _, k := range removed {
		delete(merged, k)
	}

	reachable := make(map[string]bool, len(merged))
	for _, ref := range merged {
		reachable[ref] = true
	}

	seen := make(map[string]bool)
	var orphaned []string
	collect := func(set domain.PhotoSet) {
		for _, ref := range set {
			if !reachable[ref] && !seen[ref] {
				seen[ref] = true
				orphaned = append(orphaned, ref)
			}
		}
	}
	collect(existing)
	collect(incoming)
	sort.Strings(orphaned)

	return merged, orphaned
}

// ValidateRequiredPrimary rejects a create without any photo.
func ValidateRequiredPrimary(set domain.PhotoSet, isCreate bool) error {
	if isCreate && len(set) == 0 {
		return domain.ErrMissingPrimaryPhoto
	}
	return nil
}

func generateStorageKey(kind domain.Kind, filename string) string {
	return string(kind) + "/" + ulid.Make().String() + "-" + cleanFilename(filename)
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), ".-")
	if out == "" {
		return "photo"
	}
	if len(out) > 64 {
		out = out[len(out)-64:]
	}
	return out
}

// logRef keeps inline data URIs out of the logs.
func logRef(ref string) string {
	if len(ref) > 96 {
		return ref[:96] + "..."
	}
	return ref
}
