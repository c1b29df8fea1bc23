package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

// DefaultPlaceholderURL is shown when a photo cannot be resolved.
const DefaultPlaceholderURL = "/static/placeholder.svg"

// EntryService orchestrates the lifecycle of catalog entries and their photos.
type EntryService struct {
	entries     domain.EntryRepository
	blobs       domain.BlobStore
	photos      *PhotoSetManager
	placeholder string
	now         func() time.Time
}

// EntryServiceOption customises an EntryService.
type EntryServiceOption func(*EntryService)

// WithPlaceholderURL overrides the URL used for unresolvable photos.
func WithPlaceholderURL(url string) EntryServiceOption {
	return func(s *EntryService) {
		if url != "" {
			s.placeholder = url
		}
	}
}

// WithClock overrides the clock used to stamp new entries.
func WithClock(now func() time.Time) EntryServiceOption {
	return func(s *EntryService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewEntryService creates a new EntryService.
func NewEntryService(entries domain.EntryRepository, blobs domain.BlobStore, opts ...EntryServiceOption) *EntryService {
	s := &EntryService{
		entries:     entries,
		blobs:       blobs,
		photos:      NewPhotoSetManager(blobs),
		placeholder: DefaultPlaceholderURL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new entry with its photos and returns its ID.
func (s *EntryService) Create(ctx context.Context, details domain.Details, files []*domain.PhotoUpload) (string, error) {
	if details == nil {
		return "", fmt.Errorf("%w: entry fields are required", domain.ErrInvalidInput)
	}
	details = normalizeDetails(details)
	if err := validateDetails(details); err != nil {
		return "", err
	}
	if err := ValidateUploads(files); err != nil {
		return "", err
	}

	kind := details.Kind()
	photos, err := s.photos.BuildFromSubmission(ctx, kind, files)
	if err != nil {
		return "", err
	}
	if err := ValidateRequiredPrimary(photos, true); err != nil {
		return "", err
	}

	entry := &domain.Entry{
		Kind:      kind,
		CreatedAt: s.now().UTC(),
		Details:   details,
		Photos:    photos,
	}
	if err := s.entries.Insert(ctx, entry); err != nil {
		s.photos.DeleteBlobs(context.WithoutCancel(ctx), refsOf(photos))
		return "", storageError("insert entry", err)
	}

	slog.Info("entry created", "kind", kind, "id", entry.ID, "photos", len(photos))
	return entry.ID, nil
}

// List returns every entry of the kind, newest first, with photo URLs
// resolved. A photo that cannot be resolved gets the placeholder URL.
func (s *EntryService) List(ctx context.Context, kind domain.Kind) ([]domain.ResolvedEntry, error) {
	entries, err := s.entries.ListAll(ctx, kind)
	if err != nil {
		return nil, storageError("list entries", err)
	}
	slices.SortStableFunc(entries, func(a, b domain.Entry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return s.resolve(ctx, entries), nil
}

// Get returns a single entry with its photo URLs resolved.
func (s *EntryService) Get(ctx context.Context, kind domain.Kind, id string) (*domain.ResolvedEntry, error) {
	entry, err := s.fetch(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	resolved := s.resolve(ctx, []domain.Entry{*entry})
	return &resolved[0], nil
}

// Gallery assembles the public catalog page.
func (s *EntryService) Gallery(ctx context.Context) (*domain.Gallery, error) {
	var g domain.Gallery
	var eg errgroup.Group
	eg.Go(func() (err error) {
		g.Garments, err = s.List(ctx, domain.KindGarment)
		return err
	})
	eg.Go(func() (err error) {
		g.WorkSamples, err = s.List(ctx, domain.KindWorkSample)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	g.Heading = galleryHeading(len(g.Garments) > 0, len(g.WorkSamples) > 0)
	return &g, nil
}

func galleryHeading(hasGarments, hasWorkSamples bool) string {
	switch {
	case hasGarments && hasWorkSamples:
		return "Catálogo del Atelier"
	case hasGarments:
		return "Catálogo de Vestidos"
	case hasWorkSamples:
		return "Trabajos Realizados"
	}
	return ""
}

// Update applies field changes and photo edits to an existing entry. A nil
// details leaves the text fields as they are. Replaced and removed photos
// are deleted from the blob store only after the entry is persisted.
func (s *EntryService) Update(ctx context.Context, kind domain.Kind, id string, details domain.Details, files []*domain.PhotoUpload, removed []string) error {
	existing, err := s.fetch(ctx, kind, id)
	if err != nil {
		return err
	}

	if details != nil {
		if details.Kind() != kind {
			return &domain.ValidationError{Reason: fmt.Sprintf("fields of %s cannot be applied to %s", details.Kind(), kind)}
		}
		details = normalizeDetails(details)
		if err := validateDetails(details); err != nil {
			return err
		}
	}
	if err := ValidateUploads(files); err != nil {
		return err
	}

	incoming, err := s.photos.BuildFromSubmission(ctx, kind, files)
	if err != nil {
		return err
	}
	if err := ValidateRequiredPrimary(incoming, false); err != nil {
		return err
	}

	removed = slices.Compact(slices.Sorted(slices.Values(removed)))
	merged, orphaned := MergeForEdit(existing.Photos, incoming, removed)

	update := domain.EntryUpdate{Details: details, SetPhotos: domain.PhotoSet{}}
	for k, ref := range incoming {
		if _, ok := merged[k]; ok {
			update.SetPhotos[k] = ref
		}
	}
	for _, k := range removed {
		if _, had := existing.Photos[k]; had {
			update.DropPhotos = append(update.DropPhotos, k)
		}
	}

	if err := s.entries.UpdatePartial(ctx, kind, id, update); err != nil {
		s.photos.DeleteBlobs(context.WithoutCancel(ctx), refsOf(incoming))
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return storageError("update entry", err)
	}

	if n := s.photos.DeleteBlobs(context.WithoutCancel(ctx), orphaned); n > 0 {
		slog.Warn("orphaned photos left behind", "kind", kind, "id", id, "count", n)
	}
	slog.Info("entry updated", "kind", kind, "id", id, "photos", len(merged), "orphaned", len(orphaned))
	return nil
}

// Remove deletes an entry and, best effort, every photo it references.
func (s *EntryService) Remove(ctx context.Context, kind domain.Kind, id string) error {
	existing, err := s.fetch(ctx, kind, id)
	if err != nil {
		return err
	}

	// Once photos start going, the entry must go too.
	ctx = context.WithoutCancel(ctx)
	if n := s.photos.DeleteBlobs(ctx, refsOf(existing.Photos)); n > 0 {
		slog.Warn("orphaned photos left behind", "kind", kind, "id", id, "count", n)
	}

	if err := s.entries.DeleteByID(ctx, kind, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return storageError("delete entry", err)
	}
	slog.Info("entry deleted", "kind", kind, "id", id)
	return nil
}

// RemovePhoto deletes one photo and drops its slot from the entry. The slot
// is kept when the blob deletion is not confirmed.
func (s *EntryService) RemovePhoto(ctx context.Context, kind domain.Kind, id, slot string) error {
	existing, err := s.fetch(ctx, kind, id)
	if err != nil {
		return err
	}
	ref, ok := existing.Photos[slot]
	if !ok {
		return fmt.Errorf("%s: %w", slot, domain.ErrSlotNotFound)
	}

	if err := s.blobs.Delete(ctx, ref); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return storageError("delete photo", err)
	}

	if err := s.entries.UpdatePartial(ctx, kind, id, domain.EntryUpdate{DropPhotos: []string{slot}}); err != nil {
		// The blob is gone; the slot now dangles until the next edit.
		slog.Error("photo deleted but slot kept", "kind", kind, "id", id, "slot", slot, "error", err)
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return storageError("drop photo slot", err)
	}
	slog.Info("photo removed", "kind", kind, "id", id, "slot", slot)
	return nil
}

func (s *EntryService) fetch(ctx context.Context, kind domain.Kind, id string) (*domain.Entry, error) {
	entry, err := s.entries.GetByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		return nil, storageError("get entry", err)
	}
	return entry, nil
}

func (s *EntryService) resolve(ctx context.Context, entries []domain.Entry) []domain.ResolvedEntry {
	out := make([]domain.ResolvedEntry, len(entries))
	var mu sync.Mutex
	var g errgroup.Group
	for i, e := range entries {
		out[i] = domain.ResolvedEntry{Entry: e, PhotoURLs: make(map[string]string, len(e.Photos))}
		for slot, ref := range e.Photos {
			g.Go(func() error {
				url, err := s.blobs.ResolveURL(ctx, ref)
				if err != nil {
					slog.Warn("resolve photo url", "kind", e.Kind, "id", e.ID, "slot", slot, "error", err)
					url = s.placeholder
				}
				mu.Lock()
				out[i].PhotoURLs[slot] = url
				mu.Unlock()
				return nil
			})
		}
	}
	g.Wait()
	return out
}

func refsOf(set domain.PhotoSet) []string {
	refs := make([]string, 0, len(set))
	for _, k := range set.Keys() {
		refs = append(refs, set[k])
	}
	return refs
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}
