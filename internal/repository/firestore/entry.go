package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/atelier-catalogo/catalogo/internal/domain"
	"github.com/atelier-catalogo/catalogo/internal/repository/document"
)

const createdAtField = "createdAt"

// entryDocument is the stored shape; kind-specific fields sit at the top
// level next to the photo map.
type entryDocument struct {
	Name          string            `firestore:"name,omitempty"`
	Title         string            `firestore:"title,omitempty"`
	Description   string            `firestore:"description,omitempty"`
	Price         *float64          `firestore:"price,omitempty"`
	Sizes         []string          `firestore:"sizes,omitempty"`
	CompletedDate *time.Time        `firestore:"completedDate,omitempty"`
	Photos        map[string]string `firestore:"photos"`
	CreatedAt     time.Time         `firestore:"createdAt"`
}

func toDocument(e *domain.Entry) entryDocument {
	f := document.FromDetails(e.Details)
	photos := map[string]string(e.Photos)
	if photos == nil {
		photos = map[string]string{}
	}
	return entryDocument{
		Name:          f.Name,
		Title:         f.Title,
		Description:   f.Description,
		Price:         f.Price,
		Sizes:         f.Sizes,
		CompletedDate: f.CompletedDate,
		Photos:        photos,
		CreatedAt:     e.CreatedAt.UTC(),
	}
}

func (d entryDocument) toEntry(kind domain.Kind, id string) (*domain.Entry, error) {
	details, err := document.Fields{
		Name:          d.Name,
		Title:         d.Title,
		Description:   d.Description,
		Price:         d.Price,
		Sizes:         d.Sizes,
		CompletedDate: d.CompletedDate,
	}.Details(kind)
	if err != nil {
		return nil, err
	}
	photos := domain.PhotoSet(d.Photos)
	if photos == nil {
		photos = domain.PhotoSet{}
	}
	return &domain.Entry{
		ID:        id,
		Kind:      kind,
		CreatedAt: d.CreatedAt.UTC(),
		Details:   details,
		Photos:    photos,
	}, nil
}

// EntryRepository implements domain.EntryRepository on Firestore.
type EntryRepository struct {
	client *firestore.Client
}

// NewEntryRepository constructs a Firestore-backed entry repository.
func NewEntryRepository(client *firestore.Client) (*EntryRepository, error) {
	if client == nil {
		return nil, errors.New("entry repository: firestore client is required")
	}
	return &EntryRepository{client: client}, nil
}

func (r *EntryRepository) collection(kind domain.Kind) *firestore.CollectionRef {
	return r.client.Collection(string(kind))
}

func (r *EntryRepository) Insert(ctx context.Context, entry *domain.Entry) error {
	ref, _, err := r.collection(entry.Kind).Add(ctx, toDocument(entry))
	if err != nil {
		return wrapError("insert entry", err)
	}
	entry.ID = ref.ID
	return nil
}

func (r *EntryRepository) ListAll(ctx context.Context, kind domain.Kind) ([]domain.Entry, error) {
	iter := r.collection(kind).OrderBy(createdAtField, firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var entries []domain.Entry
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, wrapError("list entries", err)
		}
		var doc entryDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore: decode entry %s: %w", snap.Ref.ID, err)
		}
		e, err := doc.toEntry(kind, snap.Ref.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

func (r *EntryRepository) GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.Entry, error) {
	snap, err := r.collection(kind).Doc(id).Get(ctx)
	if err != nil {
		return nil, wrapError("get entry", err)
	}
	var doc entryDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decode entry %s: %w", id, err)
	}
	return doc.toEntry(kind, id)
}

// UpdatePartial sends field-path updates; removed photo slots use the
// firestore.Delete sentinel so the remaining slots are not rewritten.
func (r *EntryRepository) UpdatePartial(ctx context.Context, kind domain.Kind, id string, update domain.EntryUpdate) error {
	updates := buildUpdates(update)
	if len(updates) == 0 {
		_, err := r.GetByID(ctx, kind, id)
		return err
	}
	if _, err := r.collection(kind).Doc(id).Update(ctx, updates); err != nil {
		return wrapError("update entry", err)
	}
	return nil
}

func buildUpdates(update domain.EntryUpdate) []firestore.Update {
	var updates []firestore.Update
	if update.Details != nil {
		for path, value := range document.Paths(update.Details) {
			if value == nil {
				value = firestore.Delete
			}
			updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{path}, Value: value})
		}
	}
	for _, slot := range update.SetPhotos.Keys() {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{"photos", slot}, Value: update.SetPhotos[slot]})
	}
	for _, slot := range update.DropPhotos {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{"photos", slot}, Value: firestore.Delete})
	}
	return updates
}

func (r *EntryRepository) DeleteByID(ctx context.Context, kind domain.Kind, id string) error {
	if _, err := r.collection(kind).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		return wrapError("delete entry", err)
	}
	return nil
}
