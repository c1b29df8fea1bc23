package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-catalogo/catalogo/internal/domain"
	"github.com/atelier-catalogo/catalogo/internal/repository/document"
)

// EntryRepository implements domain.EntryRepository using SQLite. Each row
// is a document: kind-specific fields and the photo set are JSON columns.
type EntryRepository struct {
	db *sql.DB
}

func (r *EntryRepository) Insert(ctx context.Context, entry *domain.Entry) error {
	fields, err := json.Marshal(document.FromDetails(entry.Details))
	if err != nil {
		return fmt.Errorf("encode entry fields: %w", err)
	}
	photos, err := encodePhotos(entry.Photos)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entries (id, kind, created_at, fields, photos)
		 VALUES (?, ?, ?, ?, ?)`,
		id, string(entry.Kind), entry.CreatedAt.UTC().UnixNano(), string(fields), photos,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	entry.ID = id
	return nil
}

func (r *EntryRepository) ListAll(ctx context.Context, kind domain.Kind) ([]domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, created_at, fields, photos
		 FROM entries WHERE kind = ? ORDER BY created_at DESC, id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *EntryRepository) GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, kind, created_at, fields, photos
		 FROM entries WHERE kind = ? AND id = ?`, string(kind), id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// UpdatePartial rewrites the fields column when details are given and edits
// individual photo slots in place with json_set/json_remove.
func (r *EntryRepository) UpdatePartial(ctx context.Context, kind domain.Kind, id string, update domain.EntryUpdate) error {
	var sets []string
	var args []any

	if update.Details != nil {
		fields, err := json.Marshal(document.FromDetails(update.Details))
		if err != nil {
			return fmt.Errorf("encode entry fields: %w", err)
		}
		sets = append(sets, "fields = ?")
		args = append(args, string(fields))
	}

	photosExpr := "photos"
	var photoArgs []any
	for _, slot := range update.SetPhotos.Keys() {
		photosExpr = "json_set(" + photosExpr + ", ?, ?)"
		photoArgs = append(photoArgs, slotPath(slot), update.SetPhotos[slot])
	}
	for _, slot := range update.DropPhotos {
		photosExpr = "json_remove(" + photosExpr + ", ?)"
		photoArgs = append(photoArgs, slotPath(slot))
	}
	if len(photoArgs) > 0 {
		sets = append(sets, "photos = "+photosExpr)
		args = append(args, photoArgs...)
	}

	if len(sets) == 0 {
		// Nothing to change; still report a missing entry.
		_, err := r.GetByID(ctx, kind, id)
		return err
	}

	args = append(args, string(kind), id)
	result, err := r.db.ExecContext(ctx,
		"UPDATE entries SET "+strings.Join(sets, ", ")+" WHERE kind = ? AND id = ?", args...)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return requireAffected(result)
}

func (r *EntryRepository) DeleteByID(ctx context.Context, kind domain.Kind, id string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM entries WHERE kind = ? AND id = ?", string(kind), id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var (
		id, kind, fieldsJSON, photosJSON string
		createdAt                        int64
	)
	if err := row.Scan(&id, &kind, &createdAt, &fieldsJSON, &photosJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	var fields document.Fields
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return nil, fmt.Errorf("decode entry %s fields: %w", id, err)
	}
	details, err := fields.Details(domain.Kind(kind))
	if err != nil {
		return nil, err
	}
	photos := domain.PhotoSet{}
	if err := json.Unmarshal([]byte(photosJSON), &photos); err != nil {
		return nil, fmt.Errorf("decode entry %s photos: %w", id, err)
	}

	return &domain.Entry{
		ID:        id,
		Kind:      domain.Kind(kind),
		CreatedAt: time.Unix(0, createdAt).UTC(),
		Details:   details,
		Photos:    photos,
	}, nil
}

func encodePhotos(set domain.PhotoSet) (string, error) {
	if set == nil {
		set = domain.PhotoSet{}
	}
	b, err := json.Marshal(set)
	if err != nil {
		return "", fmt.Errorf("encode photos: %w", err)
	}
	return string(b), nil
}

func slotPath(slot string) string {
	return `$."` + strings.ReplaceAll(slot, `"`, ``) + `"`
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
