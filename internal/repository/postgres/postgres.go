// Package postgres stores catalog entries as JSONB documents in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-catalogo/catalogo/internal/domain"
	"github.com/atelier-catalogo/catalogo/internal/repository/document"
)

const schema = `
CREATE TABLE IF NOT EXISTS catalog_entries (
    id         TEXT PRIMARY KEY,
    kind       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
    photos     JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS idx_catalog_entries_kind_created_at ON catalog_entries (kind, created_at DESC);
`

// DB owns the connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to the database described by connString.
func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Migrate creates the entries table when missing.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	d.pool.Close()
	return nil
}

// Ping checks that the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Entries returns the catalog entry repository.
func (d *DB) Entries() *EntryRepository {
	return &EntryRepository{pool: d.pool}
}

// EntryRepository implements domain.EntryRepository on PostgreSQL.
type EntryRepository struct {
	pool *pgxpool.Pool
}

func (r *EntryRepository) Insert(ctx context.Context, entry *domain.Entry) error {
	fields, err := json.Marshal(document.FromDetails(entry.Details))
	if err != nil {
		return fmt.Errorf("encode entry fields: %w", err)
	}
	photos := entry.Photos
	if photos == nil {
		photos = domain.PhotoSet{}
	}
	photosJSON, err := json.Marshal(photos)
	if err != nil {
		return fmt.Errorf("encode photos: %w", err)
	}

	id := uuid.NewString()
	_, err = r.pool.Exec(ctx,
		`INSERT INTO catalog_entries (id, kind, created_at, fields, photos) VALUES ($1, $2, $3, $4, $5)`,
		id, string(entry.Kind), entry.CreatedAt.UTC(), fields, photosJSON)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	entry.ID = id
	return nil
}

func (r *EntryRepository) ListAll(ctx context.Context, kind domain.Kind) ([]domain.Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, created_at, fields, photos FROM catalog_entries
		 WHERE kind = $1 ORDER BY created_at DESC, id`, string(kind))
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
	row := r.pool.QueryRow(ctx,
		`SELECT id, kind, created_at, fields, photos FROM catalog_entries WHERE kind = $1 AND id = $2`,
		string(kind), id)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return e, err
}

// UpdatePartial edits photo slots with jsonb_set and the - operator so the
// rest of the photo map is never rewritten.
func (r *EntryRepository) UpdatePartial(ctx context.Context, kind domain.Kind, id string, update domain.EntryUpdate) error {
	var sets []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if update.Details != nil {
		fields, err := json.Marshal(document.FromDetails(update.Details))
		if err != nil {
			return fmt.Errorf("encode entry fields: %w", err)
		}
		sets = append(sets, "fields = "+arg(fields)+"::jsonb")
	}

	expr := "photos"
	for _, slot := range update.SetPhotos.Keys() {
		ref, err := json.Marshal(update.SetPhotos[slot])
		if err != nil {
			return fmt.Errorf("encode photo ref: %w", err)
		}
		expr = "jsonb_set(" + expr + ", ARRAY[" + arg(slot) + "::text], " + arg(ref) + "::jsonb)"
	}
	for _, slot := range update.DropPhotos {
		expr = "(" + expr + " - " + arg(slot) + "::text)"
	}
	if expr != "photos" {
		sets = append(sets, "photos = "+expr)
	}

	if len(sets) == 0 {
		_, err := r.GetByID(ctx, kind, id)
		return err
	}

	where := " WHERE kind = " + arg(string(kind)) + " AND id = " + arg(id)
	tag, err := r.pool.Exec(ctx, "UPDATE catalog_entries SET "+strings.Join(sets, ", ")+where, args...)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EntryRepository) DeleteByID(ctx context.Context, kind domain.Kind, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM catalog_entries WHERE kind = $1 AND id = $2`, string(kind), id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		e                 domain.Entry
		kind              string
		fieldsJSON, photo []byte
	)
	if err := row.Scan(&e.ID, &kind, &e.CreatedAt, &fieldsJSON, &photo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	var fields document.Fields
	if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
		return nil, fmt.Errorf("decode entry %s fields: %w", e.ID, err)
	}
	details, err := fields.Details(domain.Kind(kind))
	if err != nil {
		return nil, err
	}
	e.Kind = domain.Kind(kind)
	e.Details = details
	e.CreatedAt = e.CreatedAt.UTC()
	e.Photos = domain.PhotoSet{}
	if err := json.Unmarshal(photo, &e.Photos); err != nil {
		return nil, fmt.Errorf("decode entry %s photos: %w", e.ID, err)
	}
	return &e, nil
}
