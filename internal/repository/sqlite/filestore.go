package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

// DefaultPhotoURLPrefix is where the HTTP layer serves stored photo bytes.
const DefaultPhotoURLPrefix = "/photos/"

// FileStore implements domain.BlobStore and domain.BlobReader using SQLite
// BLOBs. References are the storage keys themselves.
type FileStore struct {
	db        *sql.DB
	urlPrefix string
}

// WithURLPrefix returns a copy of the store resolving URLs under prefix.
func (s *FileStore) WithURLPrefix(prefix string) *FileStore {
	return &FileStore{db: s.db, urlPrefix: prefix}
}

func (s *FileStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO file_blobs (storage_key, content_type, data, created_at) VALUES (?, ?, ?, ?)",
		key, contentType, data, time.Now().UTC(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", fmt.Errorf("save file blob %s: key already exists", key)
		}
		return "", fmt.Errorf("save file blob: %w", err)
	}
	return key, nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := s.db.QueryRowContext(ctx,
		"SELECT data, content_type FROM file_blobs WHERE storage_key = ?", key,
	).Scan(&data, &contentType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", fmt.Errorf("get file blob: %w", err)
	}
	return data, contentType, nil
}

// ResolveURL confirms the blob exists and returns its serving path.
func (s *FileStore) ResolveURL(ctx context.Context, key string) (string, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM file_blobs WHERE storage_key = ?", key,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("resolve file blob: %w", err)
	}

	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.urlPrefix + strings.Join(segments, "/"), nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM file_blobs WHERE storage_key = ?", key,
	)
	if err != nil {
		return fmt.Errorf("delete file blob: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
