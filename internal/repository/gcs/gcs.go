// Package gcs stores photo bytes in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

const defaultSignedURLExpiry = 15 * time.Minute

// Config selects the bucket and how retrieval URLs are produced.
type Config struct {
	Bucket          string
	CredentialsFile string
	// SignedURLExpiry > 0 issues V4 signed URLs; zero serves public URLs.
	SignedURLExpiry time.Duration
}

// BlobStore implements domain.BlobStore on a GCS bucket. References are
// object names.
type BlobStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	expiry time.Duration
	now    func() time.Time
}

// New creates the storage client and binds it to the configured bucket.
func New(ctx context.Context, cfg Config) (*BlobStore, error) {
	name := strings.TrimSpace(cfg.Bucket)
	if name == "" {
		return nil, errors.New("gcs: bucket is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}

	return &BlobStore{
		client: client,
		bucket: client.Bucket(name),
		name:   name,
		expiry: cfg.SignedURLExpiry,
		now:    time.Now,
	}, nil
}

// Close releases the storage client.
func (s *BlobStore) Close() error {
	return s.client.Close()
}

// Put writes the object only if it does not exist yet.
func (s *BlobStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	w := s.bucket.Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=86400"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("gcs: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: finalize %s: %w", key, err)
	}
	return key, nil
}

func (s *BlobStore) ResolveURL(ctx context.Context, key string) (string, error) {
	if _, err := s.bucket.Object(key).Attrs(ctx); err != nil {
		return "", mapError("stat", key, err)
	}
	if s.expiry <= 0 {
		return publicURL(s.name, key), nil
	}
	signed, err := s.bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: s.now().Add(s.expiry),
	})
	if err != nil {
		return "", fmt.Errorf("gcs: sign %s: %w", key, err)
	}
	return signed, nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		return mapError("delete", key, err)
	}
	return nil
}

func publicURL(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "https://storage.googleapis.com/" + bucket + "/" + strings.Join(segments, "/")
}

func mapError(op, key string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("gcs: %s %s: %w", op, key, err)
}
