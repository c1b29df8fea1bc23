// Package inline implements a blob store whose references carry the photo
// bytes themselves as data URIs, so nothing is stored outside the entry.
package inline

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

const dataPrefix = "data:"

// BlobStore implements domain.BlobStore by encoding bytes into the reference.
type BlobStore struct{}

// New returns an inline blob store.
func New() *BlobStore { return &BlobStore{} }

// Put ignores the key: the reference is the encoded payload.
func (BlobStore) Put(_ context.Context, _ string, contentType string, data []byte) (string, error) {
	return EncodeDataURI(contentType, data), nil
}

// ResolveURL returns the data URI unchanged.
func (BlobStore) ResolveURL(_ context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, dataPrefix) {
		return "", domain.ErrNotFound
	}
	return ref, nil
}

// Delete has nothing to remove; the bytes go away with the entry.
func (BlobStore) Delete(context.Context, string) error { return nil }

// EncodeDataURI renders bytes as a base64 data URI.
func EncodeDataURI(contentType string, data []byte) string {
	return dataPrefix + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI decodes a base64 data URI such as the ones produced by a
// browser FileReader.
func ParseDataURI(uri string) (contentType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, dataPrefix)
	if !ok {
		return "", nil, fmt.Errorf("%w: photo is not a data URI", domain.ErrInvalidInput)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: malformed data URI", domain.ErrInvalidInput)
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: data URI must be base64 encoded", domain.ErrInvalidInput)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid base64 in data URI", domain.ErrInvalidInput)
	}
	return contentType, data, nil
}
