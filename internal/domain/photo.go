package domain

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

const (
	// PrimarySlot holds the cover photo of an entry.
	PrimarySlot = "photo1"
	// MaxPhotoSlots is the number of photo inputs offered by the forms.
	MaxPhotoSlots = 3

	slotPrefix = "photo"
)

// SlotKey returns the slot key for a zero-based form position.
func SlotKey(index int) string {
	return slotPrefix + strconv.Itoa(index+1)
}

// SlotIndex parses a slot key back into its zero-based position.
func SlotIndex(key string) (int, bool) {
	rest, ok := strings.CutPrefix(key, slotPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// PhotoSet maps slot keys to blob references.
type PhotoSet map[string]string

// Clone returns an independent copy; a nil set clones to an empty set.
func (p PhotoSet) Clone() PhotoSet {
	out := make(PhotoSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the slot keys ordered by slot number.
func (p PhotoSet) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aok := SlotIndex(keys[i])
		b, bok := SlotIndex(keys[j])
		if aok && bok && a != b {
			return a < b
		}
		if aok != bok {
			return aok
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Primary returns the cover photo reference.
func (p PhotoSet) Primary() (string, bool) {
	ref, ok := p[PrimarySlot]
	return ref, ok
}

// PhotoUpload is one submitted photo file.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BlobStore abstracts photo byte storage.
type BlobStore interface {
	// Put stores data under a caller-generated unique key and returns the
	// reference to record in a PhotoSet.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	// ResolveURL turns a reference into a URL a browser can load.
	ResolveURL(ctx context.Context, ref string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// BlobReader is implemented by stores whose bytes are served by this
// application rather than by the storage provider.
type BlobReader interface {
	Get(ctx context.Context, ref string) ([]byte, string, error)
}
