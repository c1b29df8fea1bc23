package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

var errInjected = errors.New("injected failure")

// callLog records repository and blob store calls in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count(prefix string) int {
	n := 0
	for _, c := range l.snapshot() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakeBlobs struct {
	log *callLog

	mu          sync.Mutex
	blobs       map[string][]byte
	failPutFile string          // Put fails for keys containing this filename
	failResolve map[string]bool // refs whose ResolveURL fails
	failDelete  map[string]bool // refs whose Delete fails
}

func newFakeBlobs(log *callLog) *fakeBlobs {
	return &fakeBlobs{
		log:         log,
		blobs:       make(map[string][]byte),
		failResolve: make(map[string]bool),
		failDelete:  make(map[string]bool),
	}
}

func (b *fakeBlobs) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	b.log.add("put %s", key)
	if b.failPutFile != "" && strings.Contains(key, b.failPutFile) {
		return "", errInjected
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.blobs[key]; exists {
		return "", fmt.Errorf("duplicate key %s", key)
	}
	b.blobs[key] = data
	return key, nil
}

func (b *fakeBlobs) ResolveURL(_ context.Context, ref string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failResolve[ref] {
		return "", errInjected
	}
	if _, ok := b.blobs[ref]; !ok {
		return "", domain.ErrNotFound
	}
	return "https://blobs.test/" + ref, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, ref string) error {
	b.log.add("delete-blob %s", ref)
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDelete[ref] {
		return errInjected
	}
	if _, ok := b.blobs[ref]; !ok {
		return domain.ErrNotFound
	}
	delete(b.blobs, ref)
	return nil
}

func (b *fakeBlobs) seed(refs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range refs {
		b.blobs[r] = []byte(r)
	}
}

func (b *fakeBlobs) has(ref string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blobs[ref]
	return ok
}

func (b *fakeBlobs) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fakeEntries struct {
	log *callLog

	mu         sync.Mutex
	entries    map[string]domain.Entry
	nextID     int
	failInsert bool
	failUpdate bool
	failDelete bool
	updates    []domain.EntryUpdate
}

func newFakeEntries(log *callLog) *fakeEntries {
	return &fakeEntries{log: log, entries: make(map[string]domain.Entry)}
}

func (r *fakeEntries) Insert(_ context.Context, e *domain.Entry) error {
	r.log.add("insert %s", e.Kind)
	if r.failInsert {
		return errInjected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = fmt.Sprintf("id%d", r.nextID)
	stored := *e
	stored.Photos = e.Photos.Clone()
	r.entries[e.ID] = stored
	return nil
}

func (r *fakeEntries) ListAll(_ context.Context, kind domain.Kind) ([]domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Entry
	for _, e := range r.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	// Deliberately unordered: ordering is the service's job to guarantee.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeEntries) GetByID(_ context.Context, kind domain.Kind, id string) (*domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Kind != kind {
		return nil, domain.ErrNotFound
	}
	e.Photos = e.Photos.Clone()
	return &e, nil
}

func (r *fakeEntries) UpdatePartial(_ context.Context, kind domain.Kind, id string, u domain.EntryUpdate) error {
	r.log.add("update %s", id)
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
	if r.failUpdate {
		return errInjected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Kind != kind {
		return domain.ErrNotFound
	}
	if u.Details != nil {
		e.Details = u.Details
	}
	e.Photos = e.Photos.Clone()
	for k, v := range u.SetPhotos {
		e.Photos[k] = v
	}
	for _, k := range u.DropPhotos {
		delete(e.Photos, k)
	}
	r.entries[id] = e
	return nil
}

func (r *fakeEntries) DeleteByID(ctx context.Context, kind domain.Kind, id string) error {
	r.log.add("delete-entry %s", id)
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.failDelete {
		return errInjected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Kind != kind {
		return domain.ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

// seed stores an entry directly, bypassing the service.
func (r *fakeEntries) seed(kind domain.Kind, details domain.Details, at time.Time, photos domain.PhotoSet) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("id%d", r.nextID)
	r.entries[id] = domain.Entry{ID: id, Kind: kind, CreatedAt: at, Details: details, Photos: photos}
	return id
}

func (r *fakeEntries) lastUpdate() domain.EntryUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return domain.EntryUpdate{}
	}
	return r.updates[len(r.updates)-1]
}

func (r *fakeEntries) get(id string) (domain.Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}
