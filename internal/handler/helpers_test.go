package handler_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/atelier-catalogo/catalogo/internal/handler"
	"github.com/atelier-catalogo/catalogo/internal/repository/sqlite"
	"github.com/atelier-catalogo/catalogo/internal/service"
)

const (
	testJWTSecret = "test-secret-for-handler-tests-0123456789"
	testEmail     = "atelier@example.com"
	testPassword  = "password123"
)

// pngBytes starts with the PNG signature so content sniffing sees image/png.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

type testEnv struct {
	srv     *httptest.Server
	auth    *service.AuthService
	entries *service.EntryService
}

func newTestAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	// Use cost 4 for fast tests.
	hash, err := service.HashPassword(testPassword, 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	auth, err := service.NewAuthService(testEmail, hash, testJWTSecret)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return auth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	env := &testEnv{
		auth:    newTestAuthService(t),
		entries: service.NewEntryService(db.Entries(), db.FileStore()),
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Options{
		Entries:      env.entries,
		Auth:         env.auth,
		Login:        env.auth,
		LoginLimiter: service.NewTokenBucket(ctx, 0, 5),
		Photos:       db.FileStore(),
		Health:       map[string]handler.HealthCheck{"database": db.Ping},
	})
	env.srv = httptest.NewServer(handler.SecurityHeaders(mux))
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	token, err := e.auth.Login(context.Background(), testEmail, testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return token
}

// do sends a JSON request, authenticated with a Bearer token when given.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // don't follow redirects automatically
		},
	}
}
