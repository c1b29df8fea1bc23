package handler_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/atelier-catalogo/catalogo/internal/service"
)

func TestHandleGallery(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	createGarment(t, env, env.token(t), map[string]any{
		"name":   "Vestido Azul",
		"price":  15000,
		"photos": map[string]string{"photo1": pngDataURI()},
	})

	resp, err = http.Get(env.srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{"Catálogo de Vestidos", "Vestido Azul", "/photos/garments/"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected gallery to contain %q", want)
		}
	}
}

func TestHandleGalleryNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.srv.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHandlePlaceholder(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.srv.URL + service.DefaultPlaceholderURL)
	if err != nil {
		t.Fatalf("GET placeholder: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("unexpected placeholder response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}
