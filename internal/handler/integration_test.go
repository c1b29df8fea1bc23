package handler_test

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"testing"
)

type apiError struct {
	Message string   `json:"message"`
	Missing []string `json:"missing"`
}

type apiEntry struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Title  string            `json:"title"`
	Detail string            `json:"detail"`
	Date   string            `json:"date"`
	Price  *float64          `json:"price"`
	Sizes  []string          `json:"sizes"`
	Photos map[string]string `json:"photos"`
}

func createGarment(t *testing.T, env *testEnv, token string, body map[string]any) string {
	t.Helper()
	resp := env.do(t, http.MethodPost, "/api/garments", body, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create garment: expected 201, got %d", resp.StatusCode)
	}
	created := decode[map[string]string](t, resp)
	if created["id"] == "" {
		t.Fatal("expected id in response")
	}
	return created["id"]
}

func TestIntegration_GarmentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)

	// 1. Create, with sizes as a comma-joined string.
	id := createGarment(t, env, token, map[string]any{
		"name":        "Vestido Azul",
		"description": "Seda",
		"price":       15000,
		"sizes":       "S, M",
		"photos":      map[string]string{"photo1": pngDataURI(), "photo2": pngDataURI()},
	})

	// 2. Listed first with resolved URLs.
	resp := env.do(t, http.MethodGet, "/api/garments", nil, "")
	list := decode[[]apiEntry](t, resp)
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("expected the new garment listed, got %+v", list)
	}
	g := list[0]
	if g.Name != "Vestido Azul" || g.Price == nil || *g.Price != 15000 || !slices.Equal(g.Sizes, []string{"S", "M"}) {
		t.Fatalf("unexpected garment %+v", g)
	}
	photoURL := g.Photos["photo1"]
	if !strings.HasPrefix(photoURL, "/photos/garments/") {
		t.Fatalf("expected local photo URL, got %q", photoURL)
	}

	// 3. The photo is served with its content type.
	resp, err := http.Get(env.srv.URL + photoURL)
	if err != nil {
		t.Fatalf("GET photo: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" || !bytes.Equal(data, pngBytes) {
		t.Fatalf("unexpected photo response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	// 4. Patch the price only and drop the second photo.
	resp = env.do(t, http.MethodPatch, "/api/garments/"+id, map[string]any{
		"price":        "12000",
		"removePhotos": []string{"photo2"},
	}, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d", resp.StatusCode)
	}
	patched := decode[apiEntry](t, resp)
	if *patched.Price != 12000 || patched.Name != "Vestido Azul" {
		t.Fatalf("expected only price changed, got %+v", patched)
	}
	if _, ok := patched.Photos["photo2"]; ok || len(patched.Photos) != 1 {
		t.Fatalf("expected photo2 removed, got %v", patched.Photos)
	}

	// 5. Removing a slot that is no longer there is a 404.
	resp = env.do(t, http.MethodDelete, "/api/garments/"+id+"/photos/photo2", nil, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete missing slot: expected 404, got %d", resp.StatusCode)
	}

	// 6. Delete the entry; its photo goes with it.
	resp = env.do(t, http.MethodDelete, "/api/garments/"+id, nil, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/garments/"+id, nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.StatusCode)
	}
	resp, err = http.Get(env.srv.URL + photoURL)
	if err != nil {
		t.Fatalf("GET photo after delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("photo after delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestIntegration_WorkSample(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)

	resp := env.do(t, http.MethodPost, "/api/work-samples", map[string]any{
		"title":  "Vestido de novia",
		"detail": "Encaje",
		"date":   "2024-05-17",
		"photos": map[string]string{"photo1": pngDataURI()},
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	id := decode[map[string]string](t, resp)["id"]

	resp = env.do(t, http.MethodGet, "/api/work-samples/"+id, nil, "")
	w := decode[apiEntry](t, resp)
	if w.Title != "Vestido de novia" || w.Detail != "Encaje" || w.Date != "2024-05-17" {
		t.Fatalf("unexpected work sample %+v", w)
	}

	resp = env.do(t, http.MethodPost, "/api/work-samples", map[string]any{
		"title":  "x",
		"date":   "17/05/2024",
		"photos": map[string]string{"photo1": pngDataURI()},
	}, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", resp.StatusCode)
	}
}

func TestIntegration_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)

	resp := env.do(t, http.MethodPost, "/api/garments", map[string]any{
		"description": "sin nombre",
		"photos":      map[string]string{"photo1": pngDataURI()},
	}, token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing fields: expected 400, got %d", resp.StatusCode)
	}
	body := decode[apiError](t, resp)
	if !slices.Equal(body.Missing, []string{"name", "price"}) || body.Message == "" {
		t.Fatalf("unexpected error body %+v", body)
	}

	resp = env.do(t, http.MethodPost, "/api/garments", map[string]any{"name": "V", "price": 10}, token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("no photos: expected 400, got %d", resp.StatusCode)
	}
	if body := decode[apiError](t, resp); !slices.Equal(body.Missing, []string{"photo1"}) {
		t.Fatalf("expected photo1 reported missing, got %+v", body)
	}

	resp = env.do(t, http.MethodPost, "/api/garments", map[string]any{
		"name": "V", "price": 10,
		"photos": map[string]string{"photo1": "not-a-data-uri"},
	}, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad photo: expected 400, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/garments", map[string]any{
		"name": "V", "price": 10,
		"photos": map[string]string{"photo1": "data:application/pdf;base64,JVBERg=="},
	}, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong content type: expected 400, got %d", resp.StatusCode)
	}

	for _, p := range []string{"NaN", "Inf", "-Inf"} {
		resp = env.do(t, http.MethodPost, "/api/garments", map[string]any{
			"name": "V", "price": p,
			"photos": map[string]string{"photo1": pngDataURI()},
		}, token)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("price %q: expected 400, got %d", p, resp.StatusCode)
		}
	}

	resp = env.do(t, http.MethodGet, "/api/garments", nil, "")
	if list := decode[[]apiEntry](t, resp); len(list) != 0 {
		t.Fatalf("expected nothing stored, got %d entries", len(list))
	}
}

func TestIntegration_WritesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/garments"},
		{http.MethodPatch, "/api/garments/x"},
		{http.MethodDelete, "/api/work-samples/x"},
		{http.MethodDelete, "/api/work-samples/x/photos/photo1"},
		{http.MethodGet, "/api/auth/me"},
	} {
		resp := env.do(t, tc.method, tc.path, nil, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, resp.StatusCode)
		}
	}
}

func TestIntegration_UnknownKind(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/hats", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestIntegration_LoginAPI(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": testEmail, "password": "wrong-password"}, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": testEmail, "password": testPassword}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "auth_token" {
			session = c
		}
	}
	if body := decode[map[string]string](t, resp); body["email"] != testEmail {
		t.Fatalf("unexpected login body %v", body)
	}
	if session == nil || !session.HttpOnly {
		t.Fatal("expected an HttpOnly auth_token cookie")
	}

	resp = env.do(t, http.MethodGet, "/api/auth/me", nil, session.Value)
	if body := decode[map[string]string](t, resp); body["email"] != testEmail {
		t.Fatalf("unexpected me body %v", body)
	}
}

func TestIntegration_LoginRateLimited(t *testing.T) {
	env := newTestEnv(t)

	var last int
	for range 6 {
		resp := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": testEmail, "password": "nope-nope"}, "")
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the burst, got %d", last)
	}
}

func TestIntegration_AdminFlow(t *testing.T) {
	env := newTestEnv(t)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	client := noRedirectClient()
	client.Jar = jar

	// 1. Admin requires a session.
	resp, err := client.Get(env.srv.URL + "/admin")
	if err != nil {
		t.Fatalf("GET /admin: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}

	// 2. Wrong password re-renders the form.
	resp, err = client.PostForm(env.srv.URL+"/login", url.Values{"email": {testEmail}, "password": {"badpassword"}})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	// 3. Sign in.
	resp, err = client.PostForm(env.srv.URL+"/login", url.Values{"email": {testEmail}, "password": {testPassword}})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/admin" {
		t.Fatalf("login: expected 303 to /admin, got %d", resp.StatusCode)
	}

	// 4. Create a garment through the multipart form.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", "Vestido Rojo")
	mw.WriteField("price", "9000")
	mw.WriteField("sizes", "M, L")
	fw, _ := mw.CreateFormFile("photo1", "rojo.png")
	fw.Write(pngBytes)
	mw.Close()

	resp, err = client.Post(env.srv.URL+"/admin/garments", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /admin/garments: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("create: expected 303, got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/garments", nil, "")
	list := decode[[]apiEntry](t, resp)
	if len(list) != 1 || list[0].Name != "Vestido Rojo" {
		t.Fatalf("expected the garment stored, got %+v", list)
	}
	id := list[0].ID

	// 5. The admin page lists it.
	resp, err = client.Get(env.srv.URL + "/admin")
	if err != nil {
		t.Fatalf("GET /admin: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(page), `id="entry-`+id+`"`) {
		t.Fatalf("expected entry card on admin page, got %d", resp.StatusCode)
	}

	// 6. A create without the primary photo re-renders with an error.
	buf.Reset()
	mw = multipart.NewWriter(&buf)
	mw.WriteField("name", "Sin foto")
	mw.WriteField("price", "1")
	mw.Close()
	resp, err = client.Post(env.srv.URL+"/admin/garments", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /admin/garments: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("create without photo: expected 400, got %d", resp.StatusCode)
	}

	// 7. Delete through the datastar action.
	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/admin/garments/"+id+"/delete", nil)
	req.Header.Set("Datastar-Request", "true")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("POST delete: %v", err)
	}
	events, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(events), "entry-"+id) {
		t.Fatalf("expected SSE removing the card, got %d %s", resp.StatusCode, events)
	}

	resp = env.do(t, http.MethodGet, "/api/garments/"+id, nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected garment deleted, got %d", resp.StatusCode)
	}

	// 8. Sign out.
	resp, err = client.PostForm(env.srv.URL+"/logout", nil)
	if err != nil {
		t.Fatalf("POST /logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("logout: expected 303, got %d", resp.StatusCode)
	}
	resp, err = client.Get(env.srv.URL + "/admin")
	if err != nil {
		t.Fatalf("GET /admin after logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("admin after logout: expected redirect, got %d", resp.StatusCode)
	}
}

func TestIntegration_AdminDeletePhotoPatchesCard(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t)
	id := createGarment(t, env, token, map[string]any{
		"name":   "Vestido",
		"price":  1,
		"photos": map[string]string{"photo1": pngDataURI(), "photo2": pngDataURI()},
	})

	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/admin/garments/"+id+"/photos/photo2/delete", nil)
	req.Header.Set("Datastar-Request", "true")
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	resp, err := noRedirectClient().Do(req)
	if err != nil {
		t.Fatalf("POST photo delete: %v", err)
	}
	events, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(events), "entry-"+id) {
		t.Fatalf("expected SSE patching the card, got %d %s", resp.StatusCode, events)
	}

	resp = env.do(t, http.MethodGet, "/api/garments/"+id, nil, "")
	if g := decode[apiEntry](t, resp); len(g.Photos) != 1 {
		t.Fatalf("expected one photo left, got %v", g.Photos)
	}
}
