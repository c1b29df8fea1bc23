package handler

import (
	"net/http"

	"github.com/atelier-catalogo/catalogo/internal/domain"
	"github.com/atelier-catalogo/catalogo/internal/service"
)

// Options carries the dependencies of the HTTP surface.
type Options struct {
	Entries      *service.EntryService
	Auth         Authenticator
	Login        PasswordLogin        // nil when operators sign in through Firebase
	LoginLimiter *service.TokenBucket // per-IP limit on sign-in attempts
	Photos       domain.BlobReader    // nil when photo URLs point at remote storage
	Health       map[string]HealthCheck
	CookieSecure bool
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, opts Options) {
	health := NewHealthHandler(opts.Health)
	gallery := NewGalleryHandler(opts.Entries)
	authH := NewAuthHandler(opts.Auth, opts.Login, opts.LoginLimiter, opts.CookieSecure)
	entryH := NewEntryHandler(opts.Entries)
	adminH := NewAdminHandler(opts.Entries)

	api := func(h http.HandlerFunc) http.Handler { return RequireAuth(opts.Auth, h) }
	page := func(h http.HandlerFunc) http.Handler { return RequireAuthPage(opts.Auth, h) }

	// Public.
	mux.HandleFunc("GET /healthz", health.HandleHealthz)
	mux.HandleFunc("GET /{$}", gallery.HandleGallery)
	mux.HandleFunc("GET "+service.DefaultPlaceholderURL, HandlePlaceholder)
	if opts.Photos != nil {
		mux.HandleFunc("GET /photos/{key...}", NewPhotoHandler(opts.Photos).HandleServe)
	}

	// Auth.
	mux.HandleFunc("POST /api/auth/login", authH.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", authH.HandleLogout)
	mux.Handle("GET /api/auth/me", api(authH.HandleMe))
	mux.HandleFunc("GET /login", authH.HandleLoginPage)
	mux.HandleFunc("POST /login", authH.HandleLoginForm)
	mux.HandleFunc("POST /logout", authH.HandleLogoutForm)

	// JSON API. Reads are public, like the gallery.
	mux.HandleFunc("GET /api/{kind}", entryH.HandleList)
	mux.HandleFunc("GET /api/{kind}/{id}", entryH.HandleGet)
	mux.Handle("POST /api/{kind}", api(entryH.HandleCreate))
	mux.Handle("PATCH /api/{kind}/{id}", api(entryH.HandleUpdate))
	mux.Handle("DELETE /api/{kind}/{id}", api(entryH.HandleDelete))
	mux.Handle("DELETE /api/{kind}/{id}/photos/{slot}", api(entryH.HandleDeletePhoto))

	// Admin pages.
	mux.Handle("GET /admin", page(adminH.HandleAdmin))
	mux.Handle("POST /admin/{kind}", page(adminH.HandleCreate))
	mux.Handle("POST /admin/{kind}/{id}", page(adminH.HandleUpdate))
	mux.Handle("POST /admin/{kind}/{id}/delete", page(adminH.HandleDelete))
	mux.Handle("POST /admin/{kind}/{id}/photos/{slot}/delete", page(adminH.HandleDeletePhoto))
}
