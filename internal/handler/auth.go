package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/atelier-catalogo/catalogo/internal/domain"
	"github.com/atelier-catalogo/catalogo/internal/service"
	"github.com/atelier-catalogo/catalogo/internal/view"
)

const (
	sessionMaxAge   = 24 * time.Hour
	idTokenMaxAge   = time.Hour
	invalidLoginMsg = "Correo o contraseña incorrectos."
	tooManyMsg      = "Demasiados intentos. Espere un momento e intente nuevamente."
)

// PasswordLogin exchanges operator credentials for a session token.
type PasswordLogin interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// AuthHandler handles operator sign-in and sign-out.
type AuthHandler struct {
	auth         Authenticator
	login        PasswordLogin // nil when sign-in happens through Firebase
	limiter      *service.TokenBucket
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler. login may be nil, in which case
// the login endpoint accepts Firebase ID tokens instead of passwords.
func NewAuthHandler(auth Authenticator, login PasswordLogin, limiter *service.TokenBucket, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, login: login, limiter: limiter, cookieSecure: cookieSecure}
}

func (h *AuthHandler) setSession(w http.ResponseWriter, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

func (h *AuthHandler) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// signIn validates credentials (or a Firebase ID token) and returns the
// session token with its lifetime.
func (h *AuthHandler) signIn(ctx context.Context, email, password, idToken string) (string, time.Duration, error) {
	if h.login == nil {
		if idToken == "" {
			return "", 0, domain.ErrUnauthorized
		}
		if _, err := h.auth.Authenticate(ctx, idToken); err != nil {
			return "", 0, err
		}
		return idToken, idTokenMaxAge, nil
	}
	token, err := h.login.Login(ctx, email, password)
	return token, sessionMaxAge, err
}

// HandleLogin processes a JSON login request.
// POST /api/auth/login
// Request:  {"email":"...","password":"..."} or {"idToken":"..."}
// Response: {"email": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, tooManyMsg)
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		IDToken  string `json:"idToken"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Cuerpo de la solicitud inválido.")
		return
	}

	token, maxAge, err := h.signIn(r.Context(), req.Email, req.Password, req.IDToken)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, invalidLoginMsg)
			return
		}
		slog.Error("login operator", "error", err)
		writeError(w, http.StatusInternalServerError, "Error en el servidor. Intente nuevamente.")
		return
	}

	op, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		slog.Error("authenticate fresh session", "error", err)
		writeError(w, http.StatusInternalServerError, "Error en el servidor. Intente nuevamente.")
		return
	}
	h.setSession(w, token, maxAge)
	slog.Info("operator signed in", "email", op.Email)
	writeJSON(w, http.StatusOK, map[string]string{"email": op.Email})
}

// HandleLogout clears the auth cookie.
// POST /api/auth/logout
// Response: 204 No Content
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the currently authenticated operator.
// GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	op := OperatorFromContext(r.Context())
	if op == nil {
		writeError(w, http.StatusUnauthorized, "No autenticado.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": op.Email})
}

// HandleLoginPage renders the sign-in form.
// GET /login
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticateRequest(r, h.auth); err == nil {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	view.LoginPage("", "").Render(r.Context(), w)
}

// HandleLoginForm processes the sign-in form.
// POST /login
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	email := r.FormValue("email")

	if !h.limiter.Allow(clientIP(r)) {
		w.WriteHeader(http.StatusTooManyRequests)
		view.LoginPage(email, tooManyMsg).Render(r.Context(), w)
		return
	}

	token, maxAge, err := h.signIn(r.Context(), email, r.FormValue("password"), r.FormValue("id_token"))
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthorized) {
			slog.Error("login operator", "error", err)
		}
		w.WriteHeader(http.StatusUnauthorized)
		view.LoginPage(email, invalidLoginMsg).Render(r.Context(), w)
		return
	}

	h.setSession(w, token, maxAge)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleLogoutForm clears the session and returns to the gallery.
// POST /logout
func (h *AuthHandler) HandleLogoutForm(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
