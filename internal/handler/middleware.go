package handler

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

const authCookie = "auth_token"

type contextKey string

const operatorContextKey contextKey = "operator"

// Authenticator resolves a session credential to the operator. Both the
// local JWT service and the Firebase verifier implement it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Operator, error)
}

// OperatorFromContext extracts the authenticated operator from the request
// context. Returns nil if no operator is authenticated.
func OperatorFromContext(ctx context.Context) *domain.Operator {
	op, _ := ctx.Value(operatorContextKey).(*domain.Operator)
	return op
}

// RequireAuth protects API routes. It accepts the auth_token cookie or a
// Bearer token and answers 401 JSON when neither authenticates.
func RequireAuth(auth Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, err := authenticateRequest(r, auth)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "No autenticado.")
			return
		}
		next.ServeHTTP(w, withOperator(r, op))
	})
}

// RequireAuthPage protects HTML routes, redirecting to the login page.
// Datastar requests get a redirect event instead of a 303.
func RequireAuthPage(auth Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, err := authenticateRequest(r, auth)
		if err != nil {
			if r.Header.Get("Datastar-Request") == "true" {
				redirectSSE(w, r, "/login")
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, withOperator(r, op))
	})
}

func withOperator(r *http.Request, op *domain.Operator) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), operatorContextKey, op))
}

func authenticateRequest(r *http.Request, auth Authenticator) (*domain.Operator, error) {
	token := bearerToken(r)
	if token == "" {
		cookie, err := r.Cookie(authCookie)
		if err != nil {
			return nil, domain.ErrUnauthorized
		}
		token = cookie.Value
	}
	return auth.Authenticate(r.Context(), token)
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// SecurityHeaders sets conservative browser security headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "frame-ancestors 'none'; object-src 'none'; base-uri 'self'")
		next.ServeHTTP(w, r)
	})
}

// clientIP is the rate-limit key for a request.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
