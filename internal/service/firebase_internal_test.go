package service

import (
	"context"
	"errors"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

type stubVerifier struct {
	token *firebaseauth.Token
	err   error
}

func (s stubVerifier) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return s.token, s.err
}

func TestFirebaseVerifier_AllowedEmail(t *testing.T) {
	tok := &firebaseauth.Token{UID: "u1", Claims: map[string]interface{}{"email": "Atelier@Example.com"}}

	v := newFirebaseVerifier(stubVerifier{token: tok}, "atelier@example.com")
	op, err := v.Authenticate(context.Background(), "id-token")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if op.Email != "atelier@example.com" {
		t.Fatalf("unexpected operator %+v", op)
	}

	v = newFirebaseVerifier(stubVerifier{token: tok}, "someone@example.com")
	if _, err := v.Authenticate(context.Background(), "id-token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for other email, got %v", err)
	}
}

func TestFirebaseVerifier_InvalidToken(t *testing.T) {
	v := newFirebaseVerifier(stubVerifier{err: errors.New("expired")}, "")
	if _, err := v.Authenticate(context.Background(), "id-token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
