package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

const tokenTTL = 24 * time.Hour

// AuthService checks the operator credentials and issues session tokens.
type AuthService struct {
	email        string
	passwordHash []byte
	jwtSecret    []byte
	now          func() time.Time
}

// NewAuthService creates an AuthService for a single operator account.
// passwordHash must be a bcrypt hash.
func NewAuthService(email, passwordHash, jwtSecret string) (*AuthService, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("operator email is required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("operator password hash: %w", err)
	}
	return &AuthService{
		email:        email,
		passwordHash: []byte(passwordHash),
		jwtSecret:    []byte(jwtSecret),
		now:          time.Now,
	}, nil
}

// HashPassword returns a bcrypt hash for configuring the operator account.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Login verifies credentials and returns a signed JWT token string.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	// Always run bcrypt so a wrong email costs the same as a wrong password.
	pwErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !emailOK || pwErr != nil {
		return "", domain.ErrUnauthorized
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   s.email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return token, nil
}

// Authenticate validates a session token and returns the operator.
func (s *AuthService) Authenticate(_ context.Context, tokenString string) (*domain.Operator, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub != s.email {
		return nil, domain.ErrUnauthorized
	}
	return &domain.Operator{Email: sub}, nil
}
