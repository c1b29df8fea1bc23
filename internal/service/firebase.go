package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/atelier-catalogo/catalogo/internal/domain"
)

const defaultVerifyTimeout = 5 * time.Second

// idTokenVerifier is the subset of the Firebase auth client used here.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseVerifier authenticates the operator with Firebase ID tokens, for
// deployments where sign-in happens through Firebase Authentication.
type FirebaseVerifier struct {
	client       idTokenVerifier
	allowedEmail string
	timeout      time.Duration
}

// NewFirebaseVerifier initialises the Firebase Admin SDK. When allowedEmail
// is set, only tokens carrying that email are accepted.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile, allowedEmail string) (*FirebaseVerifier, error) {
	if projectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}
	return newFirebaseVerifier(client, allowedEmail), nil
}

func newFirebaseVerifier(client idTokenVerifier, allowedEmail string) *FirebaseVerifier {
	return &FirebaseVerifier{
		client:       client,
		allowedEmail: strings.ToLower(strings.TrimSpace(allowedEmail)),
		timeout:      defaultVerifyTimeout,
	}
}

// Authenticate verifies an ID token and returns the operator.
func (v *FirebaseVerifier) Authenticate(ctx context.Context, idToken string) (*domain.Operator, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	email, _ := token.Claims["email"].(string)
	email = strings.ToLower(email)
	if v.allowedEmail != "" && email != v.allowedEmail {
		return nil, domain.ErrUnauthorized
	}
	return &domain.Operator{Email: email}, nil
}
