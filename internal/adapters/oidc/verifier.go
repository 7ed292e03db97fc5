// Package oidc verifies OIDC ID tokens presented by automation callers.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ErrSubjectNotAllowed is returned for a valid token whose subject is not allow-listed.
var ErrSubjectNotAllowed = errors.New("token subject is not allowed")

// VerifierConfig holds configuration for the ID-token verifier.
type VerifierConfig struct {
	IssuerURL string
	Audience  string
	// AllowedSubjects restricts accepted subjects; empty accepts any subject.
	AllowedSubjects []string
	HTTPClient      *http.Client // Optional, defaults to a 30s-timeout client
}

// Identity is the caller described by a verified token.
type Identity struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

// Verifier checks signature, issuer, audience and expiry of ID tokens.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
	allowed  map[string]struct{}
}

// NewVerifier discovers the issuer's signing keys and creates a Verifier.
func NewVerifier(ctx context.Context, cfg VerifierConfig) (*Verifier, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("audience is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	// The client in ctx is also used for later JWKS refreshes.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.IssuerURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")

	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	return newVerifier(op.Verifier(&gooidc.Config{ClientID: cfg.Audience}), cfg.AllowedSubjects), nil
}

// NewStaticVerifier creates a Verifier over a fixed key set, skipping discovery.
func NewStaticVerifier(issuer, audience string, keys gooidc.KeySet, allowedSubjects []string) *Verifier {
	v := gooidc.NewVerifier(issuer, keys, &gooidc.Config{ClientID: audience})
	return newVerifier(v, allowedSubjects)
}

func newVerifier(v *gooidc.IDTokenVerifier, allowedSubjects []string) *Verifier {
	allowed := make(map[string]struct{}, len(allowedSubjects))
	for _, s := range allowedSubjects {
		if s = strings.TrimSpace(s); s != "" {
			allowed[s] = struct{}{}
		}
	}
	return &Verifier{verifier: v, allowed: allowed}
}

type idClaims struct {
	Email string `json:"email"`
}

// Verify validates rawToken and returns the caller identity.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return Identity{}, errors.New("token is required")
	}
	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Identity{}, fmt.Errorf("verify id_token: %w", err)
	}
	if len(v.allowed) > 0 {
		if _, ok := v.allowed[tok.Subject]; !ok {
			return Identity{}, fmt.Errorf("%w: %s", ErrSubjectNotAllowed, tok.Subject)
		}
	}
	var claims idClaims
	if err := tok.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	return Identity{Subject: tok.Subject, Email: claims.Email, ExpiresAt: tok.Expiry}, nil
}
