package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

const issuerRequestTimeout = 10 * time.Second

// OIDCVerifier checks ID tokens against an OpenID Connect issuer, e.g.
// https://securetoken.google.com/<project> for Firebase.
type OIDCVerifier struct {
	verifier  *oidc.IDTokenVerifier
	transport *issuerTransport
}

// NewOIDCVerifier runs provider discovery, so it needs network access to issuerURL.
func NewOIDCVerifier(ctx context.Context, issuerURL, clientID string) (*OIDCVerifier, error) {
	return newOIDCVerifier(ctx, issuerURL, clientID, http.DefaultTransport)
}

func newOIDCVerifier(ctx context.Context, issuerURL, clientID string, base http.RoundTripper) (*OIDCVerifier, error) {
	transport := &issuerTransport{next: base}
	// The key set keeps the client from this context for every later JWKS fetch.
	ctx = oidc.ClientContext(ctx, &http.Client{
		Transport: transport,
		Timeout:   issuerRequestTimeout,
	})

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	conf := oidc.Config{}
	if clientID == "" {
		conf.SkipClientIDCheck = true
	} else {
		conf.ClientID = clientID
	}
	return &OIDCVerifier{verifier: provider.Verifier(&conf), transport: transport}, nil
}

// Verify reports ErrProviderUnavailable when the issuer could not be reached
// while checking the token. go-oidc flattens transport errors into strings,
// so the failure is read from the transport instead of the error chain.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	failuresBefore := v.transport.failures.Load()

	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		if v.transport.failures.Load() != failuresBefore || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}{}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return &Identity{
		Subject: token.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}

// issuerTransport counts issuer requests that failed in transport or with a 5xx.
// A failure seen by a concurrent Verify may report an invalid token as an outage.
type issuerTransport struct {
	next     http.RoundTripper
	failures atomic.Uint64
}

func (t *issuerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode >= http.StatusInternalServerError {
		t.failures.Add(1)
	}
	return resp, err
}
