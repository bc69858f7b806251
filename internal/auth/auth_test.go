package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACVerifier(t *testing.T) {
	v, err := NewHMACVerifier("secret")
	require.NoError(t, err)

	token, err := v.Sign(Identity{Subject: "uid-1", Email: "a@uni.edu", Name: "Ann"}, time.Minute)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{Subject: "uid-1", Email: "a@uni.edu", Name: "Ann"}, id)

	expired, err := v.Sign(Identity{Subject: "uid-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewHMACVerifier("other")
	require.NoError(t, err)
	_, err = other.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := v.Sign(Identity{Email: "x@uni.edu"}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewHMACVerifier("")
	assert.Error(t, err)
}

type stubVerifier struct {
	calls int
	err   error
}

func (s *stubVerifier) Verify(context.Context, string) (*Identity, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Identity{Subject: "ok"}, nil
}

func TestBreakerIgnoresInvalidTokens(t *testing.T) {
	stub := &stubVerifier{err: ErrInvalidToken}
	v := NewBreakerVerifier(stub, BreakerSettings{Name: "test", FailureThreshold: 2, Timeout: time.Minute}, nil)

	for i := 0; i < 5; i++ {
		_, err := v.Verify(context.Background(), "t")
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	assert.Equal(t, 5, stub.calls)
	assert.Equal(t, gobreaker.StateClosed, v.State())
}

func TestBreakerOpensOnProviderFailures(t *testing.T) {
	stub := &stubVerifier{err: errors.New("connection refused")}
	v := NewBreakerVerifier(stub, BreakerSettings{Name: "test", FailureThreshold: 2, Timeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := v.Verify(context.Background(), "t")
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, v.State())

	_, err := v.Verify(context.Background(), "t")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 2, stub.calls)
}

func newOIDCServer(t *testing.T, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	r.GET("/.well-known/openid-configuration", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"issuer":                                srv.URL,
			"jwks_uri":                              srv.URL + "/keys",
			"authorization_endpoint":                srv.URL + "/auth",
			"token_endpoint":                        srv.URL + "/token",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	r.GET("/keys", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"keys": []gin.H{{
			"kty": "RSA",
			"kid": "k1",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	return srv
}

func signRS256(t *testing.T, key *rsa.PrivateKey, issuer, audience string) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		Email: "ann@uni.edu",
		Name:  "Ann",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "firebase-uid",
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	token.Header["kid"] = "k1"
	raw, err := token.SignedString(key)
	require.NoError(t, err)
	return raw
}

func TestOIDCVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := newOIDCServer(t, key)

	v, err := NewOIDCVerifier(context.Background(), srv.URL, "campus-app")
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), signRS256(t, key, srv.URL, "campus-app"))
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid", id.Subject)
	assert.Equal(t, "ann@uni.edu", id.Email)
	assert.Equal(t, "Ann", id.Name)

	_, err = v.Verify(context.Background(), signRS256(t, key, srv.URL, "someone-else"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOIDCVerifierReportsUnreachableIssuer(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := newOIDCServer(t, key)

	oidcVerifier, err := NewOIDCVerifier(context.Background(), srv.URL, "campus-app")
	require.NoError(t, err)
	token := signRS256(t, key, srv.URL, "campus-app")

	// keys are fetched lazily, so the issuer goes away before the first fetch
	srv.Close()

	_, err = oidcVerifier.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidToken)

	v := NewBreakerVerifier(oidcVerifier, BreakerSettings{Name: "oidc", FailureThreshold: 2, Timeout: time.Minute}, nil)
	for i := 0; i < 2; i++ {
		_, err = v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, v.State())

	_, err = v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestOIDCVerifierTreatsKeyServerErrorsAsOutage(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := newOIDCServer(t, key)

	var failKeys atomic.Bool
	base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if failKeys.Load() && strings.HasSuffix(req.URL.Path, "/keys") {
			rec := httptest.NewRecorder()
			rec.WriteHeader(http.StatusServiceUnavailable)
			resp := rec.Result()
			resp.Request = req
			return resp, nil
		}
		return http.DefaultTransport.RoundTrip(req)
	})

	v, err := newOIDCVerifier(context.Background(), srv.URL, "campus-app", base)
	require.NoError(t, err)
	failKeys.Store(true)

	_, err = v.Verify(context.Background(), signRS256(t, key, srv.URL, "campus-app"))
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	failKeys.Store(false)
	id, err := v.Verify(context.Background(), signRS256(t, key, srv.URL, "campus-app"))
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid", id.Subject)

	// a rejected token after a healthy fetch stays a client error
	_, err = v.Verify(context.Background(), signRS256(t, key, srv.URL, "someone-else"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
