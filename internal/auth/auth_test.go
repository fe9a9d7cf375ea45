package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":    "user-1",
		"iss":    "carbontrace",
		"scopes": []string{"footprint:read", "footprint:write"},
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
}

func TestParseValidToken(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "carbontrace"}
	token := signToken(t, validClaims())

	claims, err := Parse(token, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject = %q, want user-1", claims.Subject)
	}
	if !claims.HasScope("footprint:write") || !claims.HasScope("footprint:read") {
		t.Fatalf("expected both scopes present, got %v", claims.Scopes)
	}
	if claims.HasScope("admin") {
		t.Fatalf("unexpected scope granted")
	}
}

func TestParseScopesAsSpaceSeparatedString(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "carbontrace"}
	mapClaims := validClaims()
	mapClaims["scopes"] = "footprint:read footprint:write"
	token := signToken(t, mapClaims)

	claims, err := Parse(token, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !claims.HasScope("footprint:write") {
		t.Fatalf("expected write scope from string form, got %v", claims.Scopes)
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "carbontrace"}

	if _, err := Parse("", cfg); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}

	wrongSecret := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
	signed, _ := wrongSecret.SignedString([]byte("other-secret"))
	if _, err := Parse(signed, cfg); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	expired := validClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	if _, err := Parse(signToken(t, expired), cfg); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	wrongIssuer := validClaims()
	wrongIssuer["iss"] = "someone-else"
	if _, err := Parse(signToken(t, wrongIssuer), cfg); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}

	noSubject := validClaims()
	delete(noSubject, "sub")
	if _, err := Parse(signToken(t, noSubject), cfg); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing subject, got %v", err)
	}
}

func TestMiddlewareInjectsClaims(t *testing.T) {
	cfg := Config{Secret: testSecret, Issuer: "carbontrace"}
	middleware := NewMiddleware(cfg, nil)

	var seenUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = UserID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims()))
	rec := httptest.NewRecorder()
	middleware.Wrap(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seenUser != "user-1" {
		t.Fatalf("UserID = %q, want user-1", seenUser)
	}
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	middleware := NewMiddleware(Config{Secret: testSecret, Issuer: "carbontrace"}, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run without a token")
	})

	rec := httptest.NewRecorder()
	middleware.Wrap(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/activities", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type = %q, want application/json", got)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["type"] != "unauthorized" {
		t.Fatalf("error type = %q, want unauthorized", body["type"])
	}
}

func TestMiddlewarePassesPreflightThrough(t *testing.T) {
	middleware := NewMiddleware(Config{Secret: testSecret, Issuer: "carbontrace"}, func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	})

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/v1/activities", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	middleware.Wrap(next).ServeHTTP(rec, req)

	if !called {
		t.Fatalf("preflight must reach the CORS layer without a token")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestMiddlewareSkipper(t *testing.T) {
	middleware := NewMiddleware(Config{Secret: testSecret, Issuer: "carbontrace"}, func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	})

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	middleware.Wrap(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !called {
		t.Fatalf("skipped path should bypass authentication")
	}
}

func TestUserIDWithoutClaims(t *testing.T) {
	if got := UserID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Fatalf("expected empty user id, got %q", got)
	}
}
