package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, subject, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject})
	raw, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("не удалось подписать токен: %v", err)
	}
	return raw
}

func runOptionalAuth(t *testing.T, authorization string) string {
	t.Helper()
	var captured string
	handler := OptionalAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = UserID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return captured
}

func TestOptionalAuthValidToken(t *testing.T) {
	subject := uuid.NewString()
	got := runOptionalAuth(t, "Bearer "+signedToken(t, subject, testSecret))
	if got != subject {
		t.Fatalf("ожидали userID %q, получили %q", subject, got)
	}
}

func TestOptionalAuthMissingTokenIsAnonymous(t *testing.T) {
	if got := runOptionalAuth(t, ""); got != "" {
		t.Fatalf("ожидали анонимный вызов, получили %q", got)
	}
}

func TestOptionalAuthBadSignatureIsAnonymous(t *testing.T) {
	subject := uuid.NewString()
	if got := runOptionalAuth(t, "Bearer "+signedToken(t, subject, "wrong")); got != "" {
		t.Fatalf("невалидная подпись должна давать анонима, получили %q", got)
	}
}

func TestOptionalAuthNonUUIDSubjectIsAnonymous(t *testing.T) {
	if got := runOptionalAuth(t, "Bearer "+signedToken(t, "user-42", testSecret)); got != "" {
		t.Fatalf("не-UUID subject должен давать анонима, получили %q", got)
	}
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	handler := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ожидали 401, получили %d", rec.Code)
	}
}

func TestRequireAuthPassesValidToken(t *testing.T) {
	subject := uuid.NewString()
	var captured string
	handler := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = UserID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, subject, testSecret))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if captured != subject {
		t.Fatalf("ожидали userID %q, получили %q", subject, captured)
	}
}
