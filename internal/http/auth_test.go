package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAuthenticator_IssueAndVerify(t *testing.T) {
	auth := NewAuthenticator([]byte("0123456789abcdef"))
	auth.now = func() time.Time { return testNow }

	token, err := auth.IssueToken(42, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	id, err := auth.Verify(token)
	if err != nil || id != 42 {
		t.Fatalf("Verify = %d, %v; want 42", id, err)
	}

	auth.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	if _, err := auth.Verify(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}

	if _, err := NewAuthenticator([]byte("another-secret-value")).Verify(token); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}

	if _, err := auth.IssueToken(0, 0); err == nil {
		t.Fatal("expected error for zero user id")
	}
}

func TestAuthenticator_RejectsOtherAlgorithmsAndMissingUser(t *testing.T) {
	secret := []byte("0123456789abcdef")
	auth := NewAuthenticator(secret)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.Verify(noUser); err == nil {
		t.Fatal("expected token without user_id to be rejected")
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: 1}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.Verify(hs512); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}

func TestAuthenticator_MiddlewareSetsUser(t *testing.T) {
	auth := NewAuthenticator([]byte("0123456789abcdef"))
	token, err := auth.IssueToken(7, 0)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	var got int64
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || got != 7 {
		t.Fatalf("status=%d user=%d, want 200/7", rr.Code, got)
	}
}
