package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rurikon/gallery-api/internal/middleware"
	"github.com/rurikon/gallery-api/internal/pkg/jwt"
	"github.com/rurikon/gallery-api/internal/pkg/password"
)

func newTestHandler(t *testing.T) (*Handler, *jwt.Service) {
	t.Helper()
	hash, err := password.HashWithCost("password123", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	jwtService := jwt.NewService("secret", time.Hour)
	return NewHandler(NewService("Admin@Example.com", hash, jwtService)), jwtService
}

func postLogin(h *Handler, email, pass string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(LoginRequest{Email: email, Password: pass})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Login(rr, req)
	return rr
}

func TestLoginHandlerReturnsToken(t *testing.T) {
	h, jwtService := newTestHandler(t)

	rr := postLogin(h, " admin@example.com ", "password123")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var out struct {
		Success bool          `json:"success"`
		Data    TokenResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Data.AccessToken == "" {
		t.Fatal("expected access token in response")
	}

	claims, err := jwtService.ValidateAccessToken(out.Data.AccessToken)
	if err != nil {
		t.Fatalf("token does not validate: %v", err)
	}
	if claims.Identity != "admin@example.com" || claims.Role != jwt.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginHandlerRejectsBadCredentials(t *testing.T) {
	h, _ := newTestHandler(t)

	if rr := postLogin(h, "admin@example.com", "wrong"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", rr.Code)
	}
	if rr := postLogin(h, "other@example.com", "password123"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong email: expected 401, got %d", rr.Code)
	}
	if rr := postLogin(h, "not-an-email", "password123"); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed email: expected 422, got %d", rr.Code)
	}
}

func TestLoginUnconfiguredOperator(t *testing.T) {
	h := NewHandler(NewService("", "", jwt.NewService("secret", time.Hour)))

	if rr := postLogin(h, "admin@example.com", "password123"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestMeReturnsContextIdentity(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), "admin@example.com", jwt.RoleAdmin))
	rr := httptest.NewRecorder()
	h.Me(rr, req)

	var out struct {
		Data MeResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Data.Identity != "admin@example.com" {
		t.Fatalf("unexpected identity %q", out.Data.Identity)
	}
}
