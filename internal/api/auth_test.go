package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/enquirydesk/enquirydesk/internal/api"
	"github.com/enquirydesk/enquirydesk/internal/identity"
	"github.com/enquirydesk/enquirydesk/internal/token"
)

var errUnauthenticated = errors.New("unauthenticated")

// staticUser returns a currentUser resolver that always yields p, or an
// error when p is nil.
func staticUser(p *identity.Projection) func(context.Context) (*identity.Projection, error) {
	return func(context.Context) (*identity.Projection, error) {
		if p == nil {
			return nil, errUnauthenticated
		}
		return p, nil
	}
}

func newAuthHandler(current *identity.Projection) (*api.AuthHandler, *identity.MemoryRepo) {
	repo := identity.NewMemoryRepo()
	issuer := identity.NewIssuer(repo, identity.NewPasswordHasherFast(),
		token.NewService("test-key", "test", 0))
	return api.NewAuthHandler(issuer, staticUser(current), nil), repo
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorEnvelope {
	t.Helper()
	var env api.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env
}

func TestHandleRegister(t *testing.T) {
	h, _ := newAuthHandler(nil)

	rec := postJSON(t, h.HandleRegister, "/api/auth/register", api.RegisterRequest{
		Email:    "new@example.com",
		Password: "password123",
		Name:     "New Worker",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp api.AuthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token in the response")
	}
	if resp.Employee.Email != "new@example.com" {
		t.Errorf("unexpected employee %+v", resp.Employee)
	}
}

func TestHandleRegister_Validation(t *testing.T) {
	h, _ := newAuthHandler(nil)

	tests := []struct {
		name   string
		body   api.RegisterRequest
		reason string
	}{
		{"missing email", api.RegisterRequest{Password: "password123", Name: "W"}, api.ReasonMissingField},
		{"bad email", api.RegisterRequest{Email: "not-an-email", Password: "password123", Name: "Worker"}, api.ReasonInvalidField},
		{"short password", api.RegisterRequest{Email: "a@b.co", Password: "short", Name: "Worker"}, api.ReasonInvalidField},
		{"missing name", api.RegisterRequest{Email: "a@b.co", Password: "password123"}, api.ReasonMissingField},
		{"short name", api.RegisterRequest{Email: "a@b.co", Password: "password123", Name: "W"}, api.ReasonInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.HandleRegister, "/api/auth/register", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if env := decodeError(t, rec); env.Error.ReasonCode != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, env.Error.ReasonCode)
			}
		})
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	h, _ := newAuthHandler(nil)

	body := api.RegisterRequest{Email: "taken@example.com", Password: "password123", Name: "First"}
	if rec := postJSON(t, h.HandleRegister, "/api/auth/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("setup register failed: %d", rec.Code)
	}

	body.Name = "Second"
	rec := postJSON(t, h.HandleRegister, "/api/auth/register", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Error.ReasonCode != api.ReasonEmailTaken {
		t.Errorf("expected reason %q, got %q", api.ReasonEmailTaken, env.Error.ReasonCode)
	}
}

func TestHandleLogin(t *testing.T) {
	h, _ := newAuthHandler(nil)

	reg := api.RegisterRequest{Email: "worker@example.com", Password: "password123", Name: "Worker"}
	if rec := postJSON(t, h.HandleRegister, "/api/auth/register", reg); rec.Code != http.StatusCreated {
		t.Fatalf("setup register failed: %d", rec.Code)
	}

	rec := postJSON(t, h.HandleLogin, "/api/auth/login", api.LoginRequest{
		Email:    "worker@example.com",
		Password: "password123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp api.AuthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token in the response")
	}
}

func TestHandleLogin_Failures(t *testing.T) {
	h, _ := newAuthHandler(nil)

	reg := api.RegisterRequest{Email: "worker@example.com", Password: "password123", Name: "Worker"}
	if rec := postJSON(t, h.HandleRegister, "/api/auth/register", reg); rec.Code != http.StatusCreated {
		t.Fatalf("setup register failed: %d", rec.Code)
	}

	// Wrong password and unknown email both give the same 401
	for _, body := range []api.LoginRequest{
		{Email: "worker@example.com", Password: "wrongpassword"},
		{Email: "unknown@example.com", Password: "password123"},
	} {
		rec := postJSON(t, h.HandleLogin, "/api/auth/login", body)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("login %s: expected 401, got %d", body.Email, rec.Code)
			continue
		}
		if env := decodeError(t, rec); env.Error.ReasonCode != api.ReasonInvalidCredentials {
			t.Errorf("expected reason %q, got %q", api.ReasonInvalidCredentials, env.Error.ReasonCode)
		}
	}
}

func TestHandleLogin_InvalidJSON(t *testing.T) {
	h, _ := newAuthHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", rec.Code)
	}
}

func TestHandleMe(t *testing.T) {
	current := &identity.Projection{ID: "emp-1", Email: "worker@example.com", Name: "Worker"}
	h, _ := newAuthHandler(current)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	h.HandleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp api.MeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Employee.ID != "emp-1" {
		t.Errorf("unexpected employee %+v", resp.Employee)
	}
}

func TestHandleMe_Unauthenticated(t *testing.T) {
	h, _ := newAuthHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	h.HandleMe(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
