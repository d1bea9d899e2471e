package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/enquirydesk/enquirydesk/internal/api"
	"github.com/enquirydesk/enquirydesk/internal/enquiry"
	"github.com/enquirydesk/enquirydesk/internal/identity"
)

// newEnquiryRouter mounts the enquiry handler on a chi router so URL
// params resolve, with current as the authenticated employee (nil for
// anonymous).
func newEnquiryRouter(current *identity.Projection) (http.Handler, *enquiry.MemoryRepo) {
	repo := enquiry.NewMemoryRepo()
	svc := enquiry.NewService(repo, nil)
	h := api.NewEnquiryHandler(svc, staticUser(current), nil)

	r := chi.NewRouter()
	r.Post("/api/enquiries/public", h.HandleSubmit)
	r.Get("/api/enquiries/unclaimed", h.HandleListUnclaimed)
	r.Get("/api/enquiries/mine", h.HandleListMine)
	r.Post("/api/enquiries/{enquiryID}/claim", h.HandleClaim)
	return r, repo
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func validSubmit() api.SubmitRequest {
	return api.SubmitRequest{
		Name:    "Interested Visitor",
		Email:   "visitor@example.com",
		Phone:   "+1 555 123 4567",
		Message: "I would like to know more about your services.",
	}
}

func TestHandleSubmit(t *testing.T) {
	router, repo := newEnquiryRouter(nil)

	rec := doJSON(t, router, http.MethodPost, "/api/enquiries/public", validSubmit())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp api.EnquiryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Enquiry.ID == "" {
		t.Error("expected enquiry ID in response")
	}
	if resp.Enquiry.ClaimedBy != nil {
		t.Error("new enquiry must be unclaimed")
	}

	stored, err := repo.Get(context.Background(), resp.Enquiry.ID)
	if err != nil {
		t.Fatalf("stored enquiry not found: %v", err)
	}
	if stored.Message != "I would like to know more about your services." {
		t.Errorf("unexpected stored message %q", stored.Message)
	}
}

func TestHandleSubmit_Validation(t *testing.T) {
	router, _ := newEnquiryRouter(nil)

	tests := []struct {
		name   string
		mutate func(*api.SubmitRequest)
	}{
		{"missing name", func(r *api.SubmitRequest) { r.Name = "" }},
		{"short name", func(r *api.SubmitRequest) { r.Name = "X" }},
		{"missing email", func(r *api.SubmitRequest) { r.Email = "" }},
		{"bad email", func(r *api.SubmitRequest) { r.Email = "nope" }},
		{"short message", func(r *api.SubmitRequest) { r.Message = "too short" }},
		{"missing message", func(r *api.SubmitRequest) { r.Message = "" }},
		{"bad phone chars", func(r *api.SubmitRequest) { r.Phone = "call me maybe!" }},
		{"short phone", func(r *api.SubmitRequest) { r.Phone = "12345" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validSubmit()
			tt.mutate(&body)
			rec := doJSON(t, router, http.MethodPost, "/api/enquiries/public", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleSubmit_PhoneOptional(t *testing.T) {
	router, _ := newEnquiryRouter(nil)

	body := validSubmit()
	body.Phone = ""
	rec := doJSON(t, router, http.MethodPost, "/api/enquiries/public", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 without phone, got %d", rec.Code)
	}

	var resp api.EnquiryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Enquiry.Phone != nil {
		t.Errorf("expected no phone, got %v", *resp.Enquiry.Phone)
	}
}

func TestHandleListUnclaimed(t *testing.T) {
	current := &identity.Projection{ID: "emp-1", Email: "w@example.com", Name: "W"}
	router, repo := newEnquiryRouter(current)

	// Two open, one claimed by someone else
	for i := 0; i < 2; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/enquiries/public", validSubmit())
		if rec.Code != http.StatusCreated {
			t.Fatalf("submit failed: %d", rec.Code)
		}
	}
	claimed := &enquiry.Enquiry{Name: "V", Email: "v@example.com", Message: "already someone else's work"}
	if err := repo.CreateUnclaimed(context.Background(), claimed); err != nil {
		t.Fatalf("CreateUnclaimed failed: %v", err)
	}
	if n, err := repo.ClaimIfUnclaimed(context.Background(), claimed.ID, "emp-other"); n != 1 || err != nil {
		t.Fatalf("setup claim failed: (%d, %v)", n, err)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/enquiries/unclaimed", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp api.EnquiryListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Enquiries) != 2 {
		t.Fatalf("expected 2 unclaimed, got %d", len(resp.Enquiries))
	}
	for _, e := range resp.Enquiries {
		if e.ID == claimed.ID {
			t.Error("claimed enquiry leaked into unclaimed list")
		}
	}
}

func TestHandleListUnclaimed_Unauthenticated(t *testing.T) {
	router, _ := newEnquiryRouter(nil)

	rec := doJSON(t, router, http.MethodGet, "/api/enquiries/unclaimed", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestHandleClaim(t *testing.T) {
	current := &identity.Projection{ID: "emp-1", Email: "w@example.com", Name: "W"}
	router, repo := newEnquiryRouter(current)

	e := &enquiry.Enquiry{Name: "V", Email: "v@example.com", Message: "an open enquiry to claim"}
	if err := repo.CreateUnclaimed(context.Background(), e); err != nil {
		t.Fatalf("CreateUnclaimed failed: %v", err)
	}

	// First claim wins
	rec := doJSON(t, router, http.MethodPost, "/api/enquiries/"+e.ID+"/claim", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp api.EnquiryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Enquiry.ClaimedBy == nil || *resp.Enquiry.ClaimedBy != "emp-1" {
		t.Errorf("expected claimedBy emp-1, got %v", resp.Enquiry.ClaimedBy)
	}

	// Second claim conflicts, even from the same employee
	rec = doJSON(t, router, http.MethodPost, "/api/enquiries/"+e.ID+"/claim", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 on re-claim, got %d", rec.Code)
	}
	if env := decodeError(t, rec); env.Error.ReasonCode != api.ReasonConflict {
		t.Errorf("expected reason %q, got %q", api.ReasonConflict, env.Error.ReasonCode)
	}
}

func TestHandleClaim_NotFound(t *testing.T) {
	current := &identity.Projection{ID: "emp-1", Email: "w@example.com", Name: "W"}
	router, _ := newEnquiryRouter(current)

	rec := doJSON(t, router, http.MethodPost, "/api/enquiries/no-such-id/claim", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleClaim_Unauthenticated(t *testing.T) {
	router, repo := newEnquiryRouter(nil)

	e := &enquiry.Enquiry{Name: "V", Email: "v@example.com", Message: "nobody is logged in here"}
	if err := repo.CreateUnclaimed(context.Background(), e); err != nil {
		t.Fatalf("CreateUnclaimed failed: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/enquiries/"+e.ID+"/claim", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	// The enquiry is untouched
	got, _ := repo.Get(context.Background(), e.ID)
	if got.ClaimedBy != nil {
		t.Error("unauthenticated claim must not take effect")
	}
}

func TestHandleListMine(t *testing.T) {
	current := &identity.Projection{ID: "emp-1", Email: "w@example.com", Name: "W"}
	router, repo := newEnquiryRouter(current)

	mine := &enquiry.Enquiry{Name: "V", Email: "v@example.com", Message: "claimed by the test employee"}
	other := &enquiry.Enquiry{Name: "V", Email: "v@example.com", Message: "claimed by somebody else"}
	open := &enquiry.Enquiry{Name: "V", Email: "v@example.com", Message: "still open for claiming"}
	for _, e := range []*enquiry.Enquiry{mine, other, open} {
		if err := repo.CreateUnclaimed(context.Background(), e); err != nil {
			t.Fatalf("CreateUnclaimed failed: %v", err)
		}
	}
	repo.ClaimIfUnclaimed(context.Background(), mine.ID, "emp-1")
	repo.ClaimIfUnclaimed(context.Background(), other.ID, "emp-2")

	rec := doJSON(t, router, http.MethodGet, "/api/enquiries/mine", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp api.EnquiryListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Enquiries) != 1 || resp.Enquiries[0].ID != mine.ID {
		t.Errorf("expected exactly my claimed enquiry, got %d entries", len(resp.Enquiries))
	}
}
