package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/enquirydesk/enquirydesk/internal/enquiry"
	"github.com/enquirydesk/enquirydesk/internal/identity"
)

// EnquiryView is the API representation of an enquiry.
type EnquiryView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     *string   `json:"phone,omitempty"`
	Message   string    `json:"message"`
	ClaimedBy *string   `json:"claimedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewEnquiryView converts an enquiry to its API representation.
func NewEnquiryView(e *enquiry.Enquiry) EnquiryView {
	return EnquiryView{
		ID:        e.ID,
		Name:      e.Name,
		Email:     e.Email,
		Phone:     e.Phone,
		Message:   e.Message,
		ClaimedBy: e.ClaimedBy,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// EnquiryListResponse wraps the enquiry views returned by list endpoints.
type EnquiryListResponse struct {
	Enquiries []EnquiryView `json:"enquiries"`
}

// EnquiryResponse wraps a single enquiry, returned by submission and by a
// successful claim.
type EnquiryResponse struct {
	Enquiry EnquiryView `json:"enquiry"`
}

// SubmitRequest is the body of POST /api/enquiries/public.
type SubmitRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// EnquiryHandler handles public submission and the worker-facing enquiry
// endpoints.
type EnquiryHandler struct {
	svc         *enquiry.Service
	currentUser func(context.Context) (*identity.Projection, error)
	log         *slog.Logger
}

// NewEnquiryHandler creates a new enquiry handler.
func NewEnquiryHandler(
	svc *enquiry.Service,
	currentUser func(context.Context) (*identity.Projection, error),
	log *slog.Logger,
) *EnquiryHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EnquiryHandler{
		svc:         svc,
		currentUser: currentUser,
		log:         log,
	}
}

// HandleSubmit handles POST /api/enquiries/public.
// This is the only unauthenticated write endpoint; external parties use
// it to file enquiries.
func (h *EnquiryHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}

	if fe := ValidateName(req.Name); fe != nil {
		WriteBadRequest(w, fe.Reason, fe.Message)
		return
	}
	if fe := ValidateEmail(req.Email); fe != nil {
		WriteBadRequest(w, fe.Reason, fe.Message)
		return
	}
	if fe := ValidatePhone(req.Phone); fe != nil {
		WriteBadRequest(w, fe.Reason, fe.Message)
		return
	}
	if fe := ValidateMessage(req.Message); fe != nil {
		WriteBadRequest(w, fe.Reason, fe.Message)
		return
	}

	var phone *string
	if p := strings.TrimSpace(req.Phone); p != "" {
		phone = &p
	}

	created, err := h.svc.Submit(r.Context(), req.Name, req.Email, phone, req.Message)
	if err != nil {
		h.log.Error("failed to store enquiry", "error", err)
		WriteInternalError(w, "failed to store enquiry")
		return
	}

	WriteJSON(w, http.StatusCreated, EnquiryResponse{Enquiry: NewEnquiryView(created)})
}

// HandleListUnclaimed handles GET /api/enquiries/unclaimed.
// Returns the pool every authenticated worker races over.
func (h *EnquiryHandler) HandleListUnclaimed(w http.ResponseWriter, r *http.Request) {
	if _, err := h.currentUser(r.Context()); err != nil {
		WriteUnauthorized(w, ReasonUnauthenticated, "authentication required")
		return
	}

	result, err := h.svc.ListUnclaimed(r.Context())
	if err != nil {
		h.log.Error("failed to list unclaimed enquiries", "error", err)
		WriteInternalError(w, "failed to list enquiries")
		return
	}

	views := make([]EnquiryView, 0, len(result))
	for _, e := range result {
		views = append(views, NewEnquiryView(e))
	}

	WriteJSON(w, http.StatusOK, EnquiryListResponse{Enquiries: views})
}

// HandleListMine handles GET /api/enquiries/mine.
// Lists only enquiries claimed by the authenticated employee.
func (h *EnquiryHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		WriteUnauthorized(w, ReasonUnauthenticated, "authentication required")
		return
	}

	result, err := h.svc.ListClaimedBy(r.Context(), user.ID)
	if err != nil {
		h.log.Error("failed to list claimed enquiries", "employee_id", user.ID, "error", err)
		WriteInternalError(w, "failed to list enquiries")
		return
	}

	views := make([]EnquiryView, 0, len(result))
	for _, e := range result {
		views = append(views, NewEnquiryView(e))
	}

	WriteJSON(w, http.StatusOK, EnquiryListResponse{Enquiries: views})
}

// HandleClaim handles POST /api/enquiries/{enquiryID}/claim.
// Exactly one of the racing claimers gets 200; everyone else gets 409, or
// 404 if the enquiry never existed.
func (h *EnquiryHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		WriteUnauthorized(w, ReasonUnauthenticated, "authentication required")
		return
	}

	enquiryID := chi.URLParam(r, "enquiryID")
	if enquiryID == "" {
		WriteBadRequest(w, ReasonMissingField, "enquiryID is required")
		return
	}

	result, err := h.svc.Claim(r.Context(), enquiryID, user.ID)
	if err != nil {
		h.log.Error("claim failed", "enquiry_id", enquiryID, "employee_id", user.ID, "error", err)
		WriteInternalError(w, "claim failed")
		return
	}

	switch result.Outcome {
	case enquiry.OutcomeClaimed:
		WriteJSON(w, http.StatusOK, EnquiryResponse{Enquiry: NewEnquiryView(result.Enquiry)})
	case enquiry.OutcomeAlreadyClaimed:
		WriteConflict(w, ReasonConflict, "enquiry has already been claimed")
	case enquiry.OutcomeNotFound:
		WriteNotFound(w, "enquiry not found")
	default:
		h.log.Error("unexpected claim outcome", "outcome", string(result.Outcome))
		WriteInternalError(w, "claim failed")
	}
}
