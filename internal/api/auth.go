package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/enquirydesk/enquirydesk/internal/identity"
)

// AuthHandler handles registration, login, and the current-employee lookup.
type AuthHandler struct {
	issuer      *identity.Issuer
	currentUser func(context.Context) (*identity.Projection, error)
	log         *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(
	issuer *identity.Issuer,
	currentUser func(context.Context) (*identity.Projection, error),
	log *slog.Logger,
) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{
		issuer:      issuer,
		currentUser: currentUser,
		log:         log,
	}
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the bearer token and the employee it identifies.
type AuthResponse struct {
	Token    string              `json:"token"`
	Employee identity.Projection `json:"employee"`
}

// MeResponse is the body of GET /api/auth/me.
type MeResponse struct {
	Employee identity.Projection `json:"employee"`
}

// HandleRegister handles POST /api/auth/register.
// A taken email is reported as a conflict so callers can distinguish it
// from validation failures.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}

	if fe := ValidateEmail(req.Email); fe != nil {
		WriteBadRequest(w, fe.Reason, fe.Message)
		return
	}
	if fe := ValidatePassword(req.Password); fe != nil {
		WriteBadRequest(w, fe.Reason, fe.Message)
		return
	}
	if fe := ValidateName(req.Name); fe != nil {
		WriteBadRequest(w, fe.Reason, fe.Message)
		return
	}

	employee, token, err := h.issuer.Register(r.Context(), req.Email, req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, identity.ErrEmailExists) {
			WriteConflict(w, ReasonEmailTaken, "an account with this email already exists")
			return
		}
		h.log.Error("registration failed", "error", err)
		WriteInternalError(w, "registration failed")
		return
	}

	WriteJSON(w, http.StatusCreated, AuthResponse{
		Token:    token,
		Employee: employee.Project(),
	})
}

// HandleLogin handles POST /api/auth/login.
// Unknown email and wrong password produce the same response.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteBadRequest(w, ReasonBadRequest, "invalid JSON body")
		return
	}

	if fe := ValidateEmail(req.Email); fe != nil {
		WriteBadRequest(w, fe.Reason, fe.Message)
		return
	}
	if req.Password == "" {
		WriteBadRequest(w, ReasonMissingField, "password is required")
		return
	}

	employee, token, err := h.issuer.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			WriteUnauthorized(w, ReasonInvalidCredentials, "invalid email or password")
			return
		}
		h.log.Error("login failed", "error", err)
		WriteInternalError(w, "login failed")
		return
	}

	WriteJSON(w, http.StatusOK, AuthResponse{
		Token:    token,
		Employee: employee.Project(),
	})
}

// HandleMe handles GET /api/auth/me.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r.Context())
	if err != nil {
		WriteUnauthorized(w, ReasonUnauthenticated, "authentication required")
		return
	}

	WriteJSON(w, http.StatusOK, MeResponse{Employee: *user})
}
