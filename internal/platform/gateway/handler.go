package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Backend is the subset of Client served over HTTP.
type Backend interface {
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Register(ctx context.Context, fullName, email, password string) (string, error)
	History(ctx context.Context) ([]json.RawMessage, error)
	Statistics(ctx context.Context) (json.RawMessage, error)
}

type Handler struct {
	backend Backend
	logger  zerolog.Logger
}

func NewHandler(backend Backend, logger zerolog.Logger) *Handler {
	return &Handler{backend: backend, logger: logger}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request"})
		return
	}
	resp, err := h.backend.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request"})
		return
	}
	msg, err := h.backend.Register(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageBody{Message: msg})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	items, err := h.backend.History(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.backend.Statistics(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// writeError surfaces the backend's message as is.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var gwErr *Error
	if errors.As(err, &gwErr) {
		msg = gwErr.Message
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: msg})
	case errors.Is(err, ErrRemoteGateway):
		h.logger.Warn().Err(err).Msg("gateway call failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: msg})
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ForwardAuth puts the caller's bearer token, if any, on the request
// context so gateway calls made on its behalf authenticate as the caller.
func ForwardAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			r = r.WithContext(WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "bearer "
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Group(func(r chi.Router) {
		r.Use(ForwardAuth)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/register", h.Register)
		r.Get("/history", h.History)
		r.Get("/statistics", h.Statistics)
	})
}
