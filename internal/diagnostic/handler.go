package diagnostic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mydiagai/internal/intake"
)

type Handler struct {
	svc    Service
	logger zerolog.Logger
}

func NewHandler(svc Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// flexString accepts both JSON strings and numbers, so an age typed into a
// number input can be posted either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	*f = flexString(b)
	return nil
}

type PatientRequest struct {
	Name   string     `json:"name"`
	Age    flexString `json:"age"`
	Gender string     `json:"gender"`
}

type errorResponse struct {
	Error  string                    `json:"error"`
	Fields []*intake.ValidationError `json:"fields,omitempty"`
}

func (h *Handler) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Symptoms())
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.CreateSession(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	snap, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.CloseSession(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SubmitPatient(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request"})
		return
	}
	snap, err := h.svc.SubmitPatient(r.Context(), id, PatientForm{
		Name:   req.Name,
		Age:    string(req.Age),
		Gender: req.Gender,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) ToggleSymptom(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	snap, err := h.svc.ToggleSymptom(r.Context(), id, chi.URLParam(r, "symptomID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.StatusOK, h.svc.Back)
}

func (h *Handler) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.StatusAccepted, h.svc.StartAnalysis)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, http.StatusOK, h.svc.Reset)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	report, err := h.svc.Report(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ReportPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	data, filename, err := h.svc.ExportPDF(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, status int, fn func(ctx context.Context, id uuid.UUID) (Snapshot, error)) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	snap, err := fn(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, status, snap)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid session ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if fields := intake.FieldErrors(err); len(fields) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid patient", Fields: fields})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrUnknownSymptom):
		status = http.StatusNotFound
	case errors.Is(err, ErrEmptySelection),
		errors.Is(err, ErrIncompleteSession),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrSessionClosed):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/symptoms", h.ListSymptoms)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Post("/patient", h.SubmitPatient)
			r.Post("/symptoms/{symptomID}", h.ToggleSymptom)
			r.Post("/back", h.Back)
			r.Post("/analysis", h.StartAnalysis)
			r.Post("/reset", h.Reset)
			r.Get("/report", h.Report)
			r.Get("/report.pdf", h.ReportPDF)
		})
	})
}
