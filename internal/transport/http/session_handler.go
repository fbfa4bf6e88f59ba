package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"talent-assessment-service/internal/app"
	"talent-assessment-service/internal/domain"
	"talent-assessment-service/internal/validator"
)

// SessionHandler serves the coordinator dashboard.
type SessionHandler struct {
	manager *app.SessionManager
}

func NewSessionHandler(manager *app.SessionManager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

type linkResponse struct {
	SessionID string `json:"sessionId"`
	Link      string `json:"link"`
}

type examPreview struct {
	SessionID     string        `json:"sessionId"`
	CandidateName string        `json:"candidateName"`
	Status        domain.Status `json:"status"`
	Questions     int           `json:"questions"`
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.List())
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, reasonFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateSessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Fields: validator.TranslateErrors(err)})
		return
	}

	session, err := h.manager.Create(r.Context(), in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, session)
	case validator.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Reason: "validation", Fields: validator.TranslateErrors(err)})
	case errors.Is(err, domain.ErrGenerationFailed):
		writeError(w, http.StatusBadGateway, "generation_failed", domain.ErrGenerationFailed)
	default:
		writeError(w, http.StatusInternalServerError, reasonFor(err), err)
	}
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, reasonFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Link(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	link, err := h.manager.BuildHandoffLink(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, linkResponse{SessionID: id, Link: link})
	case errors.Is(err, domain.ErrSessionCompleted):
		writeError(w, http.StatusConflict, reasonFor(err), err)
	default:
		writeError(w, http.StatusNotFound, reasonFor(err), err)
	}
}

func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Stats())
}

// Resolve tells the candidate page whether a locator can be resumed.
func (h *SessionHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	session, err := h.manager.ResolveHandoffLink(r.URL.Query().Get("locator"))
	if err != nil {
		writeError(w, http.StatusNotFound, reasonFor(err), domain.ErrNoActiveAssessment)
		return
	}
	writeJSON(w, http.StatusOK, examPreview{
		SessionID:     session.ID,
		CandidateName: session.CandidateName,
		Status:        session.Status,
		Questions:     len(session.Questions),
	})
}

// reasonFor maps domain errors to stable machine-readable codes.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionCompleted):
		return "session_completed"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, domain.ErrInvalidLocator):
		return "invalid_locator"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrNavigation):
		return "navigation"
	case errors.Is(err, domain.ErrInvalidOption):
		return "invalid_option"
	case errors.Is(err, domain.ErrUnknownQuestion):
		return "unknown_question"
	case errors.Is(err, domain.ErrNotAtLastQuestion):
		return "not_at_last_question"
	case errors.Is(err, domain.ErrPersist):
		return "persist_failed"
	}
	return "internal"
}
