package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/store"
)

// personaRequest is the body for create and update. Update replaces every
// editable field.
type personaRequest struct {
	UserID         string   `json:"user_id" validate:"max=100"`
	Name           string   `json:"name" validate:"required,max=100"`
	Birthday       string   `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Loves          []string `json:"loves" validate:"max=3,dive,max=100"` // gift.MaxLoves
	Hates          []string `json:"hates" validate:"max=20,dive,max=100"`
	Allergies      []string `json:"allergies" validate:"max=20,dive,max=100"`
	Dietary        []string `json:"dietary_restrictions" validate:"max=20,dive,max=100"`
	Description    string   `json:"description" validate:"max=2000"`
	EmailReminders *bool    `json:"email_reminders"`
	UserEmail      string   `json:"user_email" validate:"omitempty,email"`
	LastGift       string   `json:"last_gift" validate:"max=200"`
}

func (req personaRequest) persona() gift.Persona {
	p := gift.Persona{
		UserID:         req.UserID,
		Name:           req.Name,
		Loves:          req.Loves,
		Hates:          req.Hates,
		Allergies:      req.Allergies,
		Dietary:        req.Dietary,
		Description:    req.Description,
		EmailReminders: true,
		UserEmail:      req.UserEmail,
		LastGift:       req.LastGift,
	}
	if req.EmailReminders != nil {
		p.EmailReminders = *req.EmailReminders
	}
	if req.Birthday != "" {
		// Already validated as YYYY-MM-DD.
		if t, err := time.Parse(time.DateOnly, req.Birthday); err == nil {
			p.Birthday = &t
		}
	}
	return p
}

type personaListResponse struct {
	Personas []gift.Persona `json:"personas"`
}

// ─── POST /api/personas ───────────────────────────────────────────────────────

func (s *Server) handleCreatePersona(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := s.personas.CreatePersona(r.Context(), req.persona())
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create persona: %w", err))
		return
	}

	s.logger.Info("persona: created", "persona_id", p.ID, "user_id", p.UserID, logField(r))
	respond(w, http.StatusCreated, p)
}

// ─── GET /api/personas?user_id= ──────────────────────────────────────────────

func (s *Server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	list, err := s.personas.ListPersonas(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list personas: %w", err))
		return
	}
	if list == nil {
		list = []gift.Persona{}
	}
	respond(w, http.StatusOK, personaListResponse{Personas: list})
}

// ─── GET /api/personas/{personaID} ───────────────────────────────────────────

func (s *Server) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	p, err := s.personas.GetPersona(r.Context(), chi.URLParam(r, "personaID"))
	if s.personaErr(w, r, err, "get persona") {
		return
	}
	respond(w, http.StatusOK, p)
}

// ─── PUT /api/personas/{personaID} ───────────────────────────────────────────

func (s *Server) handleUpdatePersona(w http.ResponseWriter, r *http.Request) {
	var req personaRequest
	if !decode(w, r, &req) {
		return
	}

	p := req.persona()
	p.ID = chi.URLParam(r, "personaID")
	updated, err := s.personas.UpdatePersona(r.Context(), p)
	if s.personaErr(w, r, err, "update persona") {
		return
	}
	respond(w, http.StatusOK, updated)
}

// ─── DELETE /api/personas/{personaID} ────────────────────────────────────────

func (s *Server) handleDeletePersona(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "personaID")
	if s.personaErr(w, r, s.personas.DeletePersona(r.Context(), id), "delete persona") {
		return
	}
	s.logger.Info("persona: deleted", "persona_id", id, logField(r))
	w.WriteHeader(http.StatusNoContent)
}

// personaErr writes 404 or 500 for a non-nil err and reports whether it did.
func (s *Server) personaErr(w http.ResponseWriter, r *http.Request, err error, op string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, store.ErrPersonaNotFound):
		respondErr(w, http.StatusNotFound, "persona not found")
	default:
		s.respondInternalErr(w, r, fmt.Errorf("%s: %w", op, err))
	}
	return true
}
