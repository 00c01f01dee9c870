package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nyashahama/gift-genius-backend/internal/gift"
	"github.com/nyashahama/gift-genius-backend/internal/store"
)

// ─── RESPONSE SHAPES ──────────────────────────────────────────────────────────

type recommendationJSON struct {
	Product        gift.Product  `json:"product"`
	Score          float64       `json:"score"`
	Category       gift.Category `json:"category"`
	Explanation    string        `json:"explanation"`
	ScoreBreakdown []string      `json:"score_breakdown"`
}

type picksJSON struct {
	BestMatch recommendationJSON  `json:"best_match"`
	SafeBet   recommendationJSON  `json:"safe_bet"`
	Unique    *recommendationJSON `json:"unique"`
}

type recommendResponse struct {
	Success bool      `json:"success"`
	Data    picksJSON `json:"data"`
}

type pipelineErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Found   int    `json:"found"`
	Need    int    `json:"need"`
}

func toRecommendationJSON(r gift.Recommendation) recommendationJSON {
	return recommendationJSON{
		Product:        r.Product,
		Score:          r.Score,
		Category:       r.Category,
		Explanation:    r.Explanation,
		ScoreBreakdown: r.BreakdownText(),
	}
}

func toPicksJSON(p *gift.Picks) picksJSON {
	out := picksJSON{
		BestMatch: toRecommendationJSON(p.BestMatch),
		SafeBet:   toRecommendationJSON(p.SafeBet),
	}
	if p.Unique != nil {
		u := toRecommendationJSON(*p.Unique)
		out.Unique = &u
	}
	return out
}

// ─── POST /api/recommendations ────────────────────────────────────────────────

type recommendRequest struct {
	RecipientName string   `json:"recipient_name" validate:"max=100"`
	Occasion      string   `json:"occasion" validate:"required,max=100"`
	BudgetMin     *float64 `json:"budget_min" validate:"omitempty,gte=0"`
	BudgetMax     *float64 `json:"budget_max" validate:"omitempty,gte=0"`
	Loves         []string `json:"recipient_loves" validate:"max=3,dive,max=100"` // gift.MaxLoves
	Hates         []string `json:"recipient_hates" validate:"max=20,dive,max=100"`
	Allergies     []string `json:"recipient_allergies" validate:"max=20,dive,max=100"`
	Dietary       []string `json:"recipient_dietary" validate:"max=20,dive,max=100"`
	Description   string   `json:"recipient_description" validate:"max=2000"`
}

func (req recommendRequest) profile() gift.Profile {
	return gift.Profile{
		RecipientName: req.RecipientName,
		Occasion:      req.Occasion,
		BudgetMin:     req.BudgetMin,
		BudgetMax:     req.BudgetMax,
		Loves:         req.Loves,
		Hates:         req.Hates,
		Allergies:     req.Allergies,
		Dietary:       req.Dietary,
		Description:   req.Description,
	}
}

// handleRecommend runs the pipeline for a wizard-submitted profile.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if !decode(w, r, &req) {
		return
	}
	if !validBudget(w, req.BudgetMin, req.BudgetMax) {
		return
	}

	s.logger.Info("recommend: request",
		"occasion", req.Occasion,
		"loves", len(req.Loves),
		"hates", len(req.Hates),
		"allergies", len(req.Allergies),
		logField(r),
	)
	s.recommend(w, r, req.profile())
}

// ─── POST /api/personas/{personaID}/recommendations ──────────────────────────

type personaRecommendRequest struct {
	Occasion  string   `json:"occasion" validate:"max=100"`
	BudgetMin *float64 `json:"budget_min" validate:"omitempty,gte=0"`
	BudgetMax *float64 `json:"budget_max" validate:"omitempty,gte=0"`
}

// handlePersonaRecommend runs the pipeline for a saved persona. An empty body
// means a birthday gift with no budget.
func (s *Server) handlePersonaRecommend(w http.ResponseWriter, r *http.Request) {
	var req personaRecommendRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if !validBudget(w, req.BudgetMin, req.BudgetMax) {
		return
	}

	persona, err := s.personas.GetPersona(r.Context(), chi.URLParam(r, "personaID"))
	if errors.Is(err, store.ErrPersonaNotFound) {
		respondErr(w, http.StatusNotFound, "persona not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get persona: %w", err))
		return
	}

	s.recommend(w, r, persona.ToProfile(req.Occasion, req.BudgetMin, req.BudgetMax))
}

// ─── SHARED ───────────────────────────────────────────────────────────────────

func (s *Server) recommend(w http.ResponseWriter, r *http.Request, profile gift.Profile) {
	picks, err := s.rec.Recommend(r.Context(), profile)

	var perr *gift.PipelineError
	switch {
	case errors.As(err, &perr):
		s.logger.Info("recommend: no recommendation possible", "reason", perr.Error(), logField(r))
		respond(w, http.StatusUnprocessableEntity, pipelineErrorResponse{
			Error: perr.Error(),
			Found: perr.Found,
			Need:  perr.Need,
		})
		return
	case err != nil:
		s.respondInternalErr(w, r, fmt.Errorf("recommend: %w", err))
		return
	}

	respond(w, http.StatusOK, recommendResponse{Success: true, Data: toPicksJSON(picks)})
}

func validBudget(w http.ResponseWriter, lo, hi *float64) bool {
	if lo != nil && hi != nil && *lo > *hi {
		respondErr(w, http.StatusBadRequest, "budget_min must not exceed budget_max")
		return false
	}
	return true
}
