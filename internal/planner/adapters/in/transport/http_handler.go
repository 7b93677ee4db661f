package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Franelll/MaaS-sub000/internal/planner/domain"
	"github.com/Franelll/MaaS-sub000/internal/planner/scoring"
	"github.com/Franelll/MaaS-sub000/internal/shared/logger"
)

// RankRequest — запрос planning-коллаборатора: кандидаты + режим
type RankRequest struct {
	Mode        string             `json:"mode"`
	MaxResults  int                `json:"maxResults,omitempty"`
	Itineraries []domain.Itinerary `json:"itineraries"`
}

// RankedItinerary — маршрут с оценкой и ключом разнообразия
type RankedItinerary struct {
	domain.ScoredItinerary
	DominantMode domain.Mode `json:"dominantMode"`
}

// RankResponse — отранжированный, отфильтрованный, диверсифицированный список
type RankResponse struct {
	Mode        string            `json:"mode"`
	Itineraries []RankedItinerary `json:"itineraries"`
}

// Handler — HTTP граница RouteScorer
type Handler struct {
	scorer *scoring.Scorer
	log    *logger.Logger
}

func NewHandler(scorer *scoring.Scorer, log *logger.Logger) *Handler {
	return &Handler{scorer: scorer, log: log}
}

// RankRoutes обрабатывает POST /v1/routes/rank
func (h *Handler) RankRoutes(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	mode, err := domain.ParseOptimizeMode(req.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown optimization mode: "+req.Mode)
		return
	}

	ranked, err := h.scorer.RankItineraries(req.Itineraries, mode, req.MaxResults)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownMode) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error(logger.Entry{
			Action:  "rank_routes_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		respondError(w, http.StatusInternalServerError, "failed to rank itineraries")
		return
	}

	resp := RankResponse{
		Mode:        string(mode),
		Itineraries: make([]RankedItinerary, 0, len(ranked)),
	}
	for _, it := range ranked {
		resp.Itineraries = append(resp.Itineraries, RankedItinerary{
			ScoredItinerary: it,
			DominantMode:    it.DominantMode(),
		})
	}

	h.log.Info(logger.Entry{
		Action:  "routes_ranked",
		Message: "itineraries ranked",
		Additional: map[string]any{
			"mode":       string(mode),
			"candidates": len(req.Itineraries),
			"returned":   len(resp.Itineraries),
		},
	})

	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
