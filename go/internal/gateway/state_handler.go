package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/host"
	"github.com/mcdev12/courtside/go/internal/match"
	"github.com/mcdev12/courtside/go/internal/models"
	"github.com/mcdev12/courtside/go/internal/viewer"
)

// StateProvider defines the read side the REST routes need
type StateProvider interface {
	Get(ctx context.Context, code string) (*models.MatchDocument, error)
	ListLive(ctx context.Context) ([]models.MatchDocument, error)
}

// MatchSummary is one entry of the live-games feed
type MatchSummary struct {
	Code       string `json:"code"`
	GameName   string `json:"game_name"`
	PeriodName string `json:"period_name"`
	GameClock  string `json:"game_clock"`
	TeamA      string `json:"team_a"`
	TeamB      string `json:"team_b"`
	ScoreA     int    `json:"score_a"`
	ScoreB     int    `json:"score_b"`
	LastUpdate int64  `json:"last_update"`
}

// StateHandler handles HTTP requests for match views
type StateHandler struct {
	stateProvider StateProvider
	rules         match.Ruleset
}

func NewStateHandler(provider StateProvider, rules match.Ruleset) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
		rules:         rules,
	}
}

// HandleGetView handles GET /api/matches/{code}/view
func (h *StateHandler) HandleGetView(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	doc, err := h.stateProvider.Get(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, host.ErrInvalidCode):
			http.Error(w, "invalid match code", http.StatusBadRequest)
		case errors.Is(err, host.ErrMatchNotFound):
			http.Error(w, "match not found", http.StatusNotFound)
		default:
			log.Error().Err(err).Str("match_code", code).Msg("failed to get match view")
			http.Error(w, "failed to get match view", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, viewer.Project(doc, h.rules))
}

// HandleGetLive handles GET /api/matches/live
func (h *StateHandler) HandleGetLive(w http.ResponseWriter, r *http.Request) {
	docs, err := h.stateProvider.ListLive(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list live matches")
		http.Error(w, "failed to list live matches", http.StatusInternalServerError)
		return
	}

	summaries := make([]MatchSummary, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		summaries = append(summaries, MatchSummary{
			Code:       d.Code,
			GameName:   d.Settings.GameName,
			PeriodName: match.PeriodName(d.Clock.Period, d.Settings.PeriodType),
			GameClock:  viewer.FormatGameClock(d.Clock.GameTime),
			TeamA:      d.TeamA.Name,
			TeamB:      d.TeamB.Name,
			ScoreA:     d.TeamA.Score,
			ScoreB:     d.TeamB.Score,
			LastUpdate: d.LastUpdate,
		})
	}
	writeJSON(w, summaries)
}

// RegisterStateRoutes registers the REST routes. /live is registered first so
// it is not captured by {code}.
func (h *StateHandler) RegisterStateRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/matches").Subrouter()
	api.HandleFunc("/live", h.HandleGetLive).Methods(http.MethodGet)
	api.HandleFunc("/{code}/view", h.HandleGetView).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
