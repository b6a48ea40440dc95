package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"quiz-leaderboard/internal/app"
	"quiz-leaderboard/internal/domain"
)

// LeaderboardHandler serves leaderboard and user position lookups as JSON.
type LeaderboardHandler struct {
	service *app.LeaderboardService
	logger  zerolog.Logger
}

func NewLeaderboardHandler(service *app.LeaderboardService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register mounts the leaderboard routes on mux.
func (h *LeaderboardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /leaderboards/global", h.Global)
	mux.HandleFunc("GET /leaderboards/departments/{department}", h.Department)
	mux.HandleFunc("GET /users/{userId}/position", h.Position)
}

func (h *LeaderboardHandler) Global(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r)
	result := h.service.GenerateGlobalLeaderboard(r.Context(), q.ranking, q.period, q.limit)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *LeaderboardHandler) Department(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r)
	result, err := h.service.GenerateDepartmentLeaderboard(r.Context(), r.PathValue("department"), q.ranking, q.period, q.limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *LeaderboardHandler) Position(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r)
	position, err := h.service.GetUserPosition(r.Context(), r.PathValue("userId"), r.URL.Query().Get("department"), q.ranking, q.period)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, position)
}

type leaderboardQuery struct {
	ranking domain.RankingType
	period  domain.TimePeriod
	limit   int
}

func parseQuery(r *http.Request) leaderboardQuery {
	values := r.URL.Query()
	q := leaderboardQuery{
		ranking: domain.ParseRankingType(values.Get("ranking")),
		period:  domain.ParseTimePeriod(values.Get("period")),
	}
	// Non-numeric or non-positive limits fall back to the service default.
	if n, err := strconv.Atoi(values.Get("limit")); err == nil {
		q.limit = n
	}
	return q
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *LeaderboardHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrDepartmentRequired) {
		status = http.StatusBadRequest
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *LeaderboardHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write response")
	}
}
