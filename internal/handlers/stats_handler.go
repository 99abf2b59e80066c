package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tradejournal/internal/cache"
	"tradejournal/internal/services"
	"tradejournal/internal/stats"
)

// topInstrumentCount bounds the global instrument leaderboard.
const topInstrumentCount = 5

// leaderboardSize is how many best and worst strategies the overview shows.
const leaderboardSize = 3

// StatsOverview is the global statistics payload.
type StatsOverview struct {
	Summary         stats.Summary            `json:"summary"`
	MonthlyPnl      []stats.MonthlyPnl       `json:"monthlyPnl"`
	TopInstruments  []stats.InstrumentStat   `json:"topInstruments"`
	BestStrategies  []stats.LeaderboardEntry `json:"bestStrategies"`
	WorstStrategies []stats.LeaderboardEntry `json:"worstStrategies"`
}

// StatsHandler serves aggregated journal statistics.
type StatsHandler struct {
	tradeService    services.TradeService
	strategyService services.StrategyService
	statsCache      *cache.StatsCache
	log             *zap.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(tradeService services.TradeService, strategyService services.StrategyService, statsCache *cache.StatsCache, log *zap.Logger) *StatsHandler {
	return &StatsHandler{
		tradeService:    tradeService,
		strategyService: strategyService,
		statsCache:      statsCache,
		log:             log,
	}
}

// RegisterRoutes registers stats routes
func (h *StatsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/stats", h.GetStats).Methods("GET")
	router.HandleFunc("/strategies/{id:[0-9]+}/stats", h.GetStrategyStats).Methods("GET")
}

// GetStats returns the global summary, monthly PnL series, instrument
// ranking, and strategy leaderboards. Responses are served from the Redis
// cache when fresh.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var overview StatsOverview
	if h.statsCache.Get(r.Context(), user.ID, &overview) {
		writeData(w, http.StatusOK, overview)
		return
	}

	trades, err := h.tradeService.ListTrades(user.ID)
	if err != nil {
		h.log.Error("stats trade load failed", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	strategies, err := h.strategyService.ListStrategies(user.ID)
	if err != nil {
		h.log.Error("stats strategy load failed", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	best, worst := stats.Leaderboard(strategies, stats.ByStrategy(trades), leaderboardSize)
	overview = StatsOverview{
		Summary:         stats.Summarize(trades),
		MonthlyPnl:      stats.GroupByMonth(trades),
		TopInstruments:  stats.RankInstruments(trades, topInstrumentCount),
		BestStrategies:  best,
		WorstStrategies: worst,
	}

	h.statsCache.Set(r.Context(), user.ID, overview)
	writeData(w, http.StatusOK, overview)
}

// GetStrategyStats returns the per-strategy summary with recency and
// instrument breakdown. Ownership gates it like every other strategy read.
func (h *StatsHandler) GetStrategyStats(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := strategyID(w, r)
	if !ok {
		return
	}

	if _, err := h.strategyService.GetStrategy(user.ID, id); err != nil {
		if err == services.ErrNotFound {
			writeError(w, http.StatusNotFound, "Strategy not found")
			return
		}
		h.log.Error("strategy stats load failed", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	trades, err := h.tradeService.ListTrades(user.ID)
	if err != nil {
		h.log.Error("strategy stats trade load failed", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	scoped := trades[:0:0]
	for _, t := range trades {
		if t.StrategyID != nil && *t.StrategyID == id {
			scoped = append(scoped, t)
		}
	}
	writeData(w, http.StatusOK, stats.SummarizeStrategy(scoped))
}
