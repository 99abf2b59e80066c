package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tradejournal/internal/cache"
	"tradejournal/internal/models"
	"tradejournal/internal/services"
	"tradejournal/internal/websocket"
)

// TradeHandler handles trade CRUD and CSV export.
type TradeHandler struct {
	tradeService services.TradeService
	statsCache   *cache.StatsCache
	wsHub        *websocket.Hub
	log          *zap.Logger
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(tradeService services.TradeService, statsCache *cache.StatsCache, wsHub *websocket.Hub, log *zap.Logger) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
		statsCache:   statsCache,
		wsHub:        wsHub,
		log:          log,
	}
}

// RegisterRoutes registers trade routes
func (h *TradeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/trades", h.GetTrades).Methods("GET")
	router.HandleFunc("/trades", h.CreateTrade).Methods("POST")
	router.HandleFunc("/trades/export", h.ExportTrades).Methods("GET")
	router.HandleFunc("/trades/{id:[0-9]+}", h.GetTrade).Methods("GET")
	router.HandleFunc("/trades/{id:[0-9]+}", h.UpdateTrade).Methods("PUT")
	router.HandleFunc("/trades/{id:[0-9]+}", h.DeleteTrade).Methods("DELETE")
}

// GetTrades returns the user's trades, newest entry first.
func (h *TradeHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	trades, err := h.tradeService.ListTrades(user.ID)
	if err != nil {
		h.log.Error("list trades failed", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, http.StatusOK, trades)
}

// GetTrade returns one trade by ID.
func (h *TradeHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := tradeID(w, r)
	if !ok {
		return
	}

	trade, err := h.tradeService.GetTrade(user.ID, id)
	if err != nil {
		h.writeTradeError(w, user.ID, err)
		return
	}
	writeData(w, http.StatusOK, trade)
}

// CreateTrade logs a new trade.
func (h *TradeHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var payload TradePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateTradePayload(payload); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	trade, err := h.tradeService.CreateTrade(user.ID, normalizeTradePayload(payload))
	if err != nil {
		h.writeTradeError(w, user.ID, err)
		return
	}

	h.statsCache.Invalidate(r.Context(), user.ID)
	h.wsHub.Broadcast(user.ID, models.Message{Type: websocket.EventTradeCreated, Content: trade})
	writeData(w, http.StatusCreated, trade)
}

// UpdateTrade replaces a trade with the full payload, create-style.
func (h *TradeHandler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := tradeID(w, r)
	if !ok {
		return
	}

	var payload TradePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := validateTradePayload(payload); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	trade, err := h.tradeService.UpdateTrade(user.ID, id, normalizeTradePayload(payload))
	if err != nil {
		h.writeTradeError(w, user.ID, err)
		return
	}

	h.statsCache.Invalidate(r.Context(), user.ID)
	h.wsHub.Broadcast(user.ID, models.Message{Type: websocket.EventTradeUpdated, Content: trade})
	writeData(w, http.StatusOK, trade)
}

// DeleteTrade removes a trade.
func (h *TradeHandler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := tradeID(w, r)
	if !ok {
		return
	}

	if err := h.tradeService.DeleteTrade(user.ID, id); err != nil {
		h.writeTradeError(w, user.ID, err)
		return
	}

	h.statsCache.Invalidate(r.Context(), user.ID)
	h.wsHub.Broadcast(user.ID, models.Message{Type: websocket.EventTradeDeleted, Content: map[string]uint{"id": id}})
	writeMessage(w, http.StatusOK, "Trade deleted")
}

var csvHeader = []string{
	"Instrument", "Platform", "Direction", "Entry Date", "Exit Date",
	"Entry Price", "Exit Price", "Position Size", "Realized PnL", "R Multiple", "Strategy",
}

// ExportTrades streams the user's trades as CSV.
func (h *TradeHandler) ExportTrades(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	trades, err := h.tradeService.ListTrades(user.ID)
	if err != nil {
		h.log.Error("trade export failed", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)

	cw := csv.NewWriter(w)
	cw.Write(csvHeader)
	for _, t := range trades {
		cw.Write(csvRow(t))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.log.Warn("trade export write failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}

func csvRow(t models.Trade) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	fp := func(v *float64) string {
		if v == nil {
			return ""
		}
		return f(*v)
	}
	sp := func(v *string) string {
		if v == nil {
			return ""
		}
		return *v
	}

	exit := ""
	if t.ExitDatetime != nil {
		exit = t.ExitDatetime.Format(time.RFC3339)
	}
	strategy := ""
	if t.Strategy != nil {
		strategy = t.Strategy.Name
	}

	return []string{
		t.Instrument,
		sp(t.Platform),
		t.Direction,
		t.EntryDatetime.Format(time.RFC3339),
		exit,
		f(t.EntryPrice),
		fp(t.ExitPrice),
		f(t.PositionSize),
		fp(t.RealizedPnl),
		fp(t.RMultiple),
		strategy,
	}
}

func tradeID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "Invalid trade id")
		return 0, false
	}
	return uint(id), true
}

func (h *TradeHandler) writeTradeError(w http.ResponseWriter, userID uint, err error) {
	switch {
	case errors.Is(err, services.ErrStrategyNotFound):
		writeError(w, http.StatusNotFound, "Strategy not found")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "Trade not found")
	default:
		h.log.Error("trade operation failed", zap.Uint("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
