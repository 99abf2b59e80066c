package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tradejournal/internal/cache"
	"tradejournal/internal/models"
	"tradejournal/internal/services"
	"tradejournal/internal/websocket"
)

// technicalPayload is one checklist item in a strategy request.
type technicalPayload struct {
	Indicator    string  `json:"indicator"`
	Timeframe    *string `json:"timeframe"`
	Condition    string  `json:"condition"`
	DisplayOrder int     `json:"displayOrder"`
	IsRequired   bool    `json:"isRequired"`
}

type createStrategyPayload struct {
	Name             string             `json:"name"`
	ShortCode        *string            `json:"shortCode"`
	SetupDescription *string            `json:"setupDescription"`
	Notes            *string            `json:"notes"`
	IsActive         *bool              `json:"isActive"`
	Technicals       []technicalPayload `json:"technicals"`
}

// updateStrategyPayload distinguishes absent fields (nil, keep current) from
// supplied ones. A present technicals array replaces the whole checklist.
type updateStrategyPayload struct {
	Name             *string             `json:"name"`
	ShortCode        *string             `json:"shortCode"`
	SetupDescription *string             `json:"setupDescription"`
	Notes            *string             `json:"notes"`
	IsActive         *bool               `json:"isActive"`
	ArchivedReason   *string             `json:"archivedReason"`
	Technicals       *[]technicalPayload `json:"technicals"`
}

// StrategyHandler handles strategy CRUD.
type StrategyHandler struct {
	strategyService services.StrategyService
	statsCache      *cache.StatsCache
	wsHub           *websocket.Hub
	log             *zap.Logger
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler(strategyService services.StrategyService, statsCache *cache.StatsCache, wsHub *websocket.Hub, log *zap.Logger) *StrategyHandler {
	return &StrategyHandler{
		strategyService: strategyService,
		statsCache:      statsCache,
		wsHub:           wsHub,
		log:             log,
	}
}

// RegisterRoutes registers strategy routes
func (h *StrategyHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/strategies", h.GetStrategies).Methods("GET")
	router.HandleFunc("/strategies", h.CreateStrategy).Methods("POST")
	router.HandleFunc("/strategies/{id:[0-9]+}", h.GetStrategy).Methods("GET")
	router.HandleFunc("/strategies/{id:[0-9]+}", h.UpdateStrategy).Methods("PUT")
	router.HandleFunc("/strategies/{id:[0-9]+}", h.DeleteStrategy).Methods("DELETE")
}

// GetStrategies returns the user's strategies with their checklists.
func (h *StrategyHandler) GetStrategies(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	strategies, err := h.strategyService.ListStrategies(user.ID)
	if err != nil {
		h.log.Error("list strategies failed", zap.Uint("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, http.StatusOK, strategies)
}

// GetStrategy returns one strategy by ID.
func (h *StrategyHandler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := strategyID(w, r)
	if !ok {
		return
	}

	strategy, err := h.strategyService.GetStrategy(user.ID, id)
	if err != nil {
		h.writeStrategyError(w, user.ID, err)
		return
	}
	writeData(w, http.StatusOK, strategy)
}

// CreateStrategy creates a strategy together with its checklist.
func (h *StrategyHandler) CreateStrategy(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var payload createStrategyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if msg := validateTechnicals(payload.Technicals); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	strategy := models.Strategy{
		Name:             strings.TrimSpace(payload.Name),
		ShortCode:        payload.ShortCode,
		SetupDescription: payload.SetupDescription,
		Notes:            payload.Notes,
		IsActive:         true,
		Technicals:       toTechnicals(payload.Technicals),
	}
	if payload.IsActive != nil {
		strategy.IsActive = *payload.IsActive
	}

	created, err := h.strategyService.CreateStrategy(user.ID, strategy)
	if err != nil {
		h.writeStrategyError(w, user.ID, err)
		return
	}

	h.statsCache.Invalidate(r.Context(), user.ID)
	writeData(w, http.StatusCreated, created)
}

// UpdateStrategy applies a partial update; a supplied technicals array
// replaces the checklist atomically.
func (h *StrategyHandler) UpdateStrategy(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := strategyID(w, r)
	if !ok {
		return
	}

	var payload updateStrategyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := services.StrategyUpdate{
		Name:             payload.Name,
		ShortCode:        payload.ShortCode,
		SetupDescription: payload.SetupDescription,
		Notes:            payload.Notes,
		IsActive:         payload.IsActive,
		ArchivedReason:   payload.ArchivedReason,
	}
	if payload.Technicals != nil {
		if msg := validateTechnicals(*payload.Technicals); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		update.Technicals = toTechnicals(*payload.Technicals)
	}

	strategy, err := h.strategyService.UpdateStrategy(user.ID, id, update)
	if err != nil {
		h.writeStrategyError(w, user.ID, err)
		return
	}

	h.statsCache.Invalidate(r.Context(), user.ID)
	if payload.IsActive != nil && !*payload.IsActive {
		h.wsHub.Broadcast(user.ID, models.Message{Type: websocket.EventStrategyArchived, Content: strategy})
	}
	writeData(w, http.StatusOK, strategy)
}

// DeleteStrategy removes a strategy; its trades survive with the reference
// nulled.
func (h *StrategyHandler) DeleteStrategy(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := strategyID(w, r)
	if !ok {
		return
	}

	if err := h.strategyService.DeleteStrategy(user.ID, id); err != nil {
		h.writeStrategyError(w, user.ID, err)
		return
	}

	h.statsCache.Invalidate(r.Context(), user.ID)
	writeMessage(w, http.StatusOK, "Strategy deleted successfully")
}

func validateTechnicals(technicals []technicalPayload) string {
	for _, t := range technicals {
		if strings.TrimSpace(t.Indicator) == "" {
			return "Technical condition indicator is required"
		}
		if strings.TrimSpace(t.Condition) == "" {
			return "Technical condition text is required"
		}
	}
	return ""
}

func toTechnicals(payloads []technicalPayload) []models.TechnicalCondition {
	technicals := make([]models.TechnicalCondition, len(payloads))
	for i, t := range payloads {
		technicals[i] = models.TechnicalCondition{
			Indicator:    strings.TrimSpace(t.Indicator),
			Timeframe:    t.Timeframe,
			Condition:    strings.TrimSpace(t.Condition),
			DisplayOrder: t.DisplayOrder,
			IsRequired:   t.IsRequired,
		}
	}
	return technicals
}

func strategyID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "Invalid strategy id")
		return 0, false
	}
	return uint(id), true
}

func (h *StrategyHandler) writeStrategyError(w http.ResponseWriter, userID uint, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "Strategy not found")
	case errors.Is(err, services.ErrDuplicate):
		writeError(w, http.StatusConflict, "Strategy with this name already exists")
	default:
		h.log.Error("strategy operation failed", zap.Uint("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
