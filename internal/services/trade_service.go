package services

import (
	"gorm.io/gorm"

	"tradejournal/internal/models"
)

// TradeService defines the interface for trade operations. Every query is
// scoped to the owning user; rows belonging to anyone else behave as if they
// do not exist.
type TradeService interface {
	ListTrades(userID uint) ([]models.Trade, error)
	GetTrade(userID, id uint) (models.Trade, error)
	CreateTrade(userID uint, trade models.Trade) (models.Trade, error)
	UpdateTrade(userID, id uint, trade models.Trade) (models.Trade, error)
	DeleteTrade(userID, id uint) error
}

// tradeService implements the TradeService interface
type tradeService struct {
	db *gorm.DB
}

// NewTradeService creates a new trade service
func NewTradeService(db *gorm.DB) TradeService {
	return &tradeService{
		db: db,
	}
}

// ListTrades returns the user's trades, newest entry first, with the
// referenced strategy preloaded.
func (s *tradeService) ListTrades(userID uint) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.
		Preload("Strategy", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name")
		}).
		Where("user_id = ?", userID).
		Order("entry_datetime DESC").
		Find(&trades).Error
	return trades, err
}

// GetTrade returns one of the user's trades by ID.
func (s *tradeService) GetTrade(userID, id uint) (models.Trade, error) {
	var trade models.Trade
	err := s.db.
		Preload("Strategy", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&trade).Error
	if err != nil {
		return models.Trade{}, translate(err)
	}
	return trade, nil
}

// CreateTrade persists a trade for the user. A strategy reference must point
// at one of the user's own strategies.
func (s *tradeService) CreateTrade(userID uint, trade models.Trade) (models.Trade, error) {
	if err := s.checkStrategyRef(userID, trade.StrategyID); err != nil {
		return models.Trade{}, err
	}

	trade.ID = 0
	trade.UserID = userID
	trade.Strategy = nil
	if err := s.db.Create(&trade).Error; err != nil {
		return models.Trade{}, translate(err)
	}
	return s.GetTrade(userID, trade.ID)
}

// UpdateTrade replaces the mutable fields of one of the user's trades.
func (s *tradeService) UpdateTrade(userID, id uint, trade models.Trade) (models.Trade, error) {
	var existing models.Trade
	err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&existing).Error
	if err != nil {
		return models.Trade{}, translate(err)
	}

	if err := s.checkStrategyRef(userID, trade.StrategyID); err != nil {
		return models.Trade{}, err
	}

	existing.StrategyID = trade.StrategyID
	existing.Instrument = trade.Instrument
	existing.Direction = trade.Direction
	existing.EntryDatetime = trade.EntryDatetime
	existing.ExitDatetime = trade.ExitDatetime
	existing.EntryPrice = trade.EntryPrice
	existing.ExitPrice = trade.ExitPrice
	existing.PositionSize = trade.PositionSize
	existing.RealizedPnl = trade.RealizedPnl
	existing.RMultiple = trade.RMultiple
	existing.Platform = trade.Platform
	existing.Strategy = nil

	if err := s.db.Save(&existing).Error; err != nil {
		return models.Trade{}, translate(err)
	}
	return s.GetTrade(userID, id)
}

// DeleteTrade removes one of the user's trades.
func (s *tradeService) DeleteTrade(userID, id uint) error {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Trade{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// checkStrategyRef verifies a strategy reference belongs to the user. A
// foreign strategy reads as not found.
func (s *tradeService) checkStrategyRef(userID uint, strategyID *uint) error {
	if strategyID == nil {
		return nil
	}
	var count int64
	err := s.db.Model(&models.Strategy{}).
		Where("id = ? AND user_id = ?", *strategyID, userID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrStrategyNotFound
	}
	return nil
}
