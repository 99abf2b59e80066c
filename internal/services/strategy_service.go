package services

import (
	"gorm.io/gorm"

	"tradejournal/internal/models"
)

// StrategyUpdate carries a partial strategy update. Nil pointers leave the
// current value untouched; for the nullable text fields an empty string
// clears the column. A non-nil Technicals slice replaces the whole condition
// list, including an empty slice, which clears it.
type StrategyUpdate struct {
	Name             *string
	ShortCode        *string
	SetupDescription *string
	Notes            *string
	IsActive         *bool
	ArchivedReason   *string
	Technicals       []models.TechnicalCondition
}

// StrategyService defines the interface for strategy operations, all scoped
// to the owning user.
type StrategyService interface {
	ListStrategies(userID uint) ([]models.Strategy, error)
	GetStrategy(userID, id uint) (models.Strategy, error)
	CreateStrategy(userID uint, strategy models.Strategy) (models.Strategy, error)
	UpdateStrategy(userID, id uint, update StrategyUpdate) (models.Strategy, error)
	DeleteStrategy(userID, id uint) error
}

// strategyService implements the StrategyService interface
type strategyService struct {
	db *gorm.DB
}

// NewStrategyService creates a new strategy service
func NewStrategyService(db *gorm.DB) StrategyService {
	return &strategyService{
		db: db,
	}
}

// ListStrategies returns the user's strategies, newest first, with their
// condition checklists in display order.
func (s *strategyService) ListStrategies(userID uint) ([]models.Strategy, error) {
	var strategies []models.Strategy
	err := s.db.
		Preload("Technicals", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&strategies).Error
	return strategies, err
}

// GetStrategy returns one of the user's strategies by ID.
func (s *strategyService) GetStrategy(userID, id uint) (models.Strategy, error) {
	var strategy models.Strategy
	err := s.db.
		Preload("Technicals", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&strategy).Error
	if err != nil {
		return models.Strategy{}, translate(err)
	}
	return strategy, nil
}

// CreateStrategy persists a strategy together with its condition checklist.
// A duplicate name for the same user surfaces as ErrDuplicate.
func (s *strategyService) CreateStrategy(userID uint, strategy models.Strategy) (models.Strategy, error) {
	strategy.ID = 0
	strategy.UserID = userID
	for i := range strategy.Technicals {
		strategy.Technicals[i].ID = 0
	}

	if err := s.db.Create(&strategy).Error; err != nil {
		return models.Strategy{}, translate(err)
	}
	return s.GetStrategy(userID, strategy.ID)
}

// UpdateStrategy applies a partial update. When a condition list is supplied
// the old list is dropped and the new one created inside the same
// transaction, so readers never observe a half-replaced checklist.
func (s *strategyService) UpdateStrategy(userID, id uint, update StrategyUpdate) (models.Strategy, error) {
	var existing models.Strategy
	err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&existing).Error
	if err != nil {
		return models.Strategy{}, translate(err)
	}

	applyText := func(dst **string, src *string) {
		if src == nil {
			return
		}
		if *src == "" {
			*dst = nil
			return
		}
		value := *src
		*dst = &value
	}

	if update.Name != nil && *update.Name != "" {
		existing.Name = *update.Name
	}
	applyText(&existing.ShortCode, update.ShortCode)
	applyText(&existing.SetupDescription, update.SetupDescription)
	applyText(&existing.Notes, update.Notes)
	applyText(&existing.ArchivedReason, update.ArchivedReason)
	if update.IsActive != nil {
		existing.IsActive = *update.IsActive
	}
	existing.Technicals = nil

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Technicals").Save(&existing).Error; err != nil {
			return err
		}
		if update.Technicals == nil {
			return nil
		}
		if err := tx.Where("strategy_id = ?", id).Delete(&models.TechnicalCondition{}).Error; err != nil {
			return err
		}
		for i := range update.Technicals {
			update.Technicals[i].ID = 0
			update.Technicals[i].StrategyID = id
		}
		if len(update.Technicals) == 0 {
			return nil
		}
		return tx.Create(&update.Technicals).Error
	})
	if err != nil {
		return models.Strategy{}, translate(err)
	}

	return s.GetStrategy(userID, id)
}

// DeleteStrategy removes one of the user's strategies. Trades that reference
// it keep their rows with the reference nulled; the condition checklist goes
// with the strategy. All three statements run in one transaction.
func (s *strategyService) DeleteStrategy(userID, id uint) error {
	var existing models.Strategy
	err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&existing).Error
	if err != nil {
		return translate(err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Trade{}).
			Where("strategy_id = ? AND user_id = ?", id, userID).
			Update("strategy_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("strategy_id = ?", id).Delete(&models.TechnicalCondition{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Strategy{}, id).Error
	})
}
