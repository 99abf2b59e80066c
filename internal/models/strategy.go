package models

import (
	"time"
)

// Strategy is a user-defined trading playbook with an ordered checklist of
// technical conditions. Archived strategies keep their rows; IsActive flips
// to false and ArchivedReason records why.
type Strategy struct {
	ID               uint                 `gorm:"primaryKey" json:"id"`
	UserID           uint                 `gorm:"not null;uniqueIndex:uniq_user_strategy_name" json:"userId"`
	Name             string               `gorm:"not null;uniqueIndex:uniq_user_strategy_name" json:"name"`
	ShortCode        *string              `json:"shortCode"`
	SetupDescription *string              `json:"setupDescription"`
	Notes            *string              `json:"notes"`
	IsActive         bool                 `gorm:"default:true" json:"isActive"`
	ArchivedReason   *string              `json:"archivedReason"`
	CreatedAt        time.Time            `json:"createdAt"`
	Technicals       []TechnicalCondition `gorm:"constraint:OnDelete:CASCADE" json:"technicals"`
}

// TechnicalCondition is one checklist item on a strategy. DisplayOrder
// defines presentation order within the strategy.
type TechnicalCondition struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	StrategyID   uint    `gorm:"index;not null" json:"strategyId"`
	Indicator    string  `gorm:"not null" json:"indicator"`
	Timeframe    *string `json:"timeframe"`
	Condition    string  `gorm:"not null" json:"condition"`
	DisplayOrder int     `json:"displayOrder"`
	IsRequired   bool    `json:"isRequired"`
}
