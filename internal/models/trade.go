package models

import (
	"time"
)

// Trade directions.
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Trade is one logged position. A trade is open iff ExitDatetime is nil;
// there is no separate status column. The strategy reference is optional and
// survives as NULL when the strategy is deleted.
type Trade struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"index;not null" json:"userId"`
	StrategyID    *uint      `gorm:"index" json:"strategyId"`
	Strategy      *Strategy  `gorm:"constraint:OnDelete:SET NULL" json:"strategy,omitempty"`
	Instrument    string     `gorm:"not null" json:"instrument"`
	Direction     string     `gorm:"not null" json:"direction"`
	EntryDatetime time.Time  `gorm:"index;not null" json:"entryDatetime"`
	ExitDatetime  *time.Time `json:"exitDatetime"`
	EntryPrice    float64    `gorm:"not null" json:"entryPrice"`
	ExitPrice     *float64   `json:"exitPrice"`
	PositionSize  float64    `gorm:"not null" json:"positionSize"`
	RealizedPnl   *float64   `json:"realizedPnl"`
	RMultiple     *float64   `json:"rMultiple"`
	Platform      *string    `json:"platform"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Closed reports whether the trade counts toward closed-trade statistics:
// it has both an exit timestamp and a realized PnL.
func (t Trade) Closed() bool {
	return t.ExitDatetime != nil && t.RealizedPnl != nil
}

// Open reports whether the position is still open.
func (t Trade) Open() bool {
	return t.ExitDatetime == nil
}

// Message represents a WebSocket event pushed to journal clients.
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}
