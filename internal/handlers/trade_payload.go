package handlers

import (
	"strings"
	"time"

	"tradejournal/internal/models"
)

// TradePayload is the request body for creating or replacing a trade.
type TradePayload struct {
	StrategyID    *uint    `json:"strategyId"`
	Instrument    string   `json:"instrument"`
	Direction     string   `json:"direction"`
	EntryDatetime string   `json:"entryDatetime"`
	ExitDatetime  *string  `json:"exitDatetime"`
	EntryPrice    *float64 `json:"entryPrice"`
	ExitPrice     *float64 `json:"exitPrice"`
	PositionSize  *float64 `json:"positionSize"`
	RealizedPnl   *float64 `json:"realizedPnl"`
	RMultiple     *float64 `json:"rMultiple"`
	Platform      *string  `json:"platform"`
}

const maxPlatformLen = 60

// datetime layouts accepted from clients; HTML datetime-local inputs omit
// seconds and zone.
var datetimeLayouts = []string{time.RFC3339, "2006-01-02T15:04"}

func parseDatetime(value string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// validateTradePayload returns a descriptive message for the first violated
// constraint, or "" when the payload is acceptable.
func validateTradePayload(p TradePayload) string {
	if strings.TrimSpace(p.Instrument) == "" {
		return "Instrument is required"
	}
	direction := strings.ToLower(p.Direction)
	if direction != models.DirectionLong && direction != models.DirectionShort {
		return "Direction must be long or short"
	}
	if p.EntryDatetime == "" {
		return "Entry datetime is required"
	}
	if _, ok := parseDatetime(p.EntryDatetime); !ok {
		return "Entry datetime is invalid"
	}
	if p.ExitDatetime != nil {
		if _, ok := parseDatetime(*p.ExitDatetime); !ok {
			return "Exit datetime is invalid"
		}
	}
	if p.EntryPrice == nil {
		return "Entry price is required"
	}
	if p.PositionSize == nil {
		return "Position size is required"
	}
	if p.ExitDatetime == nil && (p.ExitPrice != nil || p.RealizedPnl != nil || p.RMultiple != nil) {
		return "Exit price, PnL, and R multiple require an exit datetime"
	}
	if p.Platform != nil {
		platform := strings.TrimSpace(*p.Platform)
		if platform == "" {
			return "Platform is invalid"
		}
		if len(platform) > maxPlatformLen {
			return "Platform must be shorter than 60 characters"
		}
	}
	return ""
}

// normalizeTradePayload converts a validated payload into a trade row.
func normalizeTradePayload(p TradePayload) models.Trade {
	trade := models.Trade{
		StrategyID:   p.StrategyID,
		Instrument:   strings.TrimSpace(p.Instrument),
		Direction:    strings.ToLower(p.Direction),
		EntryPrice:   *p.EntryPrice,
		ExitPrice:    p.ExitPrice,
		PositionSize: *p.PositionSize,
		RealizedPnl:  p.RealizedPnl,
		RMultiple:    p.RMultiple,
	}
	trade.EntryDatetime, _ = parseDatetime(p.EntryDatetime)
	if p.ExitDatetime != nil {
		exit, _ := parseDatetime(*p.ExitDatetime)
		trade.ExitDatetime = &exit
	}
	if p.Platform != nil {
		platform := strings.TrimSpace(*p.Platform)
		trade.Platform = &platform
	}
	return trade
}
