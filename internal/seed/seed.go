// Package seed populates the database with deterministic demo fixtures for
// local development. Re-running it resets the demo user's journal to the
// same state.
package seed

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tradejournal/internal/models"
)

const (
	DemoEmail    = "demo@seed.local"
	DemoPassword = "password123"
)

func ptr[T any](v T) *T { return &v }

type seedTrade struct {
	strategyName string
	instrument   string
	direction    string
	entry        string
	exit         *string
	entryPrice   float64
	exitPrice    *float64
	positionSize float64
	realizedPnl  *float64
	rMultiple    *float64
}

var seedTrades = []seedTrade{
	{
		strategyName: "Support/Resistance Breakout",
		instrument:   "BTCUSDT",
		direction:    models.DirectionLong,
		entry:        "2024-10-02T09:15:00Z",
		exit:         ptr("2024-10-04T12:45:00Z"),
		entryPrice:   62000,
		exitPrice:    ptr(64850.0),
		positionSize: 0.5,
		realizedPnl:  ptr(1425.0),
		rMultiple:    ptr(2.3),
	},
	{
		strategyName: "Support/Resistance Breakout",
		instrument:   "ETHUSDT",
		direction:    models.DirectionShort,
		entry:        "2024-10-05T15:30:00Z",
		exit:         ptr("2024-10-06T10:00:00Z"),
		entryPrice:   3360,
		exitPrice:    ptr(3295.0),
		positionSize: 10,
		realizedPnl:  ptr(650.0),
		rMultiple:    ptr(1.1),
	},
	{
		instrument:   "AAPL",
		direction:    models.DirectionLong,
		entry:        "2024-10-07T14:00:00Z",
		exit:         ptr("2024-10-10T20:10:00Z"),
		entryPrice:   182.4,
		exitPrice:    ptr(176.9),
		positionSize: 200,
		realizedPnl:  ptr(-1100.0),
		rMultiple:    ptr(-0.8),
	},
	{
		strategyName: "Elliott Wave Reversal",
		instrument:   "SPX500",
		direction:    models.DirectionShort,
		entry:        "2024-10-12T08:30:00Z",
		entryPrice:   5468,
		positionSize: 2,
	},
}

// Run seeds the demo user, its strategies, and its trades.
func Run(db *gorm.DB, log *zap.Logger) error {
	user, err := getOrCreateDemoUser(db)
	if err != nil {
		return err
	}

	strategies, err := resetStrategies(db, user.ID)
	if err != nil {
		return err
	}
	log.Info("seeded strategies", zap.Int("count", len(strategies)))

	if err := resetTrades(db, user.ID, strategies); err != nil {
		return err
	}
	log.Info("seeded trades", zap.String("user", user.Email), zap.Int("count", len(seedTrades)))
	return nil
}

func getOrCreateDemoUser(db *gorm.DB) (models.User, error) {
	var user models.User
	err := db.Where("email = ?", DemoEmail).First(&user).Error
	if err == nil {
		return user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), 10)
	if err != nil {
		return models.User{}, err
	}
	user = models.User{
		Username:     ptr("demo"),
		Email:        DemoEmail,
		PasswordHash: string(hash),
	}
	return user, db.Create(&user).Error
}

// resetStrategies drops the demo user's strategies and recreates the two
// fixtures with their checklists. Trade references are nulled first so the
// delete never orphans a row.
func resetStrategies(db *gorm.DB, userID uint) (map[string]uint, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Trade{}).
			Where("user_id = ?", userID).
			Update("strategy_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("strategy_id IN (?)",
			tx.Model(&models.Strategy{}).Select("id").Where("user_id = ?", userID),
		).Delete(&models.TechnicalCondition{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.Strategy{}).Error
	})
	if err != nil {
		return nil, err
	}

	fixtures := []models.Strategy{
		{
			UserID:           userID,
			Name:             "Elliott Wave Reversal",
			ShortCode:        ptr("REV_1D"),
			SetupDescription: ptr("Wait for completed 5-wave impulse, identify ABC correction, enter on wave 5 completion with tight stop."),
			Notes:            ptr("Best on daily timeframe. Requires clear wave structure."),
			IsActive:         true,
			Technicals: []models.TechnicalCondition{
				{Indicator: "Elliott Wave", Timeframe: ptr("1D"), Condition: "Completed 5-wave impulse pattern", DisplayOrder: 1, IsRequired: true},
				{Indicator: "RSI", Timeframe: ptr("1D"), Condition: "RSI > 70 (overbought) or RSI < 30 (oversold)", DisplayOrder: 2, IsRequired: true},
				{Indicator: "Volume", Timeframe: ptr("1D"), Condition: "Decreasing volume on wave 5", DisplayOrder: 3, IsRequired: false},
			},
		},
		{
			UserID:           userID,
			Name:             "Support/Resistance Breakout",
			ShortCode:        ptr("BRK_H4"),
			SetupDescription: ptr("Identify key S/R levels, wait for consolidation, enter on breakout with volume confirmation."),
			Notes:            ptr("Works well in trending markets. Avoid during low volatility."),
			IsActive:         true,
			Technicals: []models.TechnicalCondition{
				{Indicator: "Support/Resistance", Timeframe: ptr("H4"), Condition: "Price testing key level 3+ times", DisplayOrder: 1, IsRequired: true},
				{Indicator: "Volume", Timeframe: ptr("H4"), Condition: "Volume spike on breakout (>150% of average)", DisplayOrder: 2, IsRequired: true},
				{Indicator: "Moving Average", Timeframe: ptr("H4"), Condition: "Price above 50 EMA for long, below for short", DisplayOrder: 3, IsRequired: false},
			},
		},
	}

	byName := make(map[string]uint, len(fixtures))
	for i := range fixtures {
		if err := db.Create(&fixtures[i]).Error; err != nil {
			return nil, err
		}
		byName[fixtures[i].Name] = fixtures[i].ID
	}
	return byName, nil
}

func resetTrades(db *gorm.DB, userID uint, strategies map[string]uint) error {
	if err := db.Where("user_id = ?", userID).Delete(&models.Trade{}).Error; err != nil {
		return err
	}

	for _, st := range seedTrades {
		trade := models.Trade{
			UserID:       userID,
			Instrument:   st.instrument,
			Direction:    st.direction,
			EntryPrice:   st.entryPrice,
			ExitPrice:    st.exitPrice,
			PositionSize: st.positionSize,
			RealizedPnl:  st.realizedPnl,
			RMultiple:    st.rMultiple,
		}
		if id, ok := strategies[st.strategyName]; ok {
			trade.StrategyID = &id
		}

		entry, err := time.Parse(time.RFC3339, st.entry)
		if err != nil {
			return err
		}
		trade.EntryDatetime = entry
		if st.exit != nil {
			exit, err := time.Parse(time.RFC3339, *st.exit)
			if err != nil {
				return err
			}
			trade.ExitDatetime = &exit
		}

		if err := db.Create(&trade).Error; err != nil {
			return err
		}
	}
	return nil
}
