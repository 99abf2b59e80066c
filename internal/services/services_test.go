package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradejournal/internal/models"
)

func ptr[T any](v T) *T { return &v }

// setupTestDB opens an in-memory database with the journal schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Strategy{},
		&models.TechnicalCondition{},
		&models.Trade{},
	)
	require.NoError(t, err)
	return db
}

// createTestUser registers a user through the auth service so the password
// hash is real.
func createTestUser(t *testing.T, db *gorm.DB, username, email string) models.User {
	t.Helper()
	auth := NewAuthService(db, []byte("test-secret"), time.Hour)
	user, err := auth.Register(username, email, "password123")
	require.NoError(t, err)
	return user
}

func testStrategy(name string) models.Strategy {
	return models.Strategy{
		Name:     name,
		IsActive: true,
		Technicals: []models.TechnicalCondition{
			{Indicator: "RSI", Timeframe: ptr("1D"), Condition: "RSI < 30", DisplayOrder: 1, IsRequired: true},
			{Indicator: "Volume", Timeframe: ptr("1D"), Condition: "Above average", DisplayOrder: 2, IsRequired: false},
		},
	}
}

func testTrade(userID uint, instrument string, entry time.Time) models.Trade {
	return models.Trade{
		UserID:        userID,
		Instrument:    instrument,
		Direction:     models.DirectionLong,
		EntryDatetime: entry,
		EntryPrice:    100,
		PositionSize:  1,
	}
}
