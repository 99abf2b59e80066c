package stats

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/internal/models"
)

func ptr[T any](v T) *T { return &v }

func tradeAt(entry string, pnl *float64, r *float64) models.Trade {
	t, err := time.Parse(time.RFC3339, entry)
	if err != nil {
		panic(err)
	}
	trade := models.Trade{
		Instrument:    "BTCUSDT",
		Direction:     models.DirectionLong,
		EntryDatetime: t,
		EntryPrice:    100,
		PositionSize:  1,
		RealizedPnl:   pnl,
		RMultiple:     r,
	}
	if pnl != nil {
		exit := t.Add(24 * time.Hour)
		trade.ExitDatetime = &exit
	}
	return trade
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, Summary{}, s)
}

func TestSummarizeExample(t *testing.T) {
	exit := time.Date(2024, 10, 4, 12, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		{EntryDatetime: exit.Add(-48 * time.Hour)},
		{EntryDatetime: exit.Add(-72 * time.Hour), ExitDatetime: &exit, RealizedPnl: ptr(100.0), RMultiple: ptr(2.0)},
		{EntryDatetime: exit.Add(-96 * time.Hour), ExitDatetime: &exit, RealizedPnl: ptr(-50.0), RMultiple: ptr(-1.0)},
	}

	s := Summarize(trades)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Open)
	assert.Equal(t, 2, s.Closed)
	assert.InDelta(t, 50, s.WinRate, 1e-9)
	assert.InDelta(t, 50, s.TotalPnl, 1e-9)
	assert.InDelta(t, 0.5, s.AvgR, 1e-9)
}

func TestSummarizeWinRateNeedsClosedTrades(t *testing.T) {
	exit := time.Date(2024, 10, 4, 12, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		{EntryDatetime: exit},
		// Exit recorded but PnL missing: neither open nor closed.
		{EntryDatetime: exit, ExitDatetime: &exit},
	}

	s := Summarize(trades)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Open)
	assert.Equal(t, 0, s.Closed)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.TotalPnl)
	assert.Zero(t, s.AvgR)
}

func TestSummarizeOpenTradesNeverContribute(t *testing.T) {
	trades := []models.Trade{
		tradeAt("2024-01-02T10:00:00Z", ptr(200.0), ptr(2.0)),
		tradeAt("2024-01-05T10:00:00Z", nil, nil),
	}
	// Open trade carrying a stale R value must still be excluded.
	trades[1].RMultiple = ptr(9.0)

	s := Summarize(trades)
	assert.InDelta(t, 200, s.TotalPnl, 1e-9)
	assert.InDelta(t, 2, s.AvgR, 1e-9)
	assert.InDelta(t, 100, s.WinRate, 1e-9)
}

func TestGroupByMonthChronological(t *testing.T) {
	trades := []models.Trade{
		tradeAt("2024-03-10T10:00:00Z", ptr(30.0), nil),
		tradeAt("2024-01-15T10:00:00Z", ptr(100.0), nil),
		tradeAt("2024-01-20T10:00:00Z", ptr(-40.0), nil),
		tradeAt("2024-02-01T10:00:00Z", nil, nil),
	}

	series := GroupByMonth(trades)
	require.Len(t, series, 3)
	assert.Equal(t, "Jan 2024", series[0].Label)
	assert.InDelta(t, 60, series[0].Pnl, 1e-9)
	assert.Equal(t, "Feb 2024", series[1].Label)
	assert.Zero(t, series[1].Pnl)
	assert.Equal(t, "Mar 2024", series[2].Label)
	assert.InDelta(t, 30, series[2].Pnl, 1e-9)
}

func TestGroupByMonthStableUnderReordering(t *testing.T) {
	trades := []models.Trade{
		tradeAt("2024-01-15T10:00:00Z", ptr(100.0), nil),
		tradeAt("2024-01-20T10:00:00Z", ptr(-40.0), nil),
		tradeAt("2024-02-01T10:00:00Z", ptr(25.0), nil),
		tradeAt("2024-03-10T10:00:00Z", ptr(30.0), nil),
		tradeAt("2024-03-11T10:00:00Z", nil, nil),
	}
	want := GroupByMonth(trades)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Trade(nil), trades...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, GroupByMonth(shuffled))
	}
}

func TestRankInstruments(t *testing.T) {
	mk := func(instrument string, pnl *float64) models.Trade {
		tr := tradeAt("2024-01-02T10:00:00Z", pnl, nil)
		tr.Instrument = instrument
		return tr
	}
	trades := []models.Trade{
		mk("ETHUSDT", ptr(650.0)),
		mk("BTCUSDT", ptr(1425.0)),
		mk("BTCUSDT", ptr(-100.0)),
		mk("AAPL", ptr(-1100.0)),
		mk("SPX500", nil),
	}

	ranked := RankInstruments(trades, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, "BTCUSDT", ranked[0].Instrument)
	assert.InDelta(t, 1325, ranked[0].TotalPnl, 1e-9)
	assert.Equal(t, 2, ranked[0].Trades)
	assert.InDelta(t, 50, ranked[0].WinRate, 1e-9)
	assert.Equal(t, "ETHUSDT", ranked[1].Instrument)
	assert.Equal(t, "SPX500", ranked[2].Instrument)
	assert.Zero(t, ranked[2].TotalPnl)
	assert.Zero(t, ranked[2].WinRate)
}

func TestRankInstrumentsEmpty(t *testing.T) {
	assert.Empty(t, RankInstruments(nil, 5))
}
