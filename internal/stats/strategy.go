package stats

import (
	"sort"
	"time"

	"tradejournal/internal/models"
)

// TopInstrumentCount bounds the per-strategy instrument leaderboard.
const TopInstrumentCount = 3

// StrategyStats extends a Summary with recency and instrument breakdown for
// one strategy.
type StrategyStats struct {
	Summary
	LastTradeAt    *time.Time       `json:"lastTradeAt"`
	TopInstruments []InstrumentStat `json:"topInstruments"`
}

// SummarizeStrategy computes stats over trades already filtered to one
// strategy.
func SummarizeStrategy(trades []models.Trade) StrategyStats {
	s := StrategyStats{
		Summary:        Summarize(trades),
		TopInstruments: RankInstruments(trades, TopInstrumentCount),
	}
	for i := range trades {
		entry := trades[i].EntryDatetime
		if s.LastTradeAt == nil || entry.After(*s.LastTradeAt) {
			t := entry
			s.LastTradeAt = &t
		}
	}
	return s
}

// ByStrategy partitions trades by strategy reference and summarizes each
// group. Trades without a strategy are skipped.
func ByStrategy(trades []models.Trade) map[uint]StrategyStats {
	groups := make(map[uint][]models.Trade)
	for _, t := range trades {
		if t.StrategyID == nil {
			continue
		}
		groups[*t.StrategyID] = append(groups[*t.StrategyID], t)
	}

	out := make(map[uint]StrategyStats, len(groups))
	for id, group := range groups {
		out[id] = SummarizeStrategy(group)
	}
	return out
}

// LeaderboardEntry pairs a strategy with its aggregate performance.
type LeaderboardEntry struct {
	StrategyID uint    `json:"strategyId"`
	Name       string  `json:"name"`
	Trades     int     `json:"trades"`
	TotalPnl   float64 `json:"totalPnl"`
	WinRate    float64 `json:"winRate"`
}

// Leaderboard ranks active strategies by total PnL and returns the best n
// and worst n. Archived strategies are excluded; a strategy with no trades
// ranks with zeroed stats.
func Leaderboard(strategies []models.Strategy, statsByID map[uint]StrategyStats, n int) (best, worst []LeaderboardEntry) {
	entries := make([]LeaderboardEntry, 0, len(strategies))
	for _, s := range strategies {
		if !s.IsActive {
			continue
		}
		st := statsByID[s.ID]
		entries = append(entries, LeaderboardEntry{
			StrategyID: s.ID,
			Name:       s.Name,
			Trades:     st.Total,
			TotalPnl:   st.TotalPnl,
			WinRate:    st.WinRate,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalPnl != entries[j].TotalPnl {
			return entries[i].TotalPnl > entries[j].TotalPnl
		}
		return entries[i].Name < entries[j].Name
	})

	if n > len(entries) {
		n = len(entries)
	}
	best = append(best, entries[:n]...)
	for i := 0; i < n; i++ {
		worst = append(worst, entries[len(entries)-1-i])
	}
	return best, worst
}
