// Package stats computes journal statistics as single-pass reductions over
// in-memory trade slices. Empty input always yields zeroed results, never an
// error.
package stats

import (
	"sort"
	"time"

	"tradejournal/internal/models"
)

// Summary aggregates a set of trades. A trade counts as closed only when it
// has both an exit timestamp and a realized PnL; open means no exit
// timestamp, so a trade with an exit but no recorded PnL counts as neither.
type Summary struct {
	Total    int     `json:"total"`
	Open     int     `json:"open"`
	Closed   int     `json:"closed"`
	WinRate  float64 `json:"winRate"`
	TotalPnl float64 `json:"totalPnl"`
	AvgR     float64 `json:"avgR"`
}

// Summarize reduces trades to a Summary. Win rate is a percentage of closed
// trades; open trades never contribute to PnL or R.
func Summarize(trades []models.Trade) Summary {
	s := Summary{Total: len(trades)}

	var wins, closed int
	var sumR float64
	for _, t := range trades {
		if t.Open() {
			s.Open++
		}
		if !t.Closed() {
			continue
		}
		closed++
		s.TotalPnl += *t.RealizedPnl
		if *t.RealizedPnl > 0 {
			wins++
		}
		if t.RMultiple != nil {
			sumR += *t.RMultiple
		}
	}

	s.Closed = closed
	if closed > 0 {
		s.WinRate = float64(wins) / float64(closed) * 100
		s.AvgR = sumR / float64(closed)
	}
	return s
}

// MonthlyPnl is one bucket of the PnL-by-month series.
type MonthlyPnl struct {
	Label string  `json:"label"`
	Pnl   float64 `json:"pnl"`
}

// GroupByMonth buckets realized PnL by entry month, oldest bucket first.
// Open trades contribute a zero PnL to their month, so every traded month
// appears in the series.
func GroupByMonth(trades []models.Trade) []MonthlyPnl {
	type bucket struct {
		month time.Time
		pnl   float64
	}
	buckets := make(map[time.Time]*bucket)
	for _, t := range trades {
		month := time.Date(t.EntryDatetime.Year(), t.EntryDatetime.Month(), 1, 0, 0, 0, 0, time.UTC)
		b, ok := buckets[month]
		if !ok {
			b = &bucket{month: month}
			buckets[month] = b
		}
		if t.RealizedPnl != nil {
			b.pnl += *t.RealizedPnl
		}
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].month.Before(ordered[j].month) })

	series := make([]MonthlyPnl, len(ordered))
	for i, b := range ordered {
		series[i] = MonthlyPnl{Label: b.month.Format("Jan 2006"), Pnl: b.pnl}
	}
	return series
}

// InstrumentStat is one row of an instrument leaderboard.
type InstrumentStat struct {
	Instrument string  `json:"instrument"`
	Trades     int     `json:"trades"`
	TotalPnl   float64 `json:"totalPnl"`
	WinRate    float64 `json:"winRate"`
}

// RankInstruments ranks instruments by total realized PnL, best first, and
// keeps the top n (n <= 0 keeps everything). Ties break on instrument name
// so the ranking is deterministic.
func RankInstruments(trades []models.Trade, n int) []InstrumentStat {
	type acc struct {
		trades, closed, wins int
		pnl                  float64
	}
	byInstrument := make(map[string]*acc)
	for _, t := range trades {
		a, ok := byInstrument[t.Instrument]
		if !ok {
			a = &acc{}
			byInstrument[t.Instrument] = a
		}
		a.trades++
		if t.Closed() {
			a.closed++
			a.pnl += *t.RealizedPnl
			if *t.RealizedPnl > 0 {
				a.wins++
			}
		}
	}

	ranked := make([]InstrumentStat, 0, len(byInstrument))
	for instrument, a := range byInstrument {
		stat := InstrumentStat{Instrument: instrument, Trades: a.trades, TotalPnl: a.pnl}
		if a.closed > 0 {
			stat.WinRate = float64(a.wins) / float64(a.closed) * 100
		}
		ranked = append(ranked, stat)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalPnl != ranked[j].TotalPnl {
			return ranked[i].TotalPnl > ranked[j].TotalPnl
		}
		return ranked[i].Instrument < ranked[j].Instrument
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
