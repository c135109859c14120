// Package analytics derives performance statistics from a trade set.
// Every function is pure: it reads the trades it is given and nothing else.
package analytics

import (
	"encoding/json"
	"math"
	"strings"

	"trade-ledger/internal/models"
	"trade-ledger/internal/ordering"
)

// InfiniteProfitFactor is reported when there are wins but no losses.
var InfiniteProfitFactor = math.Inf(1)

// DefaultNeutralExits are the exit reasons treated as breakeven.
var DefaultNeutralExits = []string{"BE", "breakeven"}

// Engine computes analytics with a fixed set of neutral exit reasons.
type Engine struct {
	neutral map[string]bool
}

// New creates an Engine. Matching of neutral exits is case-insensitive.
func New(neutralExits []string) Engine {
	if len(neutralExits) == 0 {
		neutralExits = DefaultNeutralExits
	}
	e := Engine{neutral: make(map[string]bool, len(neutralExits))}
	for _, r := range neutralExits {
		e.neutral[strings.ToLower(strings.TrimSpace(r))] = true
	}
	return e
}

var defaultEngine = New(DefaultNeutralExits)

// IsNeutral reports whether the trade closed at breakeven.
func (e Engine) IsNeutral(t models.Trade) bool {
	return e.neutral[strings.ToLower(strings.TrimSpace(t.Exit))]
}

// IsWin reports whether a non-neutral trade made money.
func (e Engine) IsWin(t models.Trade) bool {
	return !e.IsNeutral(t) && t.Result > 0
}

// Stats is the aggregate summary of a trade set.
type Stats struct {
	Count        int     `json:"count"`
	TotalPnL     float64 `json:"total_pnl"`
	WinRate      float64 `json:"win_rate"`
	AvgPnL       float64 `json:"avg_pnl"`
	ProfitFactor float64 `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Neutral      int     `json:"neutral"`
	GrossWin     float64 `json:"gross_win"`
	GrossLoss    float64 `json:"gross_loss"`
	LargestWin   float64 `json:"largest_win"`
	LargestLoss  float64 `json:"largest_loss"`
}

// HasInfiniteProfitFactor reports the no-loss sentinel.
func (s Stats) HasInfiniteProfitFactor() bool {
	return math.IsInf(s.ProfitFactor, 1)
}

// MarshalJSON encodes an infinite profit factor as the string "inf".
func (s Stats) MarshalJSON() ([]byte, error) {
	type plain Stats
	if !s.HasInfiniteProfitFactor() {
		return json.Marshal(plain(s))
	}
	p := plain(s)
	p.ProfitFactor = 0
	return json.Marshal(struct {
		plain
		ProfitFactor string `json:"profit_factor"`
	}{plain: p, ProfitFactor: "inf"})
}

// Summary computes aggregate statistics with the default neutral exits.
func Summary(trades []models.Trade) Stats {
	return defaultEngine.Summary(trades)
}

// Summary computes aggregate statistics. Neutral trades count toward totals
// and averages but are excluded from the win rate.
func (e Engine) Summary(trades []models.Trade) Stats {
	var s Stats
	s.Count = len(trades)
	if s.Count == 0 {
		return s
	}

	for _, t := range trades {
		s.TotalPnL += t.Result
		if t.Result > 0 {
			s.GrossWin += t.Result
			s.LargestWin = math.Max(s.LargestWin, t.Result)
		} else if t.Result < 0 {
			s.GrossLoss += -t.Result
			s.LargestLoss = math.Min(s.LargestLoss, t.Result)
		}

		switch {
		case e.IsNeutral(t):
			s.Neutral++
		case t.Result > 0:
			s.Wins++
		default:
			s.Losses++
		}
	}

	if decided := s.Wins + s.Losses; decided > 0 {
		s.WinRate = float64(s.Wins) / float64(decided) * 100
	}
	s.AvgPnL = s.TotalPnL / float64(s.Count)
	s.Expectancy = s.AvgPnL
	s.ProfitFactor = profitFactor(s.GrossWin, s.GrossLoss)
	return s
}

func profitFactor(grossWin, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossWin > 0 {
			return InfiniteProfitFactor
		}
		return 0
	}
	return grossWin / grossLoss
}

// Streaks returns the longest runs of consecutive wins and losses in
// chronological order. Neutral trades do not break a run.
func Streaks(trades []models.Trade) (longestWin, longestLoss int) {
	return defaultEngine.Streaks(trades)
}

// Streaks returns the longest runs of consecutive wins and losses.
func (e Engine) Streaks(trades []models.Trade) (longestWin, longestLoss int) {
	var win, loss int
	for _, t := range ordering.Chronological(trades) {
		if e.IsNeutral(t) {
			continue
		}
		if t.Result > 0 {
			win++
			loss = 0
		} else {
			loss++
			win = 0
		}
		longestWin = max(longestWin, win)
		longestLoss = max(longestLoss, loss)
	}
	return longestWin, longestLoss
}

// PercentOf expresses value as a percentage of base, 0 when base is 0.
func PercentOf(value, base float64) float64 {
	if base == 0 {
		return 0
	}
	return value / base * 100
}
