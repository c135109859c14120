package analytics

import (
	"trade-ledger/internal/models"
	"trade-ledger/internal/ordering"
)

// EquityPoint is one step of the equity curve.
type EquityPoint struct {
	Index   int     `json:"index"`
	Date    string  `json:"date"`
	Balance float64 `json:"balance"`
}

// EquityCurve returns the running balance starting at startingBalance. The
// curve is always chronological regardless of how trades are displayed.
func EquityCurve(trades []models.Trade, startingBalance float64) []EquityPoint {
	chrono := ordering.Chronological(trades)
	curve := make([]EquityPoint, 0, len(chrono)+1)
	curve = append(curve, EquityPoint{Index: 0, Balance: startingBalance})

	balance := startingBalance
	for i, t := range chrono {
		balance += t.Result
		curve = append(curve, EquityPoint{Index: i + 1, Date: t.Date, Balance: balance})
	}
	return curve
}

// Drawdown returns the largest peak-to-trough decline of a curve, in
// currency and as a percentage of the peak.
func Drawdown(curve []EquityPoint) (maxAbs, maxPct float64) {
	if len(curve) == 0 {
		return 0, 0
	}
	peak := curve[0].Balance
	for _, p := range curve {
		if p.Balance > peak {
			peak = p.Balance
			continue
		}
		dd := peak - p.Balance
		if dd > maxAbs {
			maxAbs = dd
		}
		if peak > 0 {
			if pct := dd / peak * 100; pct > maxPct {
				maxPct = pct
			}
		}
	}
	return maxAbs, maxPct
}
