package models

import (
	"sort"
	"strings"
	"time"
)

// Account is a named portfolio holding its trades and withdrawals.
type Account struct {
	ID                   string       `json:"id" yaml:"id"`
	Name                 string       `json:"name" yaml:"name"`
	Size                 float64      `json:"size" yaml:"size"`
	StartingSize         float64      `json:"starting_size,omitempty" yaml:"starting_size,omitempty"`
	Trades               []Trade      `json:"trades" yaml:"trades"`
	Withdrawals          []Withdrawal `json:"withdrawals" yaml:"withdrawals"`
	SavedSymbols         []string     `json:"saved_symbols" yaml:"saved_symbols"`
	SavedTimeframes      []string     `json:"saved_timeframes" yaml:"saved_timeframes"`
	SavedEntryStrategies []string     `json:"saved_entry_strategies" yaml:"saved_entry_strategies"`
	SavedExitStrategies  []string     `json:"saved_exit_strategies" yaml:"saved_exit_strategies"`
	CreatedAt            time.Time    `json:"created_at" yaml:"created_at"`
}

// Default suggestion seeds for a new account.
var (
	DefaultSymbols         = []string{"EUR/USD", "GBP/USD", "USD/JPY", "XAU/USD"}
	DefaultTimeframes      = []string{"1m", "5m", "15m", "1H", "4H", "1D"}
	DefaultEntryStrategies = []string{"Breakout", "Pullback", "Reversal", "Trend"}
	DefaultExitStrategies  = []string{"TP", "SL", "BE", "Manual"}
)

// SeedSuggestions fills the suggestion sets with the defaults.
func (a *Account) SeedSuggestions() {
	a.SavedSymbols = AddSuggestion(nil, DefaultSymbols...)
	a.SavedTimeframes = AddSuggestion(nil, DefaultTimeframes...)
	a.SavedEntryStrategies = AddSuggestion(nil, DefaultEntryStrategies...)
	a.SavedExitStrategies = AddSuggestion(nil, DefaultExitStrategies...)
}

// TotalPnL sums the results of all trades.
func (a *Account) TotalPnL() float64 {
	var sum float64
	for _, t := range a.Trades {
		sum += t.Result
	}
	return sum
}

// TotalWithdrawn sums all withdrawal amounts.
func (a *Account) TotalWithdrawn() float64 {
	var sum float64
	for _, w := range a.Withdrawals {
		sum += w.Amount
	}
	return sum
}

// TradeIndex returns the position of the trade with id, or -1.
func (a *Account) TradeIndex(id string) int {
	for i := range a.Trades {
		if a.Trades[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	c := a
	c.Trades = append([]Trade(nil), a.Trades...)
	c.Withdrawals = append([]Withdrawal(nil), a.Withdrawals...)
	c.SavedSymbols = append([]string(nil), a.SavedSymbols...)
	c.SavedTimeframes = append([]string(nil), a.SavedTimeframes...)
	c.SavedEntryStrategies = append([]string(nil), a.SavedEntryStrategies...)
	c.SavedExitStrategies = append([]string(nil), a.SavedExitStrategies...)
	return c
}

// AddSuggestion unions values into a sorted set, ignoring empty strings.
func AddSuggestion(set []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		i := sort.SearchStrings(set, v)
		if i < len(set) && set[i] == v {
			continue
		}
		set = append(set, "")
		copy(set[i+1:], set[i:])
		set[i] = v
	}
	return set
}

// syntheticWithdrawalPair marks legacy trades that actually were withdrawals.
const syntheticWithdrawalPair = "WITHDRAWAL"

// IsSyntheticWithdrawal reports whether t is a legacy cash withdrawal stored as a trade.
func IsSyntheticWithdrawal(t Trade) bool {
	if t.Result >= 0 {
		return false
	}
	return strings.EqualFold(t.Pair, syntheticWithdrawalPair) || strings.EqualFold(t.Exit, "withdrawal")
}

// MigrateSyntheticWithdrawals converts legacy withdrawal trades into
// Withdrawal records. The balance is unchanged because both representations
// debit the same amount. It returns the number of migrated records.
func (a *Account) MigrateSyntheticWithdrawals() int {
	kept := a.Trades[:0]
	migrated := 0
	for _, t := range a.Trades {
		if !IsSyntheticWithdrawal(t) {
			kept = append(kept, t)
			continue
		}
		a.Withdrawals = append(a.Withdrawals, Withdrawal{
			ID:      t.ID,
			Amount:  -t.Result,
			Date:    t.Date,
			Comment: t.Comment,
		})
		migrated++
	}
	a.Trades = kept
	return migrated
}

// AccountPatch holds the account fields to override; nil means keep.
type AccountPatch struct {
	Name *string
	Size *float64
}
