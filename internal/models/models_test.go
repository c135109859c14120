package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	for _, in := range []string{"Long", "buy", " L "} {
		d, ok := ParseDirection(in)
		assert.True(t, ok, in)
		assert.Equal(t, DirectionLong, d, in)
	}
	d, ok := ParseDirection("SELL")
	assert.True(t, ok)
	assert.Equal(t, DirectionShort, d)

	_, ok = ParseDirection("flat")
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	d, hasClock, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.False(t, hasClock)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), d)

	d, hasClock, err = ParseDate("2024-03-01T14:30")
	require.NoError(t, err)
	assert.True(t, hasClock)
	assert.Equal(t, 14, d.Hour())

	_, _, err = ParseDate("1/3/2024")
	assert.Error(t, err)
}

func TestTradeTimestampAndHour(t *testing.T) {
	tr := Trade{Date: "2024-03-01", Time: "09:45"}
	assert.Equal(t, time.Date(2024, 3, 1, 9, 45, 0, 0, time.UTC), tr.Timestamp())
	h, ok := tr.Hour()
	assert.True(t, ok)
	assert.Equal(t, 9, h)

	_, ok = Trade{Date: "2024-03-01"}.Hour()
	assert.False(t, ok)
	assert.True(t, Trade{Date: "bogus"}.Timestamp().IsZero())
}

func TestParseDisplayMode(t *testing.T) {
	assert.Equal(t, DisplayPercent, ParseDisplayMode(" Percent "))
	assert.Equal(t, DisplayCurrency, ParseDisplayMode("pips"))
}

func TestLegacyTradeDecoding(t *testing.T) {
	var tr Trade
	require.NoError(t, json.Unmarshal([]byte(`{"id": 1699999999123, "direction": "Sell", "pair": "EUR/USD", "result": "-12.5"}`), &tr))
	assert.Equal(t, "1699999999123", tr.ID)
	assert.Equal(t, DirectionShort, tr.Direction)
	assert.Equal(t, -12.5, tr.Result)

	err := json.Unmarshal([]byte(`{"id": "x", "result": "lots"}`), &tr)
	assert.Error(t, err)
}

func TestLegacyWithdrawalDecoding(t *testing.T) {
	var w Withdrawal
	require.NoError(t, json.Unmarshal([]byte(`{"id": 42, "amount": "250.75", "date": "2024-01-01"}`), &w))
	assert.Equal(t, Withdrawal{ID: "42", Amount: 250.75, Date: "2024-01-01"}, w)
}

func TestMigrateSyntheticWithdrawals(t *testing.T) {
	a := Account{
		Size: 900,
		Trades: []Trade{
			{ID: "t1", Pair: "EUR/USD", Result: 50},
			{ID: "t2", Pair: "withdrawal", Result: -100, Date: "2024-01-05", Comment: "rent"},
			{ID: "t3", Pair: "EUR/USD", Exit: "Withdrawal", Result: -20},
			{ID: "t4", Pair: "WITHDRAWAL", Result: 10},
		},
	}
	before := a.Size - a.TotalPnL() + a.TotalWithdrawn()

	assert.Equal(t, 2, a.MigrateSyntheticWithdrawals())
	assert.Len(t, a.Trades, 2)
	assert.Equal(t, []Withdrawal{
		{ID: "t2", Amount: 100, Date: "2024-01-05", Comment: "rent"},
		{ID: "t3", Amount: 20},
	}, a.Withdrawals)

	// The reconstructed starting balance is unchanged.
	assert.Equal(t, before, a.Size-a.TotalPnL()+a.TotalWithdrawn())
	assert.Zero(t, a.MigrateSyntheticWithdrawals())
}

func TestAddSuggestion(t *testing.T) {
	set := AddSuggestion(nil, "XAU/USD", "EUR/USD", "", "XAU/USD")
	assert.Equal(t, []string{"EUR/USD", "XAU/USD"}, set)
	assert.Equal(t, []string{"EUR/USD", "GBP/USD", "XAU/USD"}, AddSuggestion(set, "GBP/USD"))
}

func TestStateCloneIsDeep(t *testing.T) {
	s := LedgerState{
		Accounts:    []Account{{ID: "a", Trades: []Trade{{ID: "t1"}}}},
		Preferences: map[string]OrderPreference{"a": {SortMode: "manual", ManualOrder: []string{"t1"}}},
	}
	c := s.Clone()
	c.Accounts[0].Trades[0].ID = "changed"
	c.Preferences["a"].ManualOrder[0] = "changed"

	assert.Equal(t, "t1", s.Accounts[0].Trades[0].ID)
	assert.Equal(t, "t1", s.Preferences["a"].ManualOrder[0])
	assert.NotNil(t, c.Account("a"))
	assert.Nil(t, c.Account("b"))
}
