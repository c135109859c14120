package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-ledger/internal/models"
	"trade-ledger/pkg/id"
)

func TestLoadEmptyStoreSeedsDefaultAccount(t *testing.T) {
	ls := NewLedgerStore(NewMemoryStore(), zerolog.Nop())
	state, err := ls.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, state.Accounts, 1)
	a := state.Accounts[0]
	assert.Equal(t, DefaultAccountName, a.Name)
	assert.Equal(t, DefaultAccountSize, a.Size)
	assert.Equal(t, a.ID, state.ActiveAccountID)
	assert.Equal(t, DefaultSortMode, state.Preferences[a.ID].SortMode)
	assert.Empty(t, state.Preferences[a.ID].ManualOrder)
	assert.Equal(t, models.DisplayCurrency, state.DisplayMode)
	assert.Equal(t, models.DefaultSymbols, a.SavedSymbols)
}

func TestLoadMalformedValuesFallBackToDefaults(t *testing.T) {
	kv := NewMemoryStore()
	require.NoError(t, kv.PutMany(context.Background(), map[string][]byte{
		KeyAccounts:    []byte(`{not json`),
		KeySortMode:    []byte(`42`),
		KeyManualOrder: []byte(`"nope"`),
		KeyDisplayMode: []byte(`"sideways"`),
	}))

	state, err := NewLedgerStore(kv, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Accounts, 1)
	assert.Equal(t, DefaultAccountName, state.Accounts[0].Name)
	assert.Equal(t, DefaultSortMode, state.Preferences[state.ActiveAccountID].SortMode)
	assert.Empty(t, state.Preferences[state.ActiveAccountID].ManualOrder)
	assert.Equal(t, models.DisplayCurrency, state.DisplayMode)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	ls := NewLedgerStore(kv, zerolog.Nop())

	state := DefaultState()
	a := &state.Accounts[0]
	a.Trades = append(a.Trades, models.Trade{ID: "t1", AccountID: a.ID, Date: "2024-03-01", Pair: "EUR/USD", Direction: models.DirectionLong, Result: 10})
	a.Trades = append(a.Trades, models.Trade{ID: "t2", AccountID: a.ID, Date: "2024-03-02", Pair: "EUR/USD", Direction: models.DirectionShort, Result: -4})
	state.Preferences[a.ID] = models.OrderPreference{SortMode: "manual", ManualOrder: []string{"t2", "t1"}}
	state.DisplayMode = models.DisplayPercent

	require.NoError(t, ls.Save(ctx, state))
	got, err := ls.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, state.ActiveAccountID, got.ActiveAccountID)
	assert.Equal(t, models.DisplayPercent, got.DisplayMode)
	assert.Equal(t, []string{"t2", "t1"}, got.Preferences[a.ID].ManualOrder)
	assert.Equal(t, "manual", got.Preferences[a.ID].SortMode)
	require.Len(t, got.Accounts[0].Trades, 2)
	assert.Equal(t, -4.0, got.Accounts[0].Trades[1].Result)
}

func TestLoadPrunesManualOrderAndRepairsActive(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	accounts := []models.Account{{
		ID:     "a1",
		Name:   "Main",
		Size:   100,
		Trades: []models.Trade{{ID: "t1", Date: "2024-01-01", Pair: "X", Result: 1}},
	}}
	raw, err := json.Marshal(accounts)
	require.NoError(t, err)
	require.NoError(t, kv.PutMany(ctx, map[string][]byte{
		KeyAccounts:      raw,
		KeyActiveAccount: []byte(`"gone"`),
		KeyManualOrder:   []byte(`{"a1":["t9","t1"]}`),
	}))

	state, err := NewLedgerStore(kv, zerolog.Nop()).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a1", state.ActiveAccountID)
	assert.Equal(t, []string{"t1"}, state.Preferences["a1"].ManualOrder)
	assert.Equal(t, "a1", state.Accounts[0].Trades[0].AccountID)
}

func TestLoadLegacyBareValuesApplyToActiveAccount(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	require.NoError(t, kv.PutMany(ctx, map[string][]byte{
		KeyAccounts: []byte(`[{"id":1700000000000,"name":"Old","size":"500","trades":[
			{"id":1700000000001,"date":"2024-01-02","pair":"GBP/USD","direction":"Buy","result":"25"},
			{"id":1700000000002,"date":"2024-01-03","pair":"WITHDRAWAL","direction":"Sell","result":-100}
		]}]`),
		KeyActiveAccount: []byte(`1700000000000`),
		KeySortMode:      []byte(`"result-desc"`),
		KeyManualOrder:   []byte(`["1700000000001"]`),
	}))

	state, err := NewLedgerStore(kv, zerolog.Nop()).Load(ctx)
	require.NoError(t, err)

	a := state.Accounts[0]
	assert.Equal(t, "1700000000000", a.ID)
	assert.Equal(t, a.ID, state.ActiveAccountID)
	assert.Equal(t, 500.0, a.Size)
	require.Len(t, a.Trades, 1)
	assert.Equal(t, models.DirectionLong, a.Trades[0].Direction)
	assert.Equal(t, 25.0, a.Trades[0].Result)
	require.Len(t, a.Withdrawals, 1)
	assert.Equal(t, 100.0, a.Withdrawals[0].Amount)
	assert.Equal(t, "result-desc", state.Preferences[a.ID].SortMode)
	assert.Equal(t, []string{"1700000000001"}, state.Preferences[a.ID].ManualOrder)
}

func TestDisplayDefault(t *testing.T) {
	ls := NewLedgerStore(NewMemoryStore(), zerolog.Nop()).WithDisplayDefault(models.DisplayPercent)
	state, err := ls.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DisplayPercent, state.DisplayMode)
}

func TestNormalizeBackfillsCreatedAtFromID(t *testing.T) {
	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	state := models.LedgerState{Accounts: []models.Account{{
		ID: "a1",
		Trades: []models.Trade{
			{ID: id.NewAt(at), Date: "2024-02-01", Pair: "EUR/USD"},
			{ID: "legacy", Date: "2024-02-01", Pair: "EUR/USD"},
		},
	}}}

	Normalize(&state, zerolog.Nop())
	assert.True(t, state.Accounts[0].Trades[0].CreatedAt.Equal(at))
	assert.True(t, state.Accounts[0].Trades[1].CreatedAt.IsZero())
}

func TestLoadKeepsMalformedAccountsForRecovery(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	raw := []byte(`[{"id":"a1","name":"Main","size":100,"trades":[{"id":"t1","date":"2024-01-01","pair":"X","result":"lots"}]}]`)
	require.NoError(t, kv.PutMany(ctx, map[string][]byte{KeyAccounts: raw}))

	ls := NewLedgerStore(kv, zerolog.Nop())
	state, err := ls.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultAccountName, state.Accounts[0].Name)

	require.NoError(t, ls.Save(ctx, state))
	kept, err := kv.Get(ctx, KeyAccountsCorrupt)
	require.NoError(t, err)
	assert.Equal(t, raw, kept, "original value survives the first save")

	accounts, err := kv.Get(ctx, KeyAccounts)
	require.NoError(t, err)
	assert.NotEqual(t, raw, accounts)
}
