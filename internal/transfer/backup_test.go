package transfer

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-ledger/internal/errors"
	"trade-ledger/internal/models"
)

func sampleState() models.LedgerState {
	created := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	return models.LedgerState{
		ActiveAccountID: "acc-2",
		DisplayMode:     models.DisplayPercent,
		Accounts: []models.Account{
			{
				ID: "acc-1", Name: "Main", Size: 10250, StartingSize: 10000, CreatedAt: created,
				Trades: []models.Trade{
					{ID: "t1", AccountID: "acc-1", Date: "2024-01-16", Time: "09:30", Direction: models.DirectionLong,
						Pair: "EUR/USD", Timeframe: "15m", Setup: "Breakout", Exit: "TP", Result: 300, CreatedAt: created},
					{ID: "t2", AccountID: "acc-1", Date: "2024-01-17", Direction: models.DirectionShort,
						Pair: "XAU/USD", Exit: "SL", Result: -50, Comment: "news spike, \"bad\" fill", CreatedAt: created},
				},
				Withdrawals:  []models.Withdrawal{},
				SavedSymbols: []string{"EUR/USD", "XAU/USD"},
			},
			{
				ID: "acc-2", Name: "Prop", Size: 4900, StartingSize: 5000, CreatedAt: created,
				Trades: []models.Trade{
					{ID: "t3", AccountID: "acc-2", Date: "2024-02-01", Direction: models.DirectionLong,
						Pair: "GBP/USD", Exit: "BE", Result: 0, CreatedAt: created},
				},
				Withdrawals: []models.Withdrawal{{ID: "w1", Amount: 100, Date: "2024-02-02", Comment: "payout"}},
			},
		},
		Preferences: map[string]models.OrderPreference{
			"acc-1": {SortMode: "manual", ManualOrder: []string{"t2", "t1"}},
			"acc-2": {SortMode: "exit:BE"},
		},
	}
}

func TestBackupRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		var buf bytes.Buffer
		require.NoError(t, EncodeBackup(&buf, sampleState(), format))

		got, err := DecodeBackup(buf.Bytes(), format)
		require.NoError(t, err)
		if diff := cmp.Diff(sampleState(), got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("format %d round trip mismatch (-want +got):\n%s", format, diff)
		}
	}
}

func TestExportImportBackup(t *testing.T) {
	data, err := ExportBackup(sampleState())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": 2`)

	got, err := ImportBackup(data)
	require.NoError(t, err)
	assert.Equal(t, "acc-2", got.ActiveAccountID)
	assert.Equal(t, []string{"t2", "t1"}, got.Preferences["acc-1"].ManualOrder)
}

func TestImportLegacyAccountArray(t *testing.T) {
	legacy := `[
	  {"id": 1700000000000, "name": "Old", "size": "900",
	   "trades": [
	     {"id": 1, "date": "2024-01-01", "pair": "EUR/USD", "direction": "Long", "result": 20},
	     {"id": 2, "date": "2024-01-02", "pair": "WITHDRAWAL", "result": -120}
	   ]}
	]`
	got, err := ImportBackup([]byte(legacy))
	require.NoError(t, err)

	require.Len(t, got.Accounts, 1)
	a := got.Accounts[0]
	assert.Equal(t, "1700000000000", a.ID)
	assert.Equal(t, "1700000000000", got.ActiveAccountID)
	assert.Equal(t, 900.0, a.Size)
	require.Len(t, a.Trades, 1)
	assert.Equal(t, a.ID, a.Trades[0].AccountID)
	require.Len(t, a.Withdrawals, 1)
	assert.Equal(t, 120.0, a.Withdrawals[0].Amount)
	assert.NotNil(t, got.Preferences)
	assert.Equal(t, models.DisplayCurrency, got.DisplayMode)
}

func TestImportBackupRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":            "  ",
		"garbage":          "not a backup",
		"no accounts":      `{"version": 2, "accounts": []}`,
		"empty legacy":     `[]`,
		"first without id": `{"accounts": [{"name": "Nameless", "size": 10}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ImportBackup([]byte(payload))
			assert.ErrorIs(t, err, errors.ErrFormat)
		})
	}

	_, err := DecodeBackup([]byte("accounts: [unterminated"), FormatYAML)
	assert.ErrorIs(t, err, errors.ErrFormat)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatForPath("backup.YML"))
	assert.Equal(t, FormatYAML, FormatForPath("/tmp/ledger.yaml"))
	assert.Equal(t, FormatJSON, FormatForPath("ledger.json"))
	assert.Equal(t, FormatJSON, FormatForPath("-"))
}
