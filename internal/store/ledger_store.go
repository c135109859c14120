package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"trade-ledger/internal/logging"
	"trade-ledger/internal/models"
	"trade-ledger/pkg/id"
)

// Defaults substituted for missing or malformed persisted values.
const (
	DefaultAccountName = "Main Account"
	DefaultAccountSize = 10000.0
	DefaultSortMode    = "date-desc"
)

// LedgerStore loads and saves the ledger state against a KVStore.
type LedgerStore struct {
	kv             KVStore
	logger         zerolog.Logger
	displayDefault models.DisplayMode
}

// NewLedgerStore creates a LedgerStore backed by kv.
func NewLedgerStore(kv KVStore, logger zerolog.Logger) *LedgerStore {
	return &LedgerStore{kv: kv, logger: logger, displayDefault: models.DisplayCurrency}
}

// WithDisplayDefault sets the display mode used when none was ever stored.
func (s *LedgerStore) WithDisplayDefault(mode models.DisplayMode) *LedgerStore {
	s.displayDefault = models.ParseDisplayMode(string(mode))
	return s
}

// DefaultAccount returns the seeded account used when none exist.
func DefaultAccount() models.Account {
	now := time.Now().UTC()
	a := models.Account{
		ID:           id.NewAt(now),
		Name:         DefaultAccountName,
		Size:         DefaultAccountSize,
		StartingSize: DefaultAccountSize,
		Trades:       []models.Trade{},
		Withdrawals:  []models.Withdrawal{},
		CreatedAt:    now,
	}
	a.SeedSuggestions()
	return a
}

// DefaultState returns a fresh ledger with one default account.
func DefaultState() models.LedgerState {
	a := DefaultAccount()
	return models.LedgerState{
		Accounts:        []models.Account{a},
		ActiveAccountID: a.ID,
		Preferences: map[string]models.OrderPreference{
			a.ID: {SortMode: DefaultSortMode},
		},
		DisplayMode: models.DisplayCurrency,
	}
}

// Load reads the ledger. Missing or malformed values are replaced by their
// defaults and logged; only store I/O failures are returned. A malformed
// accounts value is first copied to KeyAccountsCorrupt.
func (s *LedgerStore) Load(ctx context.Context) (models.LedgerState, error) {
	var state models.LedgerState

	raw, err := s.get(ctx, KeyAccounts)
	if err != nil {
		return state, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &state.Accounts); err != nil {
			s.logger.Warn().Err(err).Str("key", KeyAccounts).Str("recovery_key", KeyAccountsCorrupt).
				Msg("Malformed accounts, starting with default account")
			state.Accounts = nil
			// Saved before the default account can overwrite the original.
			if err := s.kv.PutMany(ctx, map[string][]byte{KeyAccountsCorrupt: raw}); err != nil {
				return state, err
			}
		}
	}
	if len(state.Accounts) == 0 {
		def := DefaultState()
		state.Accounts = def.Accounts
	}
	Normalize(&state, s.logger)

	raw, err = s.get(ctx, KeyActiveAccount)
	if err != nil {
		return state, err
	}
	if raw != nil {
		var active string
		if err := json.Unmarshal(raw, &active); err != nil {
			active = string(raw)
		}
		state.ActiveAccountID = active
	}
	if state.Account(state.ActiveAccountID) == nil {
		state.ActiveAccountID = state.Accounts[0].ID
	}

	state.Preferences = make(map[string]models.OrderPreference)
	if err := s.loadPreferences(ctx, &state); err != nil {
		return state, err
	}

	state.DisplayMode = s.displayDefault
	raw, err = s.get(ctx, KeyDisplayMode)
	if err != nil {
		return state, err
	}
	if raw != nil {
		var mode string
		if err := json.Unmarshal(raw, &mode); err != nil {
			mode = string(raw)
		}
		state.DisplayMode = models.ParseDisplayMode(mode)
	}

	return state, nil
}

// loadPreferences reads sort modes and manual orders. Both keys hold a map
// keyed by account id; a bare value from older versions applies to the
// active account.
func (s *LedgerStore) loadPreferences(ctx context.Context, state *models.LedgerState) error {
	modes := map[string]string{}
	raw, err := s.get(ctx, KeySortMode)
	if err != nil {
		return err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &modes); err != nil {
			var single string
			if err := json.Unmarshal(raw, &single); err != nil {
				s.logger.Warn().Err(err).Str("key", KeySortMode).Msg("Malformed sort mode, using default")
			} else {
				modes = map[string]string{state.ActiveAccountID: single}
			}
		}
	}

	orders := map[string][]string{}
	raw, err = s.get(ctx, KeyManualOrder)
	if err != nil {
		return err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &orders); err != nil {
			var single []string
			if err := json.Unmarshal(raw, &single); err != nil {
				s.logger.Warn().Err(err).Str("key", KeyManualOrder).Msg("Malformed manual order, discarding")
			} else {
				orders = map[string][]string{state.ActiveAccountID: single}
			}
		}
	}

	for _, a := range state.Accounts {
		mode := modes[a.ID]
		if mode == "" {
			mode = DefaultSortMode
		}
		state.Preferences[a.ID] = models.OrderPreference{
			SortMode:    mode,
			ManualOrder: liveIDs(orders[a.ID], a),
		}
	}
	return nil
}

// liveIDs drops ids that no longer reference a trade in a.
func liveIDs(order []string, a models.Account) []string {
	if len(order) == 0 {
		return nil
	}
	out := make([]string, 0, len(order))
	for _, tid := range order {
		if a.TradeIndex(tid) >= 0 {
			out = append(out, tid)
		}
	}
	return out
}

// Normalize repairs structural details of loaded data in place: missing ids,
// trade ownership, nil collections and legacy synthetic withdrawal trades.
func Normalize(state *models.LedgerState, logger zerolog.Logger) {
	for i := range state.Accounts {
		a := &state.Accounts[i]
		if a.ID == "" {
			a.ID = id.New()
		}
		if a.Trades == nil {
			a.Trades = []models.Trade{}
		}
		if a.Withdrawals == nil {
			a.Withdrawals = []models.Withdrawal{}
		}
		if n := a.MigrateSyntheticWithdrawals(); n > 0 {
			logger.Info().Str("account_id", a.ID).Int("count", n).Msg("Migrated legacy withdrawal trades")
		}
		for j := range a.Trades {
			if a.Trades[j].ID == "" {
				a.Trades[j].ID = id.New()
			}
			a.Trades[j].AccountID = a.ID
			if a.Trades[j].CreatedAt.IsZero() {
				if at, ok := id.Time(a.Trades[j].ID); ok {
					a.Trades[j].CreatedAt = at
				}
			}
		}
		for j := range a.Withdrawals {
			if a.Withdrawals[j].ID == "" {
				a.Withdrawals[j].ID = id.New()
			}
		}
	}
}

// Save writes every key in one atomic batch.
func (s *LedgerStore) Save(ctx context.Context, state models.LedgerState) error {
	start := time.Now()
	entries, err := encodeState(state)
	if err == nil {
		err = s.kv.PutMany(ctx, entries)
	}
	logging.LogPersist(s.logger, KeyAccounts, time.Since(start), err)
	return err
}

func encodeState(state models.LedgerState) (map[string][]byte, error) {
	modes := make(map[string]string, len(state.Preferences))
	orders := make(map[string][]string, len(state.Preferences))
	for accountID, p := range state.Preferences {
		modes[accountID] = p.SortMode
		if len(p.ManualOrder) > 0 {
			orders[accountID] = p.ManualOrder
		}
	}

	values := map[string]interface{}{
		KeyAccounts:      state.Accounts,
		KeyActiveAccount: state.ActiveAccountID,
		KeySortMode:      modes,
		KeyManualOrder:   orders,
		KeyDisplayMode:   string(state.DisplayMode),
	}
	entries := make(map[string][]byte, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		entries[k] = b
	}
	return entries, nil
}

// get returns nil, nil for keys that were never written.
func (s *LedgerStore) get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	return raw, err
}
