// Package ledger holds the in-memory trade ledger: accounts, their trades and
// withdrawals, and the per-account display ordering. Every mutation is applied
// in memory first and then persisted through a store.LedgerStore.
package ledger

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"trade-ledger/internal/errors"
	"trade-ledger/internal/models"
	"trade-ledger/internal/security"
	"trade-ledger/internal/store"
)

// Ledger is the single writer over the persisted ledger state.
type Ledger struct {
	mu     sync.RWMutex
	state  models.LedgerState
	store  *store.LedgerStore
	audit  *security.AuditLogger
	logger zerolog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for ledger events.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithAudit records balance-affecting events to the audit trail.
func WithAudit(audit *security.AuditLogger) Option {
	return func(l *Ledger) { l.audit = audit }
}

// Open loads the ledger from st.
func Open(ctx context.Context, st *store.LedgerStore, opts ...Option) (*Ledger, error) {
	l := &Ledger{store: st, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}

	state, err := st.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading ledger")
	}
	l.state = state
	l.logger.Debug().
		Int("accounts", len(state.Accounts)).
		Str("active_account_id", state.ActiveAccountID).
		Msg("Ledger loaded")
	return l, nil
}

// persist saves the current state. Memory is never rolled back on failure.
// Callers hold the write lock.
func (l *Ledger) persist(ctx context.Context) error {
	if err := l.store.Save(ctx, l.state); err != nil {
		return errors.Persist(err)
	}
	return nil
}

// auditErr logs a failed audit write. The mutation it describes stands.
func (l *Ledger) auditErr(err error) {
	if err != nil {
		l.logger.Warn().Err(err).Msg("Audit write failed")
	}
}

// Snapshot returns a deep copy of the whole ledger.
func (l *Ledger) Snapshot() models.LedgerState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// Restore replaces the entire ledger with snapshot.
func (l *Ledger) Restore(ctx context.Context, snapshot models.LedgerState) error {
	if len(snapshot.Accounts) == 0 {
		return errors.NewInvariantError("restore", "snapshot has no accounts")
	}

	next := snapshot.Clone()
	store.Normalize(&next, l.logger)
	if next.Account(next.ActiveAccountID) == nil {
		next.ActiveAccountID = next.Accounts[0].ID
	}
	prefs := make(map[string]models.OrderPreference, len(next.Accounts))
	trades := 0
	for _, a := range next.Accounts {
		p := next.Preferences[a.ID]
		if p.SortMode == "" {
			p.SortMode = store.DefaultSortMode
		}
		p.ManualOrder = slices.DeleteFunc(slices.Clone(p.ManualOrder), func(tid string) bool {
			return a.TradeIndex(tid) < 0
		})
		prefs[a.ID] = p
		trades += len(a.Trades)
	}
	next.Preferences = prefs
	next.DisplayMode = models.ParseDisplayMode(string(next.DisplayMode))

	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = next
	l.logger.Info().
		Int("accounts", len(next.Accounts)).
		Int("trades", trades).
		Msg("Ledger restored from backup")
	l.auditErr(l.audit.LogRestore(ctx, len(next.Accounts), trades))
	return l.persist(ctx)
}

// DisplayMode returns the analytics display mode.
func (l *Ledger) DisplayMode() models.DisplayMode {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.DisplayMode
}

// SetDisplayMode changes the analytics display mode.
func (l *Ledger) SetDisplayMode(ctx context.Context, mode models.DisplayMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.DisplayMode = models.ParseDisplayMode(string(mode))
	return l.persist(ctx)
}
