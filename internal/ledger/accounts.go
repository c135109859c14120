package ledger

import (
	"context"
	"strings"
	"time"

	"trade-ledger/internal/errors"
	"trade-ledger/internal/logging"
	"trade-ledger/internal/models"
	"trade-ledger/internal/security"
	"trade-ledger/internal/store"
	"trade-ledger/pkg/id"
	"trade-ledger/pkg/utils"
)

func validateAccountName(name string) (string, error) {
	name = security.SanitizeLabel(name)
	if name == "" {
		return "", errors.NewValidationError("name", name, "account name is required")
	}
	return name, nil
}

func validateAccountSize(size float64) error {
	if !utils.IsFinite(size) || size <= 0 {
		return errors.NewValidationError("size", size, "account size must be a positive number")
	}
	return nil
}

// Accounts returns a copy of every account in collection order.
func (l *Ledger) Accounts() []models.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Account, len(l.state.Accounts))
	for i, a := range l.state.Accounts {
		out[i] = a.Clone()
	}
	return out
}

// Account returns a copy of the account with accountID.
func (l *Ledger) Account(accountID string) (models.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a := l.state.Account(accountID)
	if a == nil {
		return models.Account{}, errors.NewNotFoundError("account", accountID)
	}
	return a.Clone(), nil
}

// ActiveAccount returns a copy of the active account.
func (l *Ledger) ActiveAccount() models.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active().Clone()
}

// active returns the active account. The state always holds at least one
// account and Load/Restore guarantee the active id resolves.
func (l *Ledger) active() *models.Account {
	if a := l.state.Account(l.state.ActiveAccountID); a != nil {
		return a
	}
	l.state.ActiveAccountID = l.state.Accounts[0].ID
	return &l.state.Accounts[0]
}

// CreateAccount adds an account seeded with the default suggestions.
func (l *Ledger) CreateAccount(ctx context.Context, name string, size float64) (models.Account, error) {
	name, err := validateAccountName(name)
	if err != nil {
		return models.Account{}, err
	}
	if err := validateAccountSize(size); err != nil {
		return models.Account{}, err
	}

	now := time.Now().UTC()
	a := models.Account{
		ID:           id.NewAt(now),
		Name:         name,
		Size:         size,
		StartingSize: size,
		Trades:       []models.Trade{},
		Withdrawals:  []models.Withdrawal{},
		CreatedAt:    now,
	}
	a.SeedSuggestions()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.Accounts = append(l.state.Accounts, a)
	if l.state.Preferences == nil {
		l.state.Preferences = make(map[string]models.OrderPreference)
	}
	l.state.Preferences[a.ID] = models.OrderPreference{SortMode: store.DefaultSortMode}
	if l.state.ActiveAccountID == "" {
		l.state.ActiveAccountID = a.ID
	}

	logging.LogAccount(l.logger, "create", a.ID, a.Name, a.Size)
	l.auditErr(l.audit.LogAccount(ctx, security.AuditAccountCreated, a.ID, a.Name, a.Size))
	return a.Clone(), l.persist(ctx)
}

// DeleteAccount removes an account with its trades and withdrawals. The last
// remaining account cannot be deleted. When the active account is deleted
// the first surviving account becomes active.
func (l *Ledger) DeleteAccount(ctx context.Context, accountID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i := range l.state.Accounts {
		if l.state.Accounts[i].ID == accountID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.NewNotFoundError("account", accountID)
	}
	if len(l.state.Accounts) == 1 {
		return errors.NewInvariantError("last_account", "cannot delete the only account")
	}

	removed := l.state.Accounts[idx]
	l.state.Accounts = append(l.state.Accounts[:idx:idx], l.state.Accounts[idx+1:]...)
	delete(l.state.Preferences, accountID)
	if l.state.ActiveAccountID == accountID {
		l.state.ActiveAccountID = l.state.Accounts[0].ID
	}

	logging.LogAccount(l.logger, "delete", removed.ID, removed.Name, removed.Size)
	l.auditErr(l.audit.LogAccount(ctx, security.AuditAccountDeleted, removed.ID, removed.Name, removed.Size))
	return l.persist(ctx)
}

// SetActive switches the active account. Unknown ids are ignored.
func (l *Ledger) SetActive(ctx context.Context, accountID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.Account(accountID) == nil || l.state.ActiveAccountID == accountID {
		return nil
	}
	l.state.ActiveAccountID = accountID
	l.logger.Info().Str("event", "account").Str("action", "activate").Str("account_id", accountID).Msg("Active account changed")
	return l.persist(ctx)
}

// EditAccount overrides an account's name and/or size. A size override does
// not touch trades; it is recorded in the audit trail as a balance correction.
func (l *Ledger) EditAccount(ctx context.Context, accountID string, patch models.AccountPatch) (models.Account, error) {
	var name string
	if patch.Name != nil {
		var err error
		if name, err = validateAccountName(*patch.Name); err != nil {
			return models.Account{}, err
		}
	}
	if patch.Size != nil {
		if err := validateAccountSize(*patch.Size); err != nil {
			return models.Account{}, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.state.Account(accountID)
	if a == nil {
		return models.Account{}, errors.NewNotFoundError("account", accountID)
	}
	if patch.Name != nil && name != a.Name {
		a.Name = name
		l.auditErr(l.audit.LogAccount(ctx, security.AuditAccountRenamed, a.ID, a.Name, a.Size))
	}
	if patch.Size != nil && *patch.Size != a.Size {
		before := a.Size
		a.Size = *patch.Size
		l.logger.Warn().
			Str("event", "account").
			Str("action", "balance_correction").
			Str("account_id", a.ID).
			Float64("before", before).
			Float64("after", a.Size).
			Msg("Account size overridden")
		l.auditErr(l.audit.LogBalanceCorrection(ctx, a.ID, before, a.Size))
	}

	logging.LogAccount(l.logger, "edit", a.ID, a.Name, a.Size)
	return a.Clone(), l.persist(ctx)
}

// Withdraw records a cash withdrawal and debits the account.
func (l *Ledger) Withdraw(ctx context.Context, accountID string, amount float64, date, comment string) (models.Withdrawal, error) {
	if !utils.IsFinite(amount) || amount <= 0 {
		return models.Withdrawal{}, errors.NewValidationError("amount", amount, "withdrawal amount must be a positive number")
	}
	date = strings.TrimSpace(date)
	if date == "" {
		date = time.Now().Format(models.DateLayout)
	} else if _, _, err := models.ParseDate(date); err != nil {
		return models.Withdrawal{}, errors.NewValidationError("date", date, "expected YYYY-MM-DD")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.state.Account(accountID)
	if a == nil {
		return models.Withdrawal{}, errors.NewNotFoundError("account", accountID)
	}
	w := models.Withdrawal{
		ID:      id.New(),
		Amount:  amount,
		Date:    date,
		Comment: security.SanitizeText(comment),
	}
	before := a.Size
	a.Withdrawals = append(a.Withdrawals, w)
	a.Size -= amount

	logging.LogWithdrawal(l.logger, "create", a.ID, w.ID, w.Amount, a.Size)
	l.auditErr(l.audit.LogWithdrawal(ctx, security.AuditWithdrawal, a.ID, w.ID, w.Amount, before, a.Size))
	return w, l.persist(ctx)
}

// DeleteWithdrawal removes a withdrawal and credits its amount back.
// Deleting an unknown withdrawal is a no-op.
func (l *Ledger) DeleteWithdrawal(ctx context.Context, accountID, withdrawalID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.state.Account(accountID)
	if a == nil {
		return errors.NewNotFoundError("account", accountID)
	}
	for i, w := range a.Withdrawals {
		if w.ID != withdrawalID {
			continue
		}
		before := a.Size
		a.Withdrawals = append(a.Withdrawals[:i:i], a.Withdrawals[i+1:]...)
		a.Size += w.Amount

		logging.LogWithdrawal(l.logger, "delete", a.ID, w.ID, w.Amount, a.Size)
		l.auditErr(l.audit.LogWithdrawal(ctx, security.AuditWithdrawalDeleted, a.ID, w.ID, w.Amount, before, a.Size))
		return l.persist(ctx)
	}
	return nil
}

// ReconstructStartingBalance derives the balance an account started with
// from its current size, trades and withdrawals.
func ReconstructStartingBalance(a models.Account) float64 {
	return a.Size - a.TotalPnL() + a.TotalWithdrawn()
}

// StartingBalance returns the recorded starting size, or the reconstructed
// one with estimated set when none was recorded.
func StartingBalance(a models.Account) (value float64, estimated bool) {
	if a.StartingSize != 0 {
		return a.StartingSize, false
	}
	return ReconstructStartingBalance(a), true
}
