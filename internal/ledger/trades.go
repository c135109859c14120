package ledger

import (
	"context"
	"strings"
	"time"

	"trade-ledger/internal/errors"
	"trade-ledger/internal/logging"
	"trade-ledger/internal/models"
	"trade-ledger/internal/ordering"
	"trade-ledger/internal/security"
	"trade-ledger/pkg/id"
	"trade-ledger/pkg/utils"
)

// buildTrade validates raw input and returns the normalized trade.
func buildTrade(in models.TradeInput) (models.Trade, error) {
	t := models.Trade{
		Date:       strings.TrimSpace(in.Date),
		Time:       strings.TrimSpace(in.Time),
		Pair:       security.SanitizeLabel(in.Pair),
		Timeframe:  security.SanitizeLabel(in.Timeframe),
		Setup:      security.SanitizeLabel(in.Setup),
		Exit:       security.SanitizeLabel(in.Exit),
		Comment:    security.SanitizeText(in.Comment),
		Screenshot: strings.TrimSpace(in.Screenshot),
	}

	dir := models.DirectionLong
	if strings.TrimSpace(in.Direction) != "" {
		var ok bool
		if dir, ok = models.ParseDirection(in.Direction); !ok {
			return models.Trade{}, errors.NewValidationError("direction", in.Direction, "expected Long or Short")
		}
	}
	t.Direction = dir

	result, err := utils.ParseAmount(in.Result)
	if err != nil {
		return models.Trade{}, errors.NewValidationError("result", in.Result, "result must be a number")
	}
	t.Result = result

	if err := validateTrade(t); err != nil {
		return models.Trade{}, err
	}
	return t, nil
}

// validateTrade checks the invariants every stored trade satisfies.
func validateTrade(t models.Trade) error {
	if t.Pair == "" {
		return errors.NewValidationError("pair", t.Pair, "pair is required")
	}
	if _, _, err := models.ParseDate(t.Date); err != nil {
		return errors.NewValidationError("date", t.Date, "expected YYYY-MM-DD")
	}
	if t.Time != "" {
		if _, err := models.ParseClock(t.Time); err != nil {
			return errors.NewValidationError("time", t.Time, "expected HH:MM")
		}
	}
	if !utils.IsFinite(t.Result) {
		return errors.NewValidationError("result", t.Result, "result must be finite")
	}
	return nil
}

// remember unions the trade's labels into the account's suggestion sets.
func remember(a *models.Account, t models.Trade) {
	a.SavedSymbols = models.AddSuggestion(a.SavedSymbols, t.Pair)
	a.SavedTimeframes = models.AddSuggestion(a.SavedTimeframes, t.Timeframe)
	a.SavedEntryStrategies = models.AddSuggestion(a.SavedEntryStrategies, t.Setup)
	a.SavedExitStrategies = models.AddSuggestion(a.SavedExitStrategies, t.Exit)
}

// Trades returns a copy of the active account's trades in insertion order.
func (l *Ledger) Trades() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Trade(nil), l.active().Trades...)
}

// Trade returns a copy of a trade in the active account.
func (l *Ledger) Trade(tradeID string) (models.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a := l.active()
	i := a.TradeIndex(tradeID)
	if i < 0 {
		return models.Trade{}, errors.NewNotFoundError("trade", tradeID)
	}
	return a.Trades[i], nil
}

// AddTrade validates in and appends it to the active account.
func (l *Ledger) AddTrade(ctx context.Context, in models.TradeInput) (models.Trade, error) {
	t, err := buildTrade(in)
	if err != nil {
		return models.Trade{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.active()
	now := time.Now().UTC()
	t.ID = id.NewAt(now)
	t.AccountID = a.ID
	t.CreatedAt = now
	l.appendTrade(a, t)

	logging.LogTrade(l.logger, "add", a.ID, t.ID, t.Pair, t.Result, a.Size)
	return t, l.persist(ctx)
}

// appendTrade adds t to a, credits its result and extends a materialized
// manual order. Callers hold the write lock.
func (l *Ledger) appendTrade(a *models.Account, t models.Trade) {
	a.Trades = append(a.Trades, t)
	a.Size += t.Result
	remember(a, t)

	if p, ok := l.state.Preferences[a.ID]; ok && len(p.ManualOrder) > 0 {
		p.ManualOrder = append(p.ManualOrder, t.ID)
		l.state.Preferences[a.ID] = p
	}
}

// ImportTrades appends already-built trades to accountID in one persist
// and returns how many were appended. Trades that fail validation are
// skipped with a warning and added to skipped; the rest still import.
// Trades without an id get a fresh one.
func (l *Ledger) ImportTrades(ctx context.Context, accountID, source string, trades []models.Trade, skipped int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.state.Account(accountID)
	if a == nil {
		return 0, errors.NewNotFoundError("account", accountID)
	}
	lg := logging.WithAccount(l.logger, a.ID)

	now := time.Now().UTC()
	imported := 0
	for i, t := range trades {
		if err := validateTrade(t); err != nil {
			skipped++
			lg.Warn().Err(err).Int("index", i).Str("source", source).Msg("Skipping invalid imported trade")
			continue
		}
		if t.ID == "" {
			t.ID = id.NewAt(now)
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.AccountID = a.ID
		l.appendTrade(a, t)
		imported++
	}

	lg.Info().
		Str("event", "trade").
		Str("action", "import").
		Int("imported", imported).
		Int("skipped", skipped).
		Float64("balance", a.Size).
		Msg("Trades imported")
	if imported == 0 {
		return 0, nil
	}
	l.auditErr(l.audit.LogImport(ctx, a.ID, source, imported, skipped))
	return imported, l.persist(ctx)
}

// EditTrade applies patch to a trade of the active account. The merged
// record is validated before anything changes; the account size moves by
// the difference between the new and old result.
func (l *Ledger) EditTrade(ctx context.Context, tradeID string, patch models.TradePatch) (models.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.active()
	i := a.TradeIndex(tradeID)
	if i < 0 {
		return models.Trade{}, errors.NewNotFoundError("trade", tradeID)
	}

	old := a.Trades[i]
	next, err := applyPatch(old, patch)
	if err != nil {
		return models.Trade{}, err
	}

	a.Trades[i] = next
	a.Size += next.Result - old.Result
	remember(a, next)

	logging.LogTrade(l.logger, "edit", a.ID, next.ID, next.Pair, next.Result, a.Size)
	return next, l.persist(ctx)
}

func applyPatch(t models.Trade, p models.TradePatch) (models.Trade, error) {
	set := func(dst *string, src *string, clean func(string) string) {
		if src != nil {
			*dst = clean(*src)
		}
	}
	set(&t.Date, p.Date, strings.TrimSpace)
	set(&t.Time, p.Time, strings.TrimSpace)
	set(&t.Pair, p.Pair, security.SanitizeLabel)
	set(&t.Timeframe, p.Timeframe, security.SanitizeLabel)
	set(&t.Setup, p.Setup, security.SanitizeLabel)
	set(&t.Exit, p.Exit, security.SanitizeLabel)
	set(&t.Comment, p.Comment, security.SanitizeText)
	set(&t.Screenshot, p.Screenshot, strings.TrimSpace)

	if p.Direction != nil {
		dir, ok := models.ParseDirection(*p.Direction)
		if !ok {
			return models.Trade{}, errors.NewValidationError("direction", *p.Direction, "expected Long or Short")
		}
		t.Direction = dir
	}
	if p.Result != nil {
		t.Result = *p.Result
	}
	if err := validateTrade(t); err != nil {
		return models.Trade{}, err
	}
	return t, nil
}

// DeleteTrade removes a trade from the active account and debits its
// result. Deleting an unknown id is a no-op.
func (l *Ledger) DeleteTrade(ctx context.Context, tradeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.active()
	i := a.TradeIndex(tradeID)
	if i < 0 {
		l.logger.Debug().Str("trade_id", tradeID).Msg("Delete of unknown trade ignored")
		return nil
	}

	t := a.Trades[i]
	a.Trades = append(a.Trades[:i:i], a.Trades[i+1:]...)
	a.Size -= t.Result
	if p, ok := l.state.Preferences[a.ID]; ok && len(p.ManualOrder) > 0 {
		p.ManualOrder = ordering.Prune(p.ManualOrder, tradeID)
		l.state.Preferences[a.ID] = p
	}

	logging.LogTrade(l.logger, "delete", a.ID, t.ID, t.Pair, t.Result, a.Size)
	return l.persist(ctx)
}
