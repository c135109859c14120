package ledger

import (
	"context"

	"trade-ledger/internal/models"
	"trade-ledger/internal/ordering"
	"trade-ledger/internal/store"
)

// preference returns the active account's ordering preference.
func (l *Ledger) preference() models.OrderPreference {
	p := l.state.Preferences[l.active().ID]
	if p.SortMode == "" {
		p.SortMode = store.DefaultSortMode
	}
	return p
}

func (l *Ledger) setPreference(p models.OrderPreference) {
	if l.state.Preferences == nil {
		l.state.Preferences = make(map[string]models.OrderPreference)
	}
	l.state.Preferences[l.active().ID] = p
}

// SortMode returns the active account's sort mode.
func (l *Ledger) SortMode() ordering.Mode {
	l.mu.RLock()
	defer l.mu.RUnlock()
	mode, err := ordering.ParseSortMode(l.preference().SortMode)
	if err != nil {
		return ordering.Default
	}
	return mode
}

// ManualOrder returns a copy of the active account's manual order.
func (l *Ledger) ManualOrder() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.preference().ManualOrder...)
}

// SortedTrades returns the active account's trades in display order.
func (l *Ledger) SortedTrades() []models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p := l.preference()
	mode, err := ordering.ParseSortMode(p.SortMode)
	if err != nil {
		mode = ordering.Default
	}
	return ordering.Apply(mode, l.active().Trades, p.ManualOrder)
}

// SetSortMode changes the active account's sort mode.
func (l *Ledger) SetSortMode(ctx context.Context, mode string) error {
	m, err := ordering.ParseSortMode(mode)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.preference()
	p.SortMode = m.String()
	l.setPreference(p)
	l.logger.Info().Str("event", "order").Str("action", "sort").Str("mode", p.SortMode).Msg("Sort mode changed")
	return l.persist(ctx)
}

// MoveTrade places tradeID immediately before beforeID in the manual order
// and switches the active account to manual sorting. An empty beforeID
// moves the trade to the end.
func (l *Ledger) MoveTrade(ctx context.Context, tradeID, beforeID string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.preference()
	order, err := ordering.Move(p.ManualOrder, l.active().Trades, tradeID, beforeID)
	if err != nil {
		return nil, err
	}
	p.ManualOrder = order
	p.SortMode = string(ordering.Manual)
	l.setPreference(p)

	l.logger.Info().
		Str("event", "order").
		Str("action", "move").
		Str("trade_id", tradeID).
		Str("before_id", beforeID).
		Msg("Trade moved")
	return append([]string(nil), order...), l.persist(ctx)
}

// ResetOrder discards the active account's manual order.
func (l *Ledger) ResetOrder(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.preference()
	p.ManualOrder = nil
	l.setPreference(p)
	l.logger.Info().Str("event", "order").Str("action", "reset").Msg("Manual order reset")
	return l.persist(ctx)
}
