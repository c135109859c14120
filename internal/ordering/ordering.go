// Package ordering arranges trades for display, including the user's
// drag-and-drop manual order.
package ordering

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"trade-ledger/internal/errors"
	"trade-ledger/internal/models"
)

// Kind enumerates the display sort modes.
type Kind string

const (
	DateAsc    Kind = "date-asc"
	DateDesc   Kind = "date-desc"
	ResultAsc  Kind = "result-asc"
	ResultDesc Kind = "result-desc"
	ExitReason Kind = "exit"
	Manual     Kind = "manual"
)

// Mode is a parsed sort mode. Reason is only set for ExitReason.
type Mode struct {
	Kind   Kind
	Reason string
}

// Default is the mode used when none has been chosen.
var Default = Mode{Kind: DateDesc}

// String returns the persisted form, e.g. "exit:TP".
func (m Mode) String() string {
	if m.Kind == ExitReason {
		return string(ExitReason) + ":" + m.Reason
	}
	return string(m.Kind)
}

// ParseSortMode parses the persisted or user-supplied form of a mode.
func ParseSortMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if reason, ok := strings.CutPrefix(s, string(ExitReason)+":"); ok {
		if reason == "" {
			return Mode{}, errors.NewValidationError("sort_mode", s, "exit reason is required")
		}
		return Mode{Kind: ExitReason, Reason: reason}, nil
	}
	switch k := Kind(strings.ToLower(s)); k {
	case DateAsc, DateDesc, ResultAsc, ResultDesc, Manual:
		return Mode{Kind: k}, nil
	case "":
		return Default, nil
	}
	return Mode{}, errors.NewValidationError("sort_mode", s,
		fmt.Sprintf("must be one of %s, %s, %s, %s, %s or exit:<reason>", DateAsc, DateDesc, ResultAsc, ResultDesc, Manual))
}

// compareChrono orders trades by date, clock time, then id. Ids are
// time-sortable so same-minute trades keep their logging order.
func compareChrono(a, b models.Trade) int {
	if c := a.Timestamp().Compare(b.Timestamp()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Chronological returns a copy of trades oldest first.
func Chronological(trades []models.Trade) []models.Trade {
	out := slices.Clone(trades)
	slices.SortStableFunc(out, compareChrono)
	return out
}

// ReverseChronological returns a copy of trades newest first.
func ReverseChronological(trades []models.Trade) []models.Trade {
	out := slices.Clone(trades)
	slices.SortStableFunc(out, func(a, b models.Trade) int { return compareChrono(b, a) })
	return out
}

// Apply returns trades arranged per mode. manual is only consulted in
// Manual mode; an empty manual order falls back to newest first.
func Apply(mode Mode, trades []models.Trade, manual []string) []models.Trade {
	switch mode.Kind {
	case DateAsc:
		return Chronological(trades)
	case ResultAsc, ResultDesc:
		out := Chronological(trades)
		slices.SortStableFunc(out, func(a, b models.Trade) int {
			if mode.Kind == ResultDesc {
				return cmp.Compare(b.Result, a.Result)
			}
			return cmp.Compare(a.Result, b.Result)
		})
		return out
	case ExitReason:
		return partitionByExit(Chronological(trades), mode.Reason)
	case Manual:
		return applyManual(trades, manual)
	default:
		return ReverseChronological(trades)
	}
}

// partitionByExit stably moves trades whose exit matches reason to the front.
func partitionByExit(chrono []models.Trade, reason string) []models.Trade {
	out := make([]models.Trade, 0, len(chrono))
	var rest []models.Trade
	for _, t := range chrono {
		if strings.EqualFold(t.Exit, reason) {
			out = append(out, t)
		} else {
			rest = append(rest, t)
		}
	}
	return append(out, rest...)
}

func applyManual(trades []models.Trade, manual []string) []models.Trade {
	byID := make(map[string]models.Trade, len(trades))
	for _, t := range trades {
		byID[t.ID] = t
	}

	out := make([]models.Trade, 0, len(trades))
	placed := make(map[string]bool, len(manual))
	for _, tid := range manual {
		t, ok := byID[tid]
		if !ok || placed[tid] {
			continue
		}
		out = append(out, t)
		placed[tid] = true
	}

	// Trades logged after the order was saved go last, newest first.
	for _, t := range ReverseChronological(trades) {
		if !placed[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// Seed builds an initial manual order from newest-first chronology.
func Seed(trades []models.Trade) []string {
	chrono := ReverseChronological(trades)
	order := make([]string, len(chrono))
	for i, t := range chrono {
		order[i] = t.ID
	}
	return order
}

// Move relocates tradeID to sit immediately before beforeID. An empty
// order is first seeded from trades. An empty beforeID moves to the end.
func Move(order []string, trades []models.Trade, tradeID, beforeID string) ([]string, error) {
	if len(order) == 0 {
		order = Seed(trades)
	} else {
		order = slices.Clone(order)
	}

	from := slices.Index(order, tradeID)
	if from < 0 {
		return nil, errors.NewNotFoundError("trade", tradeID)
	}
	if beforeID != "" && !slices.Contains(order, beforeID) {
		return nil, errors.NewNotFoundError("trade", beforeID)
	}
	if tradeID == beforeID {
		return order, nil
	}

	order = slices.Delete(order, from, from+1)
	if beforeID == "" {
		return append(order, tradeID), nil
	}
	to := slices.Index(order, beforeID)
	return slices.Insert(order, to, tradeID), nil
}

// Prune removes tradeID from order.
func Prune(order []string, tradeID string) []string {
	return slices.DeleteFunc(slices.Clone(order), func(s string) bool { return s == tradeID })
}
