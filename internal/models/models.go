// Package models provides domain models for the trade ledger.
package models

import (
	"strings"
	"time"
)

// Direction represents the side of a logged trade.
type Direction string

const (
	DirectionLong  Direction = "Long"
	DirectionShort Direction = "Short"
)

// ParseDirection normalizes the input labels ("Buy"/"Sell", "long"/"short", "L"/"S").
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy", "l", "b":
		return DirectionLong, true
	case "short", "sell", "s":
		return DirectionShort, true
	}
	return "", false
}

// DisplayMode selects how P&L figures are presented.
type DisplayMode string

const (
	DisplayCurrency DisplayMode = "currency"
	DisplayPercent  DisplayMode = "percent"
)

// ParseDisplayMode returns the display mode for s, defaulting to currency.
func ParseDisplayMode(s string) DisplayMode {
	if DisplayMode(strings.ToLower(strings.TrimSpace(s))) == DisplayPercent {
		return DisplayPercent
	}
	return DisplayCurrency
}

// Date layouts accepted for trade and withdrawal dates.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
	TimeLayout     = "15:04"
)

var dateLayouts = []string{
	DateLayout,
	DateTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses a calendar date with an optional clock component.
// The second result reports whether the input carried a clock time.
func ParseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, layout != DateLayout, nil
		}
		lastErr = err
	}
	return time.Time{}, false, lastErr
}

// ParseClock parses an HH:MM (or HH:MM:SS) clock time.
func ParseClock(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Parse("15:04:05", s)
	}
	return t, nil
}
