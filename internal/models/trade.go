package models

import "time"

// Trade represents a single logged trade.
type Trade struct {
	ID         string    `json:"id" yaml:"id"`
	AccountID  string    `json:"account_id" yaml:"account_id"`
	Date       string    `json:"date" yaml:"date"`
	Time       string    `json:"time,omitempty" yaml:"time,omitempty"`
	Direction  Direction `json:"direction" yaml:"direction"`
	Pair       string    `json:"pair" yaml:"pair"`
	Timeframe  string    `json:"timeframe,omitempty" yaml:"timeframe,omitempty"`
	Setup      string    `json:"setup,omitempty" yaml:"setup,omitempty"`
	Exit       string    `json:"exit,omitempty" yaml:"exit,omitempty"`
	Result     float64   `json:"result" yaml:"result"`
	Comment    string    `json:"comment,omitempty" yaml:"comment,omitempty"`
	Screenshot string    `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// Timestamp returns the trade's date combined with its clock time when present.
// Unparseable dates yield the zero time.
func (t Trade) Timestamp() time.Time {
	d, _, err := ParseDate(t.Date)
	if err != nil {
		return time.Time{}
	}
	if t.Time != "" {
		if c, err := ParseClock(t.Time); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, time.UTC)
		}
	}
	return d
}

// Hour returns the hour of day the trade was taken. The explicit Time field
// wins; otherwise the hour component of Date is used when it carries one.
func (t Trade) Hour() (int, bool) {
	if t.Time != "" {
		if c, err := ParseClock(t.Time); err == nil {
			return c.Hour(), true
		}
	}
	d, hasClock, err := ParseDate(t.Date)
	if err != nil || !hasClock {
		return 0, false
	}
	return d.Hour(), true
}

// TradeInput carries the raw operator input for a new trade.
// Result is a string so that coercion and validation happen in one place.
type TradeInput struct {
	Date       string
	Time       string
	Direction  string
	Pair       string
	Timeframe  string
	Setup      string
	Exit       string
	Result     string
	Comment    string
	Screenshot string
}

// TradePatch holds the fields to change on an existing trade; nil means keep.
type TradePatch struct {
	Date       *string
	Time       *string
	Direction  *string
	Pair       *string
	Timeframe  *string
	Setup      *string
	Exit       *string
	Result     *float64
	Comment    *string
	Screenshot *string
}

// Withdrawal is a cash debit against an account. It never counts as a trade.
type Withdrawal struct {
	ID      string  `json:"id" yaml:"id"`
	Amount  float64 `json:"amount" yaml:"amount"`
	Date    string  `json:"date" yaml:"date"`
	Comment string  `json:"comment,omitempty" yaml:"comment,omitempty"`
}
