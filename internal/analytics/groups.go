package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"trade-ledger/internal/errors"
	"trade-ledger/internal/models"
	"trade-ledger/internal/ordering"
)

// Dimension is a trade attribute P&L can be broken down by.
type Dimension string

const (
	ByPair      Dimension = "pair"
	ByTimeframe Dimension = "timeframe"
	BySetup     Dimension = "setup"
	ByExit      Dimension = "exit"
	ByDirection Dimension = "direction"
	ByDayOfWeek Dimension = "day"
	ByHour      Dimension = "hour"
	ByMonth     Dimension = "month"
)

// Dimensions lists every supported dimension.
var Dimensions = []Dimension{ByPair, ByTimeframe, BySetup, ByExit, ByDirection, ByDayOfWeek, ByHour, ByMonth}

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Dimensions {
		if d == known {
			return d, nil
		}
	}
	return "", errors.NewValidationError("dimension", s, "unknown dimension")
}

// Placeholder keys for trades lacking the attribute.
const (
	KeyNone    = "(none)"
	KeyUnknown = "unknown"
)

// Category returns the bucket a trade falls into for d.
func Category(t models.Trade, d Dimension) string {
	var key string
	switch d {
	case ByPair:
		key = t.Pair
	case ByTimeframe:
		key = t.Timeframe
	case BySetup:
		key = t.Setup
	case ByExit:
		key = t.Exit
	case ByDirection:
		key = string(t.Direction)
	case ByDayOfWeek:
		day, _, err := models.ParseDate(t.Date)
		if err != nil {
			return KeyUnknown
		}
		return day.Weekday().String()
	case ByHour:
		h, ok := t.Hour()
		if !ok {
			return KeyUnknown
		}
		return fmt.Sprintf("%02d", h)
	case ByMonth:
		day, _, err := models.ParseDate(t.Date)
		if err != nil {
			return KeyUnknown
		}
		return day.Format("2006-01")
	}
	if key == "" {
		return KeyNone
	}
	return key
}

// Bucket is the P&L of one category.
type Bucket struct {
	Key   string  `json:"key"`
	PnL   float64 `json:"pnl"`
	Count int     `json:"count"`
}

// GroupedPnL sums results per category of d.
func GroupedPnL(trades []models.Trade, d Dimension) []Bucket {
	index := map[string]int{}
	var buckets []Bucket
	for _, t := range trades {
		key := Category(t, d)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Key: key})
		}
		buckets[i].PnL += t.Result
		buckets[i].Count++
	}
	sortBuckets(buckets, d)
	return buckets
}

// GroupedPnLMap is GroupedPnL as a category to sum mapping.
func GroupedPnLMap(trades []models.Trade, d Dimension) map[string]float64 {
	out := make(map[string]float64)
	for _, t := range trades {
		out[Category(t, d)] += t.Result
	}
	return out
}

func sortBuckets(buckets []Bucket, d Dimension) {
	if d == ByDayOfWeek {
		sort.SliceStable(buckets, func(i, j int) bool {
			return weekdayRank(buckets[i].Key) < weekdayRank(buckets[j].Key)
		})
		return
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
}

func weekdayRank(name string) int {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == name {
			return int(d)
		}
	}
	return 7
}

// CategorySnapshot holds running totals after one trade. Categories that
// have not appeared yet are absent from Totals.
type CategorySnapshot struct {
	Index  int                `json:"index"`
	Date   string             `json:"date"`
	Totals map[string]float64 `json:"totals"`
}

// CumulativeByCategory returns, per trade in chronological order, the
// running total of every category seen so far.
func CumulativeByCategory(trades []models.Trade, d Dimension) []CategorySnapshot {
	chrono := ordering.Chronological(trades)
	out := make([]CategorySnapshot, 0, len(chrono))
	running := map[string]float64{}
	for i, t := range chrono {
		running[Category(t, d)] += t.Result
		snap := make(map[string]float64, len(running))
		for k, v := range running {
			snap[k] = v
		}
		out = append(out, CategorySnapshot{Index: i + 1, Date: t.Date, Totals: snap})
	}
	return out
}

// DayAggregate is the calendar heatmap cell for one date.
type DayAggregate struct {
	PnL        float64 `json:"pnl"`
	TradeCount int     `json:"trade_count"`
	WinCount   int     `json:"win_count"`
}

// DailyAggregates groups trades by calendar date (YYYY-MM-DD).
func DailyAggregates(trades []models.Trade) map[string]DayAggregate {
	return defaultEngine.DailyAggregates(trades)
}

// DailyAggregates groups trades by calendar date (YYYY-MM-DD).
func (e Engine) DailyAggregates(trades []models.Trade) map[string]DayAggregate {
	out := make(map[string]DayAggregate)
	for _, t := range trades {
		key := t.Date
		if day, _, err := models.ParseDate(t.Date); err == nil {
			key = day.Format(models.DateLayout)
		}
		agg := out[key]
		agg.PnL += t.Result
		agg.TradeCount++
		if e.IsWin(t) {
			agg.WinCount++
		}
		out[key] = agg
	}
	return out
}
