package transfer

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trade-ledger/internal/errors"
	"trade-ledger/internal/models"
	"trade-ledger/pkg/utils"
)

// Broker statement columns.
const (
	colSymbol = iota
	colType
	colOpenTime
	colDuration
	colProfit
	colComment

	minColumns = colProfit + 1
)

// Threshold maps a maximum holding duration to a timeframe label.
type Threshold struct {
	MaxSeconds float64
	Timeframe  string
}

// DefaultThresholds buckets holding time into timeframe labels. Longer
// holds fall into DefaultLongTimeframe.
var DefaultThresholds = []Threshold{
	{MaxSeconds: 300, Timeframe: "5min"},
	{MaxSeconds: 1800, Timeframe: "30min"},
	{MaxSeconds: 3600, Timeframe: "1H"},
	{MaxSeconds: 14400, Timeframe: "4H"},
}

// DefaultLongTimeframe labels holds longer than every threshold.
const DefaultLongTimeframe = "1D"

// ImportOptions tunes broker statement parsing.
type ImportOptions struct {
	Thresholds    []Threshold
	LongTimeframe string
	Comma         rune
	Logger        zerolog.Logger
	// Now stamps CreatedAt on imported trades.
	Now func() time.Time
}

// ImportReport summarizes a broker import. Trades holds the parsed rows
// ready to be appended to the ledger.
type ImportReport struct {
	Imported int            `json:"imported"`
	Skipped  int            `json:"skipped"`
	Warnings []string       `json:"warnings,omitempty"`
	Trades   []models.Trade `json:"trades,omitempty"`
}

// TimeframeFor maps a holding duration in seconds to a timeframe label.
// Empty arguments fall back to the defaults.
func TimeframeFor(seconds float64, thresholds []Threshold, long string) string {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	if long == "" {
		long = DefaultLongTimeframe
	}
	for _, th := range thresholds {
		if seconds <= th.MaxSeconds {
			return th.Timeframe
		}
	}
	return long
}

// ImportTradesTable parses a broker statement with positional columns:
// symbol, type, open time, duration in seconds, profit and an optional
// comment. A leading header row is recognized by a non-numeric profit
// column. Rows that cannot be used are skipped and reported; only a stream
// that cannot be read at all is an error.
func ImportTradesTable(r io.Reader, accountID string, opts ImportOptions) (ImportReport, error) {
	var report ImportReport
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return report, errors.NewFormatError("broker", "unreadable statement", err)
			}
			report.skip(opts.Logger, line, "malformed row: "+perr.Err.Error())
			continue
		}
		if isBlank(record) {
			continue
		}

		if len(record) < minColumns {
			report.skip(opts.Logger, line, "expected at least 5 columns, got "+strconv.Itoa(len(record)))
			continue
		}

		result, err := parseProfit(record[colProfit], cr.Comma)
		if err != nil {
			if line == 1 {
				continue
			}
			report.skip(opts.Logger, line, "unparsable profit "+strconv.Quote(record[colProfit]))
			continue
		}
		if strings.TrimSpace(record[colSymbol]) == "" {
			report.skip(opts.Logger, line, "missing symbol")
			continue
		}

		t, warn := brokerTrade(record, result, accountID, opts)
		if warn != "" {
			report.Warnings = append(report.Warnings, "line "+strconv.Itoa(line)+": "+warn)
		}
		report.Trades = append(report.Trades, t)
		report.Imported++
	}

	opts.Logger.Info().
		Str("event", "import").
		Str("account_id", accountID).
		Int("imported", report.Imported).
		Int("skipped", report.Skipped).
		Msg("Broker statement parsed")
	return report, nil
}

// parseProfit reads the profit column. With a non-comma field separator a
// comma is a decimal separator ("1,5" is 1.5), and more than one is
// ambiguous.
func parseProfit(s string, comma rune) (float64, error) {
	if comma != ',' && strings.Contains(s, ",") {
		if strings.Count(s, ",") > 1 || strings.Contains(s, ".") {
			return 0, errors.NewValidationError("profit", s, "ambiguous decimal separator")
		}
		s = strings.Replace(s, ",", ".", 1)
	}
	return utils.ParseAmount(s)
}

// Accepted reconciles the report with the number of trades the ledger
// actually appended.
func (r *ImportReport) Accepted(n int) {
	if dropped := r.Imported - n; dropped > 0 {
		r.Skipped += dropped
		r.Warnings = append(r.Warnings, strconv.Itoa(dropped)+" trades rejected by the ledger")
	}
	r.Imported = n
}

func (r *ImportReport) skip(logger zerolog.Logger, line int, reason string) {
	r.Skipped++
	r.Warnings = append(r.Warnings, "line "+strconv.Itoa(line)+": "+reason)
	logger.Warn().Int("line", line).Str("reason", reason).Msg("Skipping broker row")
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// brokerTrade builds a trade from one statement row. An unparsable open
// time degrades to today with a warning.
func brokerTrade(record []string, result float64, accountID string, opts ImportOptions) (models.Trade, string) {
	var warn string
	now := opts.Now()

	direction := models.DirectionShort
	if strings.Contains(strings.ToLower(record[colType]), "buy") {
		direction = models.DirectionLong
	}

	date, clock := now.Format(models.DateLayout), ""
	if opened, hasClock, err := parseOpenTime(record[colOpenTime]); err == nil {
		date = opened.Format(models.DateLayout)
		if hasClock {
			clock = opened.Format(models.TimeLayout)
		}
	} else {
		warn = "unparsable open time " + strconv.Quote(record[colOpenTime]) + ", using today"
	}

	// An unreadable duration counts as a long hold.
	seconds, err := strconv.ParseFloat(strings.TrimSpace(record[colDuration]), 64)
	if err != nil || seconds < 0 {
		seconds = math.Inf(1)
	}
	timeframe := TimeframeFor(seconds, opts.Thresholds, opts.LongTimeframe)

	var comment string
	if len(record) > colComment {
		comment = strings.TrimSpace(record[colComment])
	}

	return models.Trade{
		AccountID: accountID,
		Date:      date,
		Time:      clock,
		Direction: direction,
		Pair:      strings.TrimSpace(record[colSymbol]),
		Timeframe: timeframe,
		Result:    result,
		Comment:   comment,
		CreatedAt: now,
	}, warn
}

// Broker statements commonly use dotted dates.
var openTimeLayouts = []string{
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006.01.02",
	"02/01/2006 15:04",
}

func parseOpenTime(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, hasClock, err := models.ParseDate(s); err == nil {
		return t, hasClock, nil
	}
	var lastErr error
	for _, layout := range openTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, layout != "2006.01.02", nil
		}
		lastErr = err
	}
	return time.Time{}, false, lastErr
}
