package transfer

import (
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"trade-ledger/internal/errors"
	"trade-ledger/internal/models"
)

// TradeRow is one line of the spreadsheet export.
type TradeRow struct {
	Direction string `csv:"direction"`
	Pair      string `csv:"pair"`
	Timeframe string `csv:"timeframe"`
	Date      string `csv:"date"`
	Result    string `csv:"result"`
	Setup     string `csv:"setup"`
	Exit      string `csv:"exit"`
	Comment   string `csv:"comment"`
}

// TableHeader lists the exported columns in order.
var TableHeader = []string{"direction", "pair", "timeframe", "date", "result", "setup", "exit", "comment"}

// Rows converts trades to export rows, preserving their order. The date
// column holds the calendar date only; the clock time is not exported.
func Rows(trades []models.Trade) []TradeRow {
	rows := make([]TradeRow, len(trades))
	for i, t := range trades {
		rows[i] = TradeRow{
			Direction: string(t.Direction),
			Pair:      t.Pair,
			Timeframe: t.Timeframe,
			Date:      t.Date,
			Result:    strconv.FormatFloat(t.Result, 'f', -1, 64),
			Setup:     t.Setup,
			Exit:      t.Exit,
			Comment:   t.Comment,
		}
	}
	return rows
}

func (r TradeRow) cells() []string {
	return []string{r.Direction, r.Pair, r.Timeframe, r.Date, r.Result, r.Setup, r.Exit, r.Comment}
}

// ExportTradesTable writes trades as CSV with a header row. Fields containing
// commas, quotes or newlines are quoted.
func ExportTradesTable(w io.Writer, trades []models.Trade) error {
	rows := Rows(trades)
	if len(rows) == 0 {
		// gocsv writes nothing for an empty slice; keep the header.
		_, err := io.WriteString(w, strings.Join(TableHeader, ",")+"\n")
		return err
	}
	return errors.Wrap(gocsv.Marshal(&rows, w), "writing trade csv")
}

// tradesSheet is the worksheet name used by the XLSX export.
const tradesSheet = "Trades"

// ExportTradesXLSX writes trades to a workbook with a single "Trades" sheet.
func ExportTradesXLSX(w io.Writer, trades []models.Trade) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", tradesSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	if err := f.SetSheetRow(tradesSheet, "A1", &TableHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}

	for i, r := range Rows(trades) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, 0, len(TableHeader))
		for j, v := range r.cells() {
			if j == 4 {
				values = append(values, trades[i].Result)
				continue
			}
			values = append(values, v)
		}
		if err := f.SetSheetRow(tradesSheet, cell, &values); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	f.SetColWidth(tradesSheet, "A", "C", 10)
	f.SetColWidth(tradesSheet, "D", "D", 18)
	f.SetColWidth(tradesSheet, "E", "G", 12)
	f.SetColWidth(tradesSheet, "H", "H", 40)

	return errors.Wrap(f.Write(w), "writing workbook")
}
