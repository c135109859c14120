package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"trade-ledger/internal/analytics"
	"trade-ledger/internal/ledger"
	"trade-ledger/internal/models"
	"trade-ledger/pkg/utils"
)

func addStatsCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Performance analytics for the active account",
	}
	cmd.PersistentFlags().String("display", "", "currency or percent (default: saved mode)")
	cmd.AddCommand(newStatsSummaryCmd(app))
	cmd.AddCommand(newStatsEquityCmd(app))
	cmd.AddCommand(newStatsGroupCmd(app))
	cmd.AddCommand(newStatsCumulativeCmd(app))
	cmd.AddCommand(newStatsDailyCmd(app))
	cmd.AddCommand(newStatsDisplayCmd(app))
	rootCmd.AddCommand(cmd)
}

// summaryView is the JSON shape of stats summary.
type summaryView struct {
	Account           string          `json:"account"`
	Balance           float64         `json:"balance"`
	StartingBalance   float64         `json:"starting_balance"`
	StartingEstimated bool            `json:"starting_estimated,omitempty"`
	Withdrawn         float64         `json:"withdrawn"`
	Stats             analytics.Stats `json:"stats"`
	MaxDrawdown       float64         `json:"max_drawdown"`
	MaxDrawdownPct    float64         `json:"max_drawdown_pct"`
	LongestWinStreak  int             `json:"longest_win_streak"`
	LongestLossStreak int             `json:"longest_loss_streak"`
}

func newStatsSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Win rate, profit factor, expectancy and drawdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			account := l.ActiveAccount()
			start, estimated := ledger.StartingBalance(account)

			view := summaryView{
				Account:           account.Name,
				Balance:           account.Size,
				StartingBalance:   start,
				StartingEstimated: estimated,
				Withdrawn:         account.TotalWithdrawn(),
				Stats:             app.Analytics.Summary(account.Trades),
			}
			view.MaxDrawdown, view.MaxDrawdownPct = analytics.Drawdown(analytics.EquityCurve(account.Trades, start))
			view.LongestWinStreak, view.LongestLossStreak = app.Analytics.Streaks(account.Trades)
			if output.IsJSON() {
				return output.JSON(view)
			}

			mode := displayFor(l, cmd)
			s := view.Stats
			startLabel := utils.FormatCurrency(start)
			if estimated {
				startLabel += output.DimText(" (estimated)")
			}

			output.Bold("%s", account.Name)
			output.Printf("  Balance:        %s\n", utils.FormatCurrency(account.Size))
			output.Printf("  Starting:       %s\n", startLabel)
			output.Printf("  Withdrawn:      %s\n", utils.FormatCurrency(view.Withdrawn))
			output.Println()

			output.Bold("Performance")
			output.Printf("  Trades:         %d (%d won, %d lost, %d breakeven)\n", s.Count, s.Wins, s.Losses, s.Neutral)
			output.Printf("  Total P&L:      %s\n", money(output, mode, s.TotalPnL, start))
			output.Printf("  Win rate:       %s\n", utils.FormatPercent(s.WinRate))
			output.Printf("  Average:        %s\n", money(output, mode, s.AvgPnL, start))
			output.Printf("  Expectancy:     %s\n", money(output, mode, s.Expectancy, start))
			output.Printf("  Profit factor:  %s\n", utils.FormatRatio(s.ProfitFactor))
			output.Printf("  Largest win:    %s\n", money(output, mode, s.LargestWin, start))
			output.Printf("  Largest loss:   %s\n", money(output, mode, s.LargestLoss, start))
			output.Println()

			output.Bold("Risk")
			output.Printf("  Max drawdown:   %s (%s)\n", utils.FormatCurrency(view.MaxDrawdown), utils.FormatPercent(view.MaxDrawdownPct))
			output.Printf("  Win streak:     %d\n", view.LongestWinStreak)
			output.Printf("  Loss streak:    %d\n", view.LongestLossStreak)
			return nil
		},
	}
}

func newStatsEquityCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "equity",
		Short: "Equity curve in chronological order",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			account := l.ActiveAccount()
			start, _ := ledger.StartingBalance(account)
			curve := analytics.EquityCurve(account.Trades, start)
			if output.IsJSON() {
				return output.JSON(curve)
			}

			mode := displayFor(l, cmd)
			table := NewTable(output, "#", "DATE", "BALANCE", "CHANGE")
			for _, p := range curve {
				date := p.Date
				if p.Index == 0 {
					date = "start"
				}
				table.AddRow(fmt.Sprint(p.Index), date, utils.FormatCurrency(p.Balance), money(output, mode, utils.Round2(p.Balance-start), start))
			}
			table.Render()
			return nil
		},
	}
}

func newStatsGroupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "group <dimension>",
		Short: "P&L broken down by a trade attribute",
		Long: fmt.Sprintf(`Sum P&L per category of a trade attribute.

Dimensions: %s`, dimensionList()),
		Example: `  tradelog stats group pair
  tradelog stats group hour`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dim, err := analytics.ParseDimension(args[0])
			if err != nil {
				return err
			}
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			account := l.ActiveAccount()
			buckets := analytics.GroupedPnL(account.Trades, dim)
			if output.IsJSON() {
				return output.JSON(buckets)
			}

			start, _ := ledger.StartingBalance(account)
			mode := displayFor(l, cmd)
			table := NewTable(output, strings.ToUpper(string(dim)), "TRADES", "P&L")
			for _, b := range buckets {
				table.AddRow(b.Key, fmt.Sprint(b.Count), money(output, mode, b.PnL, start))
			}
			table.Render()
			return nil
		},
	}
}

func dimensionList() string {
	names := make([]string, len(analytics.Dimensions))
	for i, d := range analytics.Dimensions {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}

func newStatsCumulativeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cumulative <dimension>",
		Short: "Running P&L per category after each trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dim, err := analytics.ParseDimension(args[0])
			if err != nil {
				return err
			}
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			snaps := analytics.CumulativeByCategory(l.Trades(), dim)
			if output.IsJSON() {
				return output.JSON(snaps)
			}
			if len(snaps) == 0 {
				output.Dim("No trades logged")
				return nil
			}

			// Columns are every category seen by the final snapshot.
			var keys []string
			for k := range snaps[len(snaps)-1].Totals {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			table := NewTable(output, append([]string{"#", "DATE"}, keys...)...)
			for _, s := range snaps {
				row := []string{fmt.Sprint(s.Index), s.Date}
				for _, k := range keys {
					v, ok := s.Totals[k]
					if !ok {
						row = append(row, output.DimText("-"))
						continue
					}
					row = append(row, utils.FormatPnL(v))
				}
				table.AddRow(row...)
			}
			table.Render()
			return nil
		},
	}
}

func newStatsDailyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "P&L and win count per calendar day",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			days := app.Analytics.DailyAggregates(l.Trades())
			if month, _ := cmd.Flags().GetString("month"); month != "" {
				for day := range days {
					if !strings.HasPrefix(day, month) {
						delete(days, day)
					}
				}
			}
			if output.IsJSON() {
				return output.JSON(days)
			}

			dates := make([]string, 0, len(days))
			for d := range days {
				dates = append(dates, d)
			}
			sort.Strings(dates)

			table := NewTable(output, "DATE", "TRADES", "WINS", "P&L")
			for _, d := range dates {
				agg := days[d]
				table.AddRow(d, fmt.Sprint(agg.TradeCount), fmt.Sprint(agg.WinCount), output.FormatPnL(agg.PnL))
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("month", "", "Only show days in this month (YYYY-MM)")
	return cmd
}

func newStatsDisplayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "display <currency|percent>",
		Short: "Save the default P&L display mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := models.DisplayMode(strings.ToLower(args[0]))
			if mode != models.DisplayCurrency && mode != models.DisplayPercent {
				return fmt.Errorf("display mode must be currency or percent")
			}
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			if err := l.SetDisplayMode(cmd.Context(), mode); err != nil {
				return err
			}
			NewOutput(cmd).Success("Display mode: %s", mode)
			return nil
		},
	}
}
