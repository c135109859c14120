package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trade-ledger/internal/analytics"
	"trade-ledger/internal/ledger"
	"trade-ledger/internal/models"
	"trade-ledger/internal/ordering"
	"trade-ledger/pkg/utils"
)

func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "trade",
		Aliases: []string{"trades"},
		Short:   "Log and arrange trades in the active account",
	}
	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeEditCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))
	cmd.AddCommand(newTradeMoveCmd(app))
	cmd.AddCommand(newTradeResetOrderCmd(app))
	cmd.AddCommand(newTradeSortCmd(app))
	rootCmd.AddCommand(cmd)
}

// tradeFields registers the editable trade flags on cmd.
func tradeFields(cmd *cobra.Command) {
	cmd.Flags().StringP("date", "d", "", "Trade date YYYY-MM-DD")
	cmd.Flags().StringP("time", "t", "", "Entry time HH:MM")
	cmd.Flags().String("direction", "", "Long or Short (Buy/Sell accepted)")
	cmd.Flags().StringP("pair", "p", "", "Instrument, e.g. EUR/USD")
	cmd.Flags().String("timeframe", "", "Chart timeframe, e.g. 15m")
	cmd.Flags().String("setup", "", "Entry strategy")
	cmd.Flags().String("exit", "", "Exit reason, e.g. TP, SL, BE")
	cmd.Flags().StringP("result", "r", "", "Realized P&L")
	cmd.Flags().String("comment", "", "Free-form note")
	cmd.Flags().String("screenshot", "", "Screenshot path or URL")
}

func newTradeAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a closed trade",
		Example: `  tradelog trade add -p EUR/USD -d 2024-03-01 -t 09:30 --direction long -r 125.50 --setup Breakout --exit TP
  tradelog trade add -p XAU/USD -d 2024-03-02 --direction sell -r -40 --exit SL`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			get := func(name string) string {
				v, _ := cmd.Flags().GetString(name)
				return v
			}
			in := models.TradeInput{
				Date:       get("date"),
				Time:       get("time"),
				Direction:  get("direction"),
				Pair:       get("pair"),
				Timeframe:  get("timeframe"),
				Setup:      get("setup"),
				Exit:       get("exit"),
				Result:     get("result"),
				Comment:    get("comment"),
				Screenshot: get("screenshot"),
			}

			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			t, err := l.AddTrade(cmd.Context(), in)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("Logged %s %s %s (%s)", t.Direction, t.Pair, output.FormatPnL(t.Result), t.ID)
			output.Dim("Balance: %s", utils.FormatCurrency(l.ActiveAccount().Size))
			return nil
		},
	}
	tradeFields(cmd)
	return cmd
}

func newTradeListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trades in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}

			trades := l.SortedTrades()
			if sortFlag, _ := cmd.Flags().GetString("sort"); sortFlag != "" {
				mode, err := ordering.ParseSortMode(sortFlag)
				if err != nil {
					return err
				}
				trades = ordering.Apply(mode, trades, l.ManualOrder())
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(trades) > limit {
				trades = trades[:limit]
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}
			account := l.ActiveAccount()
			output.Bold("%s  %s  (sort: %s)", account.Name, utils.FormatCurrency(account.Size), l.SortMode())
			if len(trades) == 0 {
				output.Dim("No trades logged")
				return nil
			}
			renderTrades(output, trades, displayFor(l, cmd), account)
			return nil
		},
	}
	cmd.Flags().String("sort", "", "Override the sort mode for this listing")
	cmd.Flags().IntP("limit", "n", 0, "Show at most n trades")
	cmd.Flags().String("display", "", "currency or percent (default: saved mode)")
	return cmd
}

// displayFor resolves --display against the ledger's saved mode.
func displayFor(l *ledger.Ledger, cmd *cobra.Command) models.DisplayMode {
	if v, _ := cmd.Flags().GetString("display"); v != "" {
		return models.ParseDisplayMode(v)
	}
	return l.DisplayMode()
}

// money renders v per the display mode, relative to base in percent mode.
func money(output *Output, mode models.DisplayMode, v, base float64) string {
	if mode == models.DisplayPercent {
		return output.FormatPercent(analytics.PercentOf(v, base))
	}
	return output.FormatPnL(v)
}

func renderTrades(output *Output, trades []models.Trade, mode models.DisplayMode, account models.Account) {
	base, _ := ledger.StartingBalance(account)
	table := NewTable(output, "ID", "DATE", "TIME", "DIR", "PAIR", "TF", "SETUP", "EXIT", "RESULT", "COMMENT")
	for _, t := range trades {
		table.AddRow(t.ID, t.Date, t.Time, string(t.Direction), t.Pair, t.Timeframe, t.Setup, t.Exit,
			money(output, mode, t.Result, base), utils.TruncateString(t.Comment, 30))
	}
	table.Render()
}

func newTradeEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edit <trade-id>",
		Short:   "Edit a trade; only the given flags change",
		Example: `  tradelog trade edit 01J9Z... --result 80 --exit TP`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			var patch models.TradePatch
			str := func(name string) *string {
				if !cmd.Flags().Changed(name) {
					return nil
				}
				v, _ := cmd.Flags().GetString(name)
				return &v
			}
			patch.Date = str("date")
			patch.Time = str("time")
			patch.Direction = str("direction")
			patch.Pair = str("pair")
			patch.Timeframe = str("timeframe")
			patch.Setup = str("setup")
			patch.Exit = str("exit")
			patch.Comment = str("comment")
			patch.Screenshot = str("screenshot")
			if raw := str("result"); raw != nil {
				v, err := utils.ParseAmount(*raw)
				if err != nil {
					return fmt.Errorf("invalid result: %w", err)
				}
				patch.Result = &v
			}

			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			t, err := l.EditTrade(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}
			output.Success("Updated %s %s %s", t.ID, t.Pair, output.FormatPnL(t.Result))
			output.Dim("Balance: %s", utils.FormatCurrency(l.ActiveAccount().Size))
			return nil
		},
	}
	tradeFields(cmd)
	return cmd
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trade-id>",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := l.Trade(args[0]); err != nil {
				output.Warning("No trade %s in the active account", args[0])
				return nil
			}
			if err := l.DeleteTrade(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.Success("Deleted trade %s", args[0])
			output.Dim("Balance: %s", utils.FormatCurrency(l.ActiveAccount().Size))
			return nil
		},
	}
}

func newTradeMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <trade-id> [before-trade-id]",
		Short: "Place a trade before another in the manual order",
		Long: `Place a trade immediately before another one in the manual display order
and switch the account to manual sorting. Without a second id the trade
moves to the end.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			before := ""
			if len(args) == 2 {
				before = args[1]
			}
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			order, err := l.MoveTrade(cmd.Context(), args[0], before)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(order)
			}
			output.Success("Moved %s; sort mode is now manual", args[0])
			return nil
		},
	}
}

func newTradeResetOrderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-order",
		Short: "Discard the manual display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			if err := l.ResetOrder(cmd.Context()); err != nil {
				return err
			}
			NewOutput(cmd).Success("Manual order cleared")
			return nil
		},
	}
}

func newTradeSortCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sort <mode>",
		Short: "Set the display sort mode",
		Long: `Set how trades are listed for the active account.

Modes: date-asc, date-desc, result-asc, result-desc, exit:<reason>, manual`,
		Example: `  tradelog trade sort result-desc
  tradelog trade sort exit:TP`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			if err := l.SetSortMode(cmd.Context(), args[0]); err != nil {
				return err
			}
			NewOutput(cmd).Success("Sort mode: %s", l.SortMode())
			return nil
		},
	}
}
