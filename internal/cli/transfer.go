package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"trade-ledger/internal/logging"
	"trade-ledger/internal/models"
	"trade-ledger/internal/ordering"
	"trade-ledger/internal/transfer"
	"trade-ledger/pkg/utils"
)

func addTransferCommands(rootCmd *cobra.Command, app *App) {
	backup := &cobra.Command{
		Use:   "backup",
		Short: "Export or restore the whole ledger",
	}
	backup.AddCommand(newBackupExportCmd(app))
	backup.AddCommand(newBackupImportCmd(app))
	rootCmd.AddCommand(backup)

	export := &cobra.Command{
		Use:   "export",
		Short: "Export the active account's trades as a table",
	}
	export.AddCommand(newExportTableCmd(app, "csv", transfer.ExportTradesTable))
	export.AddCommand(newExportTableCmd(app, "xlsx", transfer.ExportTradesXLSX))
	rootCmd.AddCommand(export)

	imp := &cobra.Command{
		Use:   "import",
		Short: "Import trades from external statements",
	}
	imp.AddCommand(newImportBrokerCmd(app))
	rootCmd.AddCommand(imp)
}

// createFile opens path for writing, or returns stdout for "-".
func createFile(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func newBackupExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every account, trade and preference to a backup file",
		Long: `Write a full backup. Files ending in .yaml or .yml are written as YAML,
anything else as JSON. Use "-" to write JSON to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			snap := l.Snapshot()

			f, err := createFile(cmd, args[0])
			if err != nil {
				return err
			}
			if err := transfer.EncodeBackup(f, snap, transfer.FormatForPath(args[0])); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			if args[0] != "-" {
				output.Success("Backed up %d accounts to %s", len(snap.Accounts), args[0])
			}
			return nil
		},
	}
}

func newBackupImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the whole ledger with a backup",
		Long: `Replace every account, trade and preference with the contents of a
backup file. This discards the current ledger; pass --force to confirm.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			snap, err := transfer.DecodeBackup(data, transfer.FormatForPath(args[0]))
			if err != nil {
				return err
			}

			trades := 0
			for _, a := range snap.Accounts {
				trades += len(a.Trades)
			}
			if force, _ := cmd.Flags().GetBool("force"); !force {
				output.Warning("Restoring %s would replace the current ledger with %d accounts and %d trades.",
					args[0], len(snap.Accounts), trades)
				output.Dim("Re-run with --force to confirm.")
				return fmt.Errorf("restore not confirmed")
			}

			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			if err := l.Restore(cmd.Context(), snap); err != nil {
				return err
			}
			output.Success("Restored %d accounts and %d trades", len(snap.Accounts), trades)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Confirm replacing the current ledger")
	return cmd
}

func newExportTableCmd(app *App, ext string, write func(io.Writer, []models.Trade) error) *cobra.Command {
	return &cobra.Command{
		Use:   ext + " <file>",
		Short: fmt.Sprintf("Export trades to %s in display order", strings.ToUpper(ext)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			trades := l.SortedTrades()

			f, err := createFile(cmd, args[0])
			if err != nil {
				return err
			}
			if err := write(f, trades); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			if args[0] != "-" {
				output.Success("Exported %d trades to %s", len(trades), args[0])
			}
			return nil
		},
	}
}

func newImportBrokerCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "broker <file>",
		Short: "Import a broker statement CSV",
		Long: `Import closed positions from a broker statement. Columns are positional:
symbol, type (buy/sell), open time, duration in seconds, profit and an
optional comment. A header row is detected and skipped. Rows that cannot
be read are skipped and reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			accountID := accountFlag(cmd, l)

			opts := transfer.ImportOptions{
				LongTimeframe: app.Config.Import.LongTimeframe,
				Logger:        logging.WithOperation(logging.FromContext(cmd.Context()), "import_broker"),
			}
			for _, th := range app.Config.Import.TimeframeThresholds {
				opts.Thresholds = append(opts.Thresholds, transfer.Threshold{MaxSeconds: th.MaxSeconds, Timeframe: th.Timeframe})
			}
			if sep, _ := cmd.Flags().GetString("separator"); sep != "" {
				opts.Comma = []rune(sep)[0]
			}

			report, err := transfer.ImportTradesTable(f, accountID, opts)
			if err != nil {
				return err
			}
			if dry, _ := cmd.Flags().GetBool("dry-run"); !dry && len(report.Trades) > 0 {
				n, err := l.ImportTrades(cmd.Context(), accountID, filepath.Base(args[0]), report.Trades, report.Skipped)
				if err != nil {
					return err
				}
				report.Accepted(n)
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			output.Success("Imported %d trades, skipped %d", report.Imported, report.Skipped)
			for _, w := range report.Warnings {
				output.Warning("  %s", w)
			}
			if report.Imported > 0 {
				renderTrades(output, ordering.ReverseChronological(report.Trades), models.DisplayCurrency, models.Account{})
			}
			a, _ := l.Account(accountID)
			output.Dim("Balance: %s", utils.FormatCurrency(a.Size))
			return nil
		},
	}
	cmd.Flags().String("account", "", "Account id (default: active account)")
	cmd.Flags().String("separator", "", "Field separator (default: comma)")
	cmd.Flags().Bool("dry-run", false, "Parse and report without saving")
	return cmd
}
