package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-ledger/internal/analytics"
	"trade-ledger/internal/config"
	"trade-ledger/internal/ledger"
	"trade-ledger/internal/logging"
	"trade-ledger/internal/models"
	"trade-ledger/internal/security"
	"trade-ledger/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-16"
)

// App holds the application dependencies. The ledger is opened on first
// use so that commands such as version never touch the database.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Analytics analytics.Engine

	kv     store.KVStore
	audit  *security.AuditLogger
	ledger *ledger.Ledger
}

// Ledger opens the store and loads the ledger if not already done.
func (app *App) Ledger(ctx context.Context) (*ledger.Ledger, error) {
	if app.ledger != nil {
		return app.ledger, nil
	}

	if app.kv == nil {
		kv, err := store.NewSQLiteStore(app.Config.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening ledger database: %w", err)
		}
		app.kv = kv
		app.Logger.Debug().Str("path", app.Config.Storage.DBPath).Msg("SQLite store initialized")
	}

	opts := []ledger.Option{ledger.WithLogger(app.Logger)}
	if app.Config.Audit.Enabled && app.audit == nil {
		cfg := security.DefaultAuditConfig()
		cfg.LogDir = app.Config.Audit.Dir
		audit, err := security.NewAuditLogger(cfg)
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Audit trail unavailable")
		} else {
			app.audit = audit
		}
	}
	if app.audit != nil {
		opts = append(opts, ledger.WithAudit(app.audit))
	}

	ls := store.NewLedgerStore(app.kv, app.Logger).
		WithDisplayDefault(models.DisplayMode(app.Config.Analytics.DisplayMode))
	l, err := ledger.Open(ctx, ls, opts...)
	if err != nil {
		return nil, err
	}
	app.ledger = l
	return l, nil
}

// Close releases the store and audit trail.
func (app *App) Close() error {
	var firstErr error
	if app.kv != nil {
		firstErr = app.kv.Close()
	}
	if err := app.audit.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}
	return newRootCmd(app)
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tradelog",
		Short: "Trade ledger and performance analytics",
		Long: `tradelog keeps a local journal of trades across multiple accounts.

It tracks account balances, cash withdrawals and display ordering, and
computes performance statistics such as win rate, profit factor, equity
curve and P&L breakdowns by pair, setup, weekday or hour.

Use 'tradelog <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-ledger)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addAccountCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addStatsCommands(rootCmd, app)
	addTransferCommands(rootCmd, app)

	return rootCmd
}

// setup loads configuration and builds the logger. A Config already set
// on the App is kept.
func (app *App) setup(cmd *cobra.Command) error {
	if app.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		app.Config = cfg

		logCfg := logging.DefaultConfig(filepath.Dir(cfg.LogFilePath()))
		logCfg.Level = cfg.Log.Level
		logCfg.File = cfg.Log.File
		logCfg.MaxSize = cfg.Log.MaxSize
		logCfg.MaxBackups = cfg.Log.MaxBackups
		logCfg.MaxAge = cfg.Log.MaxAge
		app.Logger = logging.NewLoggerWithConfig(logCfg)
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logging.SetDebugLevel()
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}
	app.Analytics = analytics.New(app.Config.Analytics.NeutralExits)
	cmd.SetContext(logging.WithLogger(cmd.Context(), app.Logger))
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("tradelog v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			NewOutput(cmd).Println(app.Config.Dir)
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	home, _ := os.UserHomeDir()

	output.Bold("Storage")
	output.Printf("  Database:      %s\n", security.MaskPath(cfg.Storage.DBPath, home))
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:         %s\n", cfg.Log.Level)
	output.Printf("  File:          %v\n", cfg.Log.File)
	output.Println()

	output.Bold("Analytics")
	output.Printf("  Neutral exits: %s\n", strings.Join(cfg.Analytics.NeutralExits, ", "))
	output.Printf("  Display mode:  %s\n", cfg.Analytics.DisplayMode)
	output.Println()

	output.Bold("Import")
	for _, th := range cfg.Import.TimeframeThresholds {
		output.Printf("  <= %6.0fs     %s\n", th.MaxSeconds, th.Timeframe)
	}
	output.Printf("  longer         %s\n", cfg.Import.LongTimeframe)
	output.Println()

	output.Bold("Audit")
	output.Printf("  Enabled:       %v\n", cfg.Audit.Enabled)
	output.Printf("  Directory:     %s\n", security.MaskPath(cfg.Audit.Dir, home))
}
