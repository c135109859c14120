package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-ledger/internal/config"
	"trade-ledger/internal/models"
	"trade-ledger/internal/transfer"
)

// run executes one command against a fresh App, the way separate
// invocations of the binary share only the database.
func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	app := &App{Config: cfg, Logger: zerolog.Nop()}
	cmd := newRootCmd(app)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		// PersistentPostRunE only runs on success.
		_ = app.Close()
	}
	return buf.String(), err
}

func mustRun(t *testing.T, cfg *config.Config, args ...string) string {
	t.Helper()
	out, err := run(t, cfg, args...)
	require.NoError(t, err, out)
	return out
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return config.Default(t.TempDir())
}

func TestVersion(t *testing.T) {
	out := mustRun(t, testConfig(t), "version", "--json")
	v := decode[map[string]string](t, out)
	assert.Equal(t, Version, v["version"])
}

func TestTradeLifecycle(t *testing.T) {
	cfg := testConfig(t)

	first := decode[models.Trade](t, mustRun(t, cfg, "trade", "add", "--json",
		"-p", "EUR/USD", "-d", "2024-03-01", "-t", "09:30", "--direction", "long", "-r", "125.50", "--exit", "TP"))
	second := decode[models.Trade](t, mustRun(t, cfg, "trade", "add", "--json",
		"-p", "XAU/USD", "-d", "2024-03-02", "--direction", "sell", "-r", "-40", "--exit", "SL"))
	assert.Equal(t, models.DirectionShort, second.Direction)

	_, err := run(t, cfg, "trade", "add", "-d", "2024-03-02", "-r", "5")
	assert.Error(t, err, "pair is required")

	summary := decode[map[string]any](t, mustRun(t, cfg, "stats", "summary", "--json"))
	stats := summary["stats"].(map[string]any)
	assert.Equal(t, 2.0, stats["count"])
	assert.Equal(t, 50.0, stats["win_rate"])
	assert.InDelta(t, 10085.5, summary["balance"], 1e-9)

	order := decode[[]string](t, mustRun(t, cfg, "trade", "move", first.ID, second.ID, "--json"))
	assert.Equal(t, []string{first.ID, second.ID}, order)

	listed := decode[[]models.Trade](t, mustRun(t, cfg, "trade", "list", "--json"))
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID, listed[0].ID)

	edited := decode[models.Trade](t, mustRun(t, cfg, "trade", "edit", second.ID, "-r", "-10", "--json"))
	assert.Equal(t, -10.0, edited.Result)

	mustRun(t, cfg, "trade", "delete", first.ID)
	listed = decode[[]models.Trade](t, mustRun(t, cfg, "trade", "list", "--json"))
	require.Len(t, listed, 1)

	accounts := decode[[]accountView](t, mustRun(t, cfg, "account", "list", "--json"))
	require.Len(t, accounts, 1)
	assert.InDelta(t, 9990.0, accounts[0].Size, 1e-9)

	out := mustRun(t, cfg, "stats", "group", "pair")
	assert.Contains(t, out, "XAU/USD")

	_, err = run(t, cfg, "stats", "group", "colour")
	assert.Error(t, err)
}

func TestAccountsAndWithdrawals(t *testing.T) {
	cfg := testConfig(t)

	created := decode[models.Account](t, mustRun(t, cfg, "account", "create", "Prop", "5,000", "--json"))
	assert.Equal(t, 5000.0, created.Size)
	mustRun(t, cfg, "account", "use", created.ID)

	w := decode[models.Withdrawal](t, mustRun(t, cfg, "account", "withdraw", "250", "--date", "2024-04-01", "--json"))
	assert.Equal(t, 250.0, w.Amount)

	listed := decode[[]models.Withdrawal](t, mustRun(t, cfg, "account", "withdrawals", "--json"))
	require.Len(t, listed, 1)

	mustRun(t, cfg, "account", "withdrawals", "--delete", w.ID)
	accounts := decode[[]accountView](t, mustRun(t, cfg, "account", "list", "--json"))
	require.Len(t, accounts, 2)
	assert.True(t, accounts[1].Active)
	assert.Equal(t, 5000.0, accounts[1].Size)

	mustRun(t, cfg, "account", "edit", created.ID, "--size", "5100")
	data, err := os.ReadFile(filepath.Join(cfg.Audit.Dir, "audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "BALANCE_CORRECTION")

	mustRun(t, cfg, "account", "delete", created.ID)
	_, err = run(t, cfg, "account", "delete", accounts[0].ID)
	assert.Error(t, err, "the last account cannot be deleted")
}

func TestBackupRestore(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.yaml")

	mustRun(t, cfg, "trade", "add", "-p", "EUR/USD", "-d", "2024-03-01", "-r", "10")
	mustRun(t, cfg, "backup", "export", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	snap, err := transfer.DecodeBackup(data, transfer.FormatYAML)
	require.NoError(t, err)
	require.Len(t, snap.Accounts, 1)

	mustRun(t, cfg, "account", "create", "Scratch", "100")

	_, err = run(t, cfg, "backup", "import", path)
	assert.ErrorContains(t, err, "not confirmed")
	assert.Len(t, decode[[]accountView](t, mustRun(t, cfg, "account", "list", "--json")), 2)

	mustRun(t, cfg, "backup", "import", path, "--force")
	accounts := decode[[]accountView](t, mustRun(t, cfg, "account", "list", "--json"))
	require.Len(t, accounts, 1)
	assert.Equal(t, 1, accounts[0].Trades)
}

func TestExportAndBrokerImport(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()

	statement := filepath.Join(dir, "statement.csv")
	require.NoError(t, os.WriteFile(statement, []byte(
		"Symbol,Type,Open Time,Duration,Profit\n"+
			"EURUSD,buy,2024.03.01 09:30,120,15\n"+
			"GBPUSD,sell\n"+
			"USDJPY,sell,2024.03.02 10:00,4000,-5\n"), 0644))

	dry := decode[transfer.ImportReport](t, mustRun(t, cfg, "import", "broker", statement, "--dry-run", "--json"))
	assert.Equal(t, 2, dry.Imported)
	assert.Empty(t, decode[[]models.Trade](t, mustRun(t, cfg, "trade", "list", "--json")))

	report := decode[transfer.ImportReport](t, mustRun(t, cfg, "import", "broker", statement, "--json"))
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 1, report.Skipped)

	csvPath := filepath.Join(dir, "out", "trades.csv")
	mustRun(t, cfg, "export", "csv", csvPath)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(transfer.TableHeader, ","), lines[0])
	assert.Contains(t, lines[1], "USDJPY")

	mustRun(t, cfg, "export", "xlsx", filepath.Join(dir, "trades.xlsx"))
	_, err = os.Stat(filepath.Join(dir, "trades.xlsx"))
	assert.NoError(t, err)
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	output := &Output{writer: &buf}
	table := NewTable(output, "PAIR", "P&L")
	table.AddRow("EUR/USD", "+$1.00")
	table.AddRow("XAU", "\033[31m-$20.00\033[0m")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "PAIR     P&L", lines[0])
	assert.Equal(t, strings.Repeat("-", 16), lines[1])
	assert.Equal(t, 7, visibleLen("\033[31m-$20.00\033[0m"))
}
