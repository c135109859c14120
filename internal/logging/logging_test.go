package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLedgerEventHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	LogTrade(logger, "add", "acc", "t1", "EUR/USD", 12.5, 10012.5)
	entry := lastEntry(t, &buf)
	assert.Equal(t, "trade", entry["event"])
	assert.Equal(t, "t1", entry["trade_id"])
	assert.Equal(t, 12.5, entry["result"])

	LogWithdrawal(logger, "create", "acc", "w1", 100, 9900)
	assert.Equal(t, "w1", lastEntry(t, &buf)["withdrawal_id"])

	LogAccount(WithOperation(logger, "restore"), "create", "acc", "Main", 10000)
	entry = lastEntry(t, &buf)
	assert.Equal(t, "restore", entry["operation"])
	assert.Equal(t, "Main", entry["name"])

	LogPersist(logger, "tradelog.accounts", time.Millisecond, errors.New("disk full"))
	entry = lastEntry(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "disk full", entry["error"])
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithAccount(zerolog.New(&buf), "acc-7")

	fromCtx := FromContext(WithLogger(context.Background(), logger))
	fromCtx.Info().Msg("hello")
	assert.Equal(t, "acc-7", lastEntry(t, &buf)["account_id"])

	// A bare context yields a disabled logger.
	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
	assert.Equal(t, "hello", lastEntry(t, &buf)["message"])
}

func TestNewLoggerWithConfigWritesFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := DefaultConfig(filepath.Join(t.TempDir(), "logs"))
	cfg.Console = false
	cfg.Level = "WARN"

	logger := NewLoggerWithConfig(cfg)
	logger.Info().Msg("quiet")
	logger.Warn().Msg("loud")

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "loud")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("chatty"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
}
