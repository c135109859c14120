package security

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func readEvents(t *testing.T, data []byte) []AuditEvent {
	t.Helper()
	var events []AuditEvent
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var e AuditEvent
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, sc.Err())
	return events
}

func TestAuditLoggerWritesJSONLines(t *testing.T) {
	buf := &bufferCloser{}
	al := NewAuditLoggerWriter(buf)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	al.now = func() time.Time { return fixed }

	ctx := context.Background()
	require.NoError(t, al.LogBalanceCorrection(ctx, "acc-1", 1000, 1250))
	require.NoError(t, al.LogWithdrawal(ctx, AuditWithdrawal, "acc-1", "w-1", 50, 1250, 1200))
	require.NoError(t, al.LogImport(ctx, "acc-1", "statement.csv", 8, 2))

	events := readEvents(t, buf.Bytes())
	require.Len(t, events, 3)

	bc := events[0]
	assert.Equal(t, AuditBalanceCorrection, bc.EventType)
	assert.Equal(t, "acc-1", bc.AccountID)
	require.NotNil(t, bc.Before)
	require.NotNil(t, bc.After)
	assert.Equal(t, 1000.0, *bc.Before)
	assert.Equal(t, 1250.0, *bc.After)
	assert.Equal(t, 250.0, bc.Details["delta"])
	assert.True(t, bc.Timestamp.Equal(fixed))
	assert.NotEmpty(t, bc.SessionID)

	assert.Equal(t, bc.SessionID, events[1].SessionID)
	assert.Equal(t, "w-1", events[1].Details["withdrawal_id"])
	assert.Equal(t, AuditTradesImported, events[2].EventType)
	assert.Equal(t, 8.0, events[2].Details["imported"])

	require.NoError(t, al.Close())
	assert.True(t, buf.closed)
}

func TestAuditLoggerNilIsNoop(t *testing.T) {
	var al *AuditLogger
	assert.NoError(t, al.LogRestore(context.Background(), 2, 10))
	assert.NoError(t, al.Close())
}

func TestAuditLoggerCanceledContext(t *testing.T) {
	buf := &bufferCloser{}
	al := NewAuditLoggerWriter(buf)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := al.LogAccount(ctx, AuditAccountCreated, "acc", "Main", 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestNewAuditLoggerCreatesFile(t *testing.T) {
	cfg := DefaultAuditConfig()
	cfg.LogDir = filepath.Join(t.TempDir(), "audit")

	al, err := NewAuditLogger(cfg)
	require.NoError(t, err)
	require.NoError(t, al.LogRestore(context.Background(), 1, 3))
	require.NoError(t, al.Close())

	data, err := os.ReadFile(filepath.Join(cfg.LogDir, "audit.log"))
	require.NoError(t, err)
	events := readEvents(t, data)
	require.Len(t, events, 1)
	assert.Equal(t, AuditLedgerRestored, events[0].EventType)
}
