// Package security provides the ledger's audit trail and input sanitizing.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"trade-ledger/pkg/id"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// Account events
	AuditAccountCreated    AuditEventType = "ACCOUNT_CREATED"
	AuditAccountDeleted    AuditEventType = "ACCOUNT_DELETED"
	AuditAccountRenamed    AuditEventType = "ACCOUNT_RENAMED"
	AuditBalanceCorrection AuditEventType = "BALANCE_CORRECTION"

	// Cash events
	AuditWithdrawal        AuditEventType = "WITHDRAWAL"
	AuditWithdrawalDeleted AuditEventType = "WITHDRAWAL_DELETED"

	// Bulk events
	AuditLedgerRestored AuditEventType = "LEDGER_RESTORED"
	AuditTradesImported AuditEventType = "TRADES_IMPORTED"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType AuditEventType         `json:"event_type"`
	AccountID string                 `json:"account_id,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Before    *float64               `json:"before,omitempty"`
	After     *float64               `json:"after,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// AuditLogger appends balance-affecting events as JSON lines.
type AuditLogger struct {
	writer    io.WriteCloser
	mu        sync.Mutex
	sessionID string
	now       func() time.Time
}

// AuditConfig holds audit logger configuration.
type AuditConfig struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultAuditConfig returns the default audit configuration.
func DefaultAuditConfig() AuditConfig {
	home, _ := os.UserHomeDir()
	return AuditConfig{
		LogDir:     filepath.Join(home, ".config", "trade-ledger", "audit"),
		MaxSize:    10,
		MaxBackups: 10,
		MaxAge:     365,
		Compress:   true,
	}
}

// NewAuditLogger creates an audit logger writing to a rotating file in cfg.LogDir.
func NewAuditLogger(cfg AuditConfig) (*AuditLogger, error) {
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	return NewAuditLoggerWriter(writer), nil
}

// NewAuditLoggerWriter creates an audit logger on an arbitrary writer.
func NewAuditLoggerWriter(w io.WriteCloser) *AuditLogger {
	return &AuditLogger{
		writer:    w,
		sessionID: id.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Log writes one audit event. A nil logger discards the event.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if al == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	al.mu.Lock()
	defer al.mu.Unlock()

	event.Timestamp = al.now()
	event.SessionID = al.sessionID

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}
	if _, err := al.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// LogBalanceCorrection records a manual override of an account's size.
func (al *AuditLogger) LogBalanceCorrection(ctx context.Context, accountID string, before, after float64) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditBalanceCorrection,
		AccountID: accountID,
		Action:    "override",
		Before:    &before,
		After:     &after,
		Details:   map[string]interface{}{"delta": after - before},
	})
}

// LogAccount records an account lifecycle event.
func (al *AuditLogger) LogAccount(ctx context.Context, eventType AuditEventType, accountID, name string, size float64) error {
	return al.Log(ctx, AuditEvent{
		EventType: eventType,
		AccountID: accountID,
		After:     &size,
		Details:   map[string]interface{}{"name": name},
	})
}

// LogWithdrawal records a withdrawal or its reversal.
func (al *AuditLogger) LogWithdrawal(ctx context.Context, eventType AuditEventType, accountID, withdrawalID string, amount, before, after float64) error {
	return al.Log(ctx, AuditEvent{
		EventType: eventType,
		AccountID: accountID,
		Before:    &before,
		After:     &after,
		Details: map[string]interface{}{
			"withdrawal_id": withdrawalID,
			"amount":        amount,
		},
	})
}

// LogRestore records a whole-ledger replacement from a backup.
func (al *AuditLogger) LogRestore(ctx context.Context, accounts, trades int) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditLedgerRestored,
		Action:    "replace",
		Details: map[string]interface{}{
			"accounts": accounts,
			"trades":   trades,
		},
	})
}

// LogImport records a broker statement import.
func (al *AuditLogger) LogImport(ctx context.Context, accountID, source string, imported, skipped int) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditTradesImported,
		AccountID: accountID,
		Details: map[string]interface{}{
			"source":   source,
			"imported": imported,
			"skipped":  skipped,
		},
	})
}

// Close closes the audit logger.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	return al.writer.Close()
}
