// Package transfer moves ledger data in and out of files: full backups,
// trade tables for spreadsheets and broker statement imports.
package transfer

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"trade-ledger/internal/errors"
	"trade-ledger/internal/models"
	"trade-ledger/internal/store"
)

// BackupVersion is written into every backup document.
const BackupVersion = 2

// Format selects the backup encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath picks the encoding from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// backupDocument is the on-disk shape of a backup.
type backupDocument struct {
	Version         int                               `json:"version" yaml:"version"`
	CreatedAt       time.Time                         `json:"created_at" yaml:"created_at"`
	ActiveAccountID string                            `json:"active_account_id" yaml:"active_account_id"`
	Accounts        []models.Account                  `json:"accounts" yaml:"accounts"`
	Preferences     map[string]models.OrderPreference `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	DisplayMode     models.DisplayMode                `json:"display_mode,omitempty" yaml:"display_mode,omitempty"`
}

func newDocument(s models.LedgerState) backupDocument {
	return backupDocument{
		Version:         BackupVersion,
		CreatedAt:       time.Now().UTC(),
		ActiveAccountID: s.ActiveAccountID,
		Accounts:        s.Accounts,
		Preferences:     s.Preferences,
		DisplayMode:     s.DisplayMode,
	}
}

// ExportBackup serializes the whole ledger as an indented JSON document.
func ExportBackup(s models.LedgerState) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeBackup(&buf, s, FormatJSON); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeBackup writes the ledger to w in the given format.
func EncodeBackup(w io.Writer, s models.LedgerState, format Format) error {
	doc := newDocument(s)
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return errors.Wrap(err, "encoding yaml backup")
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(doc), "encoding json backup")
}

// ImportBackup parses a JSON backup. Both the current document shape and
// the legacy top-level array of accounts are accepted. Legacy withdrawal
// trades are migrated into withdrawal records.
func ImportBackup(data []byte) (models.LedgerState, error) {
	return DecodeBackup(data, FormatJSON)
}

// DecodeBackup parses a backup in the given format.
func DecodeBackup(data []byte, format Format) (models.LedgerState, error) {
	var doc backupDocument
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return models.LedgerState{}, errors.NewFormatError("backup", "empty document", nil)
	}

	switch {
	case format == FormatYAML:
		if err := yaml.Unmarshal(trimmed, &doc); err != nil {
			return models.LedgerState{}, errors.NewFormatError("backup", "invalid yaml", err)
		}
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &doc.Accounts); err != nil {
			return models.LedgerState{}, errors.NewFormatError("backup", "invalid legacy account list", err)
		}
	default:
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return models.LedgerState{}, errors.NewFormatError("backup", "invalid json", err)
		}
	}

	if len(doc.Accounts) == 0 {
		return models.LedgerState{}, errors.NewFormatError("backup", "no accounts", nil)
	}
	if doc.Accounts[0].ID == "" {
		return models.LedgerState{}, errors.NewFormatError("backup", "first account has no id", nil)
	}

	s := models.LedgerState{
		Accounts:        doc.Accounts,
		ActiveAccountID: doc.ActiveAccountID,
		Preferences:     doc.Preferences,
		DisplayMode:     models.ParseDisplayMode(string(doc.DisplayMode)),
	}
	store.Normalize(&s, zerolog.Nop())
	if s.Account(s.ActiveAccountID) == nil {
		s.ActiveAccountID = s.Accounts[0].ID
	}
	if s.Preferences == nil {
		s.Preferences = make(map[string]models.OrderPreference)
	}
	return s, nil
}
