package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Ledger Configuration

[storage]
# SQLite file holding the ledger key-value store
db_path = ""

[log]
# Log level: debug, info, warn, error
level = "info"
# Also write a rotating log file
file = true
max_size = 20
max_backups = 5
max_age = 30

[analytics]
# Exit reasons treated as neutral (excluded from win rate)
neutral_exits = ["BE", "breakeven"]
# Default display mode for P&L: currency or percent
display_mode = "currency"

[import]
# Broker statements carry a holding duration; it is bucketed into a
# timeframe label. Holds longer than the last threshold use long_timeframe.
long_timeframe = "1D"

[[import.timeframe_thresholds]]
max_seconds = 300
timeframe = "5min"

[[import.timeframe_thresholds]]
max_seconds = 1800
timeframe = "30min"

[[import.timeframe_thresholds]]
max_seconds = 3600
timeframe = "1H"

[[import.timeframe_thresholds]]
max_seconds = 14400
timeframe = "4H"

[audit]
# Record manual balance corrections and destructive restores
enabled = true
dir = ""
`

// writeTemplateConfig writes the commented default configuration file.
func writeTemplateConfig(configDir, name string) (string, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}
	return path, nil
}
