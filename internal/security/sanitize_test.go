package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "clean entry", SanitizeText("  clean\x00 entry\x7f "))
	assert.Equal(t, "", SanitizeText("\x01\x02"))
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "EUR/USD", SanitizeLabel(" EUR/USD\n"))
	assert.Equal(t, "London open", SanitizeLabel("London \t  open"))
}

func TestMaskPath(t *testing.T) {
	assert.Equal(t, "~/.config/trade-ledger/ledger.db", MaskPath("/home/ana/.config/trade-ledger/ledger.db", "/home/ana"))
	assert.Equal(t, "/var/lib/ledger.db", MaskPath("/var/lib/ledger.db", "/home/ana"))
	assert.Equal(t, "/var/lib/ledger.db", MaskPath("/var/lib/ledger.db", ""))
}
