package analytics

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"trade-ledger/internal/models"
)

func TestEquityCurve(t *testing.T) {
	trades := []models.Trade{
		{ID: "b", Date: "2024-01-02", Result: -30},
		{ID: "a", Date: "2024-01-01", Result: 100},
		{ID: "c", Date: "2024-01-03", Result: 10},
	}
	curve := EquityCurve(trades, 1000)

	assert.Equal(t, []EquityPoint{
		{Index: 0, Balance: 1000},
		{Index: 1, Date: "2024-01-01", Balance: 1100},
		{Index: 2, Date: "2024-01-02", Balance: 1070},
		{Index: 3, Date: "2024-01-03", Balance: 1080},
	}, curve)

	abs, pct := Drawdown(curve)
	assert.InDelta(t, 30.0, abs, 1e-9)
	assert.InDelta(t, 30.0/1100*100, pct, 1e-9)
}

func TestEquityCurveEmpty(t *testing.T) {
	curve := EquityCurve(nil, 500)
	assert.Equal(t, []EquityPoint{{Index: 0, Balance: 500}}, curve)

	abs, pct := Drawdown(nil)
	assert.Zero(t, abs)
	assert.Zero(t, pct)
}

// The curve depends only on the trades, never on the order they arrive in.
func TestProperty_EquityCurveIgnoresInputOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("shuffled input yields the same curve", prop.ForAll(
		func(results []float64, seed int64) bool {
			trades := make([]models.Trade, len(results))
			for i, r := range results {
				trades[i] = models.Trade{
					ID:     string(rune('A' + i%26)) + string(rune('A'+i/26)),
					Date:   "2024-02-1" + string(rune('0'+i%10)),
					Result: r,
				}
			}
			shuffled := append([]models.Trade(nil), trades...)
			rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})

			a := EquityCurve(trades, 1000)
			b := EquityCurve(shuffled, 1000)
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(-500, 500)),
		gen.Int64(),
	))

	properties.Property("last point equals start plus total", prop.ForAll(
		func(results []float64) bool {
			trades := make([]models.Trade, len(results))
			total := 0.0
			for i, r := range results {
				trades[i] = models.Trade{ID: string(rune('A' + i%26)), Date: "2024-02-01", Result: r}
				total += r
			}
			curve := EquityCurve(trades, 250)
			diff := curve[len(curve)-1].Balance - (250 + total)
			return diff < 1e-6 && diff > -1e-6
		},
		gen.SliceOf(gen.Float64Range(-500, 500)),
	))

	properties.TestingRun(t)
}
