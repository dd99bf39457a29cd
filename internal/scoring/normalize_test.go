package scoring_test

import (
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNormalizeIsIdempotent(t *testing.T) {
	raw, err := scoring.Raw(paeiInstrument(7), choices("P", "A", "A", "E", "I", "I", "I"))
	require.NoError(t, err)

	once := scoring.Normalize(raw)
	twice := scoring.Normalize(once)
	assert.Equal(t, once, twice)
	assert.InDelta(t, 4.3, once.Values["I"], 1e-9)
	assert.InDelta(t, 1.4, once.Values["P"], 1e-9)
}

func TestNormalizeStaysInRange(t *testing.T) {
	tests := []struct {
		name    string
		in      *bank.Instrument
		answers []scoring.Answer
	}{
		{"PAEI all P", paeiInstrument(5), choices("P", "P", "P", "P", "P")},
		{"DISC all 5", likertInstrument(bank.DISC, []string{"D", "I", "S", "C"},
			[]string{"D", "D", "I", "I", "S", "S", "C", "C"}), values(5, 5, 5, 5, 5, 5, 5, 5)},
		{"DISC all 1", likertInstrument(bank.DISC, []string{"D", "I", "S", "C"},
			[]string{"D", "D", "I", "I", "S", "S", "C", "C"}), values(1, 1, 1, 1, 1, 1, 1, 1)},
		{"HEXACO thirds", likertInstrument(bank.HEXACO, []string{"H", "E"},
			[]string{"H", "H", "H", "E"}), values(1, 1, 2, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := scoring.Raw(tt.in, tt.answers)
			require.NoError(t, err)
			presented := scoring.Normalize(raw)
			lo, hi := presented.Method.Range()
			for code, v := range presented.Values {
				assert.GreaterOrEqual(t, v, lo, code)
				assert.LessOrEqual(t, v, hi, code)
				assert.InDelta(t, v, float64(int(v*10+0.5))/10, 1e-9, "one decimal")
			}
		})
	}
}

func TestMethodRange(t *testing.T) {
	lo, hi := scoring.MethodRescaled.Range()
	assert.InDelta(t, 0.0, lo, 0)
	assert.InDelta(t, 10.0, hi, 0)
	lo, hi = scoring.MethodNative.Range()
	assert.InDelta(t, 1.0, lo, 0)
	assert.InDelta(t, 5.0, hi, 0)
	assert.NotEmpty(t, scoring.MethodNative.Label())
}
