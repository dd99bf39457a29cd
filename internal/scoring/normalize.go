package scoring

import (
	"github.com/myrjola/portrait/internal/bank"
	"math"
)

// Method names the scale a Score is expressed on.
type Method string

const (
	// MethodRaw marks scores straight from the scoring engine.
	MethodRaw Method = "raw"
	// MethodRescaled maps [0, max] onto [0, 10] for instruments without a common readable scale.
	MethodRescaled Method = "rescaled_0_10"
	// MethodNative keeps the 1..5 agreement scale.
	MethodNative Method = "native_1_5"
)

const presentationMax = 10

// Range returns the closed interval presented values of the method lie in.
func (m Method) Range() (float64, float64) {
	switch m {
	case MethodRescaled:
		return 0, presentationMax
	case MethodNative:
		return 1, bank.LikertMax
	case MethodRaw:
	}
	return 0, math.Inf(1)
}

// Upper is the declared maximum of the scale, used for chart axes.
func (m Method) Upper() float64 {
	_, hi := m.Range()
	return hi
}

// Label is the legend printed next to the score table.
func (m Method) Label() string {
	switch m {
	case MethodRescaled:
		return "шкала 0–10, пересчитано из исходных баллов"
	case MethodNative:
		return "шкала 1–5, исходная шкала опросника"
	case MethodRaw:
	}
	return "исходные баллы"
}

// policy returns the presentation method of each instrument.
func policy(id bank.InstrumentID) Method {
	switch id {
	case bank.PAEI, bank.DISC:
		return MethodRescaled
	case bank.HEXACO, bank.SOFT:
		return MethodNative
	}
	return MethodNative
}

// Normalize converts a raw score into its presentation scale. Values are rounded to one decimal.
//
// Scores that are already normalized are returned unchanged.
func Normalize(s Score) Score {
	if s.Method != MethodRaw {
		return s
	}
	method := policy(s.Instrument)
	out := Score{
		Instrument: s.Instrument,
		Method:     method,
		Categories: append([]string(nil), s.Categories...),
		Values:     make(map[string]float64, len(s.Values)),
		Max:        method.Upper(),
	}
	lo, hi := method.Range()
	for code, v := range s.Values {
		if method == MethodRescaled && s.Max > 0 {
			v = v / s.Max * presentationMax
		}
		out.Values[code] = clamp(round1(v), lo, hi)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10 //nolint:mnd // one decimal
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
