package chart

import "strconv"

// Axis is the fixed value axis of a chart. It never adapts to the data so that portraits of different
// respondents can be compared side by side.
type Axis struct {
	Max   float64
	Step  float64
	Ticks []float64
}

// AxisFor derives the axis from the declared maximum of the presented scale.
func AxisFor(upper float64) Axis {
	axis := Axis{Max: 10, Step: 2} //nolint:mnd // 0..10 scale
	if upper <= 5 {                 //nolint:mnd // 1..5 scale
		axis = Axis{Max: 5, Step: 1} //nolint:mnd // 1..5 scale
	}
	for v := 0.0; v <= axis.Max; v += axis.Step {
		axis.Ticks = append(axis.Ticks, v)
	}
	return axis
}

// Labels formats the ticks as integers.
func (a Axis) Labels() []string {
	labels := make([]string, len(a.Ticks))
	for i, v := range a.Ticks {
		labels[i] = strconv.Itoa(int(v))
	}
	return labels
}
