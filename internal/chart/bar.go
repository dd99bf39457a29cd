package chart

import (
	"github.com/golang/freetype/truetype"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/scoring"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"io"
)

const (
	barWidth  = 900
	barHeight = 520
)

var barColors = []drawing.Color{ //nolint:gochecknoglobals // palette
	{R: 0x2b, G: 0x5d, B: 0x8c, A: 0xff},
	{R: 0xd9, G: 0x7b, B: 0x29, A: 0xff},
	{R: 0x3f, G: 0x8f, B: 0x4f, A: 0xff},
	{R: 0xb0, G: 0x3a, B: 0x48, A: 0xff},
}

func drawBar(w io.Writer, in *bank.Instrument, score scoring.Score, face *truetype.Font) error {
	axis := AxisFor(score.Method.Upper())
	ticks := make([]gochart.Tick, len(axis.Ticks))
	for i, label := range axis.Labels() {
		ticks[i] = gochart.Tick{Value: axis.Ticks[i], Label: label}
	}

	bars := make([]gochart.Value, len(score.Categories))
	for i, code := range score.Categories {
		bars[i] = gochart.Value{
			Label: in.CategoryName(code),
			Value: score.Value(code),
			Style: gochart.Style{
				FillColor:   barColors[i%len(barColors)],
				StrokeColor: barColors[i%len(barColors)],
				StrokeWidth: 1,
			},
		}
	}

	graph := gochart.BarChart{
		Title:      in.Title,
		Font:       face,
		Width:      barWidth,
		Height:     barHeight,
		BarWidth:   120, //nolint:mnd // four columns
		BarSpacing: 60,  //nolint:mnd // four columns
		Background: gochart.Style{Padding: gochart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20}},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: axis.Max},
			Ticks: ticks,
		},
		Bars: bars,
	}
	return graph.Render(gochart.PNG, w) //nolint:wrapcheck // wrapped by caller
}
