package chart

import (
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/scoring"
	"io"
	"math"
	"strconv"
)

const (
	radarSize   = 900
	radarRadius = 280
)

func drawRadar(w io.Writer, in *bank.Instrument, score scoring.Score, face *truetype.Font) error {
	axis := AxisFor(score.Method.Upper())
	n := len(score.Categories)
	dc := gg.NewContext(radarSize, radarSize)
	cx, cy := float64(radarSize)/2, float64(radarSize)/2+20 //nolint:mnd // room for the title

	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if face != nil {
		dc.SetFontFace(truetype.NewFace(face, &truetype.Options{Size: 22})) //nolint:mnd // title size
	}
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(in.Title, cx, 40, 0.5, 0.5) //nolint:mnd // title row
	if face != nil {
		dc.SetFontFace(truetype.NewFace(face, &truetype.Options{Size: 16})) //nolint:mnd // label size
	}

	point := func(i int, v float64) (float64, float64) {
		angle := 2*math.Pi*float64(i)/float64(n) - math.Pi/2 //nolint:mnd // start at twelve o'clock
		r := radarRadius * v / axis.Max
		return cx + r*math.Cos(angle), cy + r*math.Sin(angle)
	}

	// Grid rings at every tick.
	dc.SetLineWidth(1)
	for _, tick := range axis.Ticks[1:] {
		dc.SetRGB(0.8, 0.8, 0.8)
		for i := range n {
			x, y := point(i, tick)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()
		dc.Stroke()
		x, y := point(0, tick)
		dc.SetRGB(0.4, 0.4, 0.4)
		dc.DrawStringAnchored(strconv.Itoa(int(tick)), x+6, y, 0, 0.5) //nolint:mnd // label offset
	}

	// Spokes and category labels.
	for i, code := range score.Categories {
		x, y := point(i, axis.Max)
		dc.SetRGB(0.8, 0.8, 0.8)
		dc.DrawLine(cx, cy, x, y)
		dc.Stroke()
		lx, ly := point(i, axis.Max*1.15) //nolint:mnd // label ring
		dc.SetRGB(0.1, 0.1, 0.1)
		dc.DrawStringAnchored(in.CategoryName(code), lx, ly, 0.5, 0.5)
	}

	// Score polygon.
	for i, code := range score.Categories {
		x, y := point(i, math.Min(score.Value(code), axis.Max))
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
	dc.SetRGBA(0.17, 0.36, 0.55, 0.35) //nolint:mnd // fill
	dc.FillPreserve()
	dc.SetRGB(0.17, 0.36, 0.55)
	dc.SetLineWidth(3) //nolint:mnd // outline
	dc.Stroke()

	for i, code := range score.Categories {
		x, y := point(i, math.Min(score.Value(code), axis.Max))
		dc.DrawCircle(x, y, 5) //nolint:mnd // marker
		dc.Fill()
	}

	return dc.EncodePNG(w) //nolint:wrapcheck // wrapped by caller
}
