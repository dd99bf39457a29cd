// Package chart draws the score of an instrument as a PNG: a bar chart for PAEI and DISC, a radar
// chart for HEXACO and SOFT.
package chart

import (
	"bytes"
	"context"
	"fmt"
	"github.com/golang/freetype/truetype"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/scoring"
	"golang.org/x/sync/errgroup"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Kind string

const (
	Bar   Kind = "bar"
	Radar Kind = "radar"
)

// KindFor returns the chart layout of the instrument.
func KindFor(id bank.InstrumentID) Kind {
	if id == bank.PAEI || id == bank.DISC {
		return Bar
	}
	return Radar
}

// FileName is the deterministic file name of the chart within a scratch directory.
func FileName(id bank.InstrumentID) string {
	return fmt.Sprintf("%s_%s.png", id, KindFor(id))
}

type drawFunc func(w io.Writer, in *bank.Instrument, score scoring.Score, face *truetype.Font) error

// Renderer writes chart images. It is safe for concurrent use.
type Renderer struct {
	logger  *slog.Logger
	face    *truetype.Font
	timeout time.Duration
	draw    map[Kind]drawFunc
}

// NewRenderer creates a Renderer. A nil face falls back to the drawing libraries' built-in fonts, which
// lack Cyrillic glyphs.
func NewRenderer(logger *slog.Logger, face *truetype.Font, timeout time.Duration) *Renderer {
	return &Renderer{
		logger:  logger,
		face:    face,
		timeout: timeout,
		draw:    map[Kind]drawFunc{Bar: drawBar, Radar: drawRadar},
	}
}

// Render writes the chart of one instrument into dir and returns the file path.
func (r *Renderer) Render(ctx context.Context, dir string, in *bank.Instrument, score scoring.Score) (string, error) {
	if len(score.Categories) == 0 {
		return "", errors.Wrap(errors.ErrChartRenderFailed, "no categories", slog.String("instrument", string(in.ID)))
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	path := filepath.Join(dir, FileName(in.ID))
	draw := r.draw[KindFor(in.ID)]

	// A drawing abandoned on timeout only ever touches memory, so dir is left alone once Render returns.
	done := make(chan drawn, 1)
	go func() {
		done <- r.paint(in, score, draw)
	}()

	var img drawn
	select {
	case img = <-done:
	case <-ctx.Done():
		return "", errors.Wrap(errors.Join(errors.ErrChartRenderFailed, ctx.Err()), "render chart",
			slog.String("instrument", string(in.ID)))
	}
	if img.err == nil {
		img.err = ctx.Err()
	}
	if img.err != nil {
		return "", errors.Wrap(errors.Join(errors.ErrChartRenderFailed, img.err), "render chart",
			slog.String("instrument", string(in.ID)))
	}
	if err := os.WriteFile(path, img.png, 0o600); err != nil { //nolint:mnd // scratch file
		return "", errors.Wrap(errors.Join(errors.ErrChartRenderFailed, err), "write chart file",
			slog.String("path", path))
	}
	return path, nil
}

type drawn struct {
	png []byte
	err error
}

func (r *Renderer) paint(in *bank.Instrument, score scoring.Score, draw drawFunc) (img drawn) {
	defer func() {
		if p := recover(); p != nil {
			img = drawn{err: fmt.Errorf("chart panic: %v", p)}
		}
	}()
	var buf bytes.Buffer
	if err := draw(&buf, in, score, r.face); err != nil {
		return drawn{err: err}
	}
	return drawn{png: buf.Bytes()}
}

// Input pairs an instrument with its presented score.
type Input struct {
	Instrument *bank.Instrument
	Score      scoring.Score
}

// RenderAll draws every chart concurrently. Failures are logged and leave the instrument out of the
// returned map so that the caller can substitute a textual stub.
func (r *Renderer) RenderAll(ctx context.Context, dir string, inputs []Input) map[bank.InstrumentID]string {
	var (
		mu    sync.Mutex
		paths = make(map[bank.InstrumentID]string, len(inputs))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, input := range inputs {
		g.Go(func() error {
			path, err := r.Render(gctx, dir, input.Instrument, input.Score)
			if err != nil {
				r.logger.LogAttrs(gctx, slog.LevelWarn, "chart unavailable", errors.SlogError(err))
				return nil
			}
			mu.Lock()
			paths[input.Instrument.ID] = path
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return paths
}
