// Package ai writes the prose interpretation of each instrument with a chat completion model.
//
// The model is advisory. Whenever it fails or runs out of time a deterministic fallback text built from
// the scores takes its place, so a report can always be produced.
package ai

import (
	"context"
	"fmt"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/scoring"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type Interpreter struct {
	logger    *slog.Logger
	completer Completer
	prompts   map[bank.InstrumentID]prompt
	timeout   time.Duration
}

// NewInterpreter loads the prompts of every instrument from dataDir. A nil completer disables the model
// and every interpretation is the fallback text. timeout bounds InterpretAll as a whole.
func NewInterpreter(logger *slog.Logger, dataDir string, completer Completer, timeout time.Duration) (*Interpreter, error) {
	prompts := make(map[bank.InstrumentID]prompt, len(bank.DialogOrder))
	for _, id := range bank.DialogOrder {
		p, err := loadPrompt(dataDir, id)
		if err != nil {
			return nil, err
		}
		prompts[id] = p
	}
	return &Interpreter{
		logger:    logger,
		completer: completer,
		prompts:   prompts,
		timeout:   timeout,
	}, nil
}

// Interpret asks the model for the prose of one instrument. Errors wrap errors.ErrLLMUnavailable.
//
// The limiter, when given, throttles the calls of a single session.
func (i *Interpreter) Interpret(
	ctx context.Context,
	in *bank.Instrument,
	score scoring.Score,
	dc DialogContext,
	limiter *rate.Limiter,
) (string, error) {
	attr := slog.String("instrument", string(in.ID))
	if i.completer == nil {
		return "", errors.Wrap(errors.ErrLLMUnavailable, "model disabled", attr)
	}
	p, ok := i.prompts[in.ID]
	if !ok {
		return "", errors.Wrap(errors.ErrLLMUnavailable, "no prompt", attr)
	}
	user, err := p.render(promptData(in, score, dc))
	if err != nil {
		return "", errors.Wrap(errors.Join(errors.ErrLLMUnavailable, err), "render prompt", attr)
	}
	if limiter != nil {
		if err = limiter.Wait(ctx); err != nil {
			return "", errors.Wrap(errors.Join(errors.ErrLLMUnavailable, err), "rate limit", attr)
		}
	}
	start := time.Now()
	text, err := i.completer.Complete(ctx, p.system, user)
	if err != nil {
		return "", errors.Wrap(errors.Join(errors.ErrLLMUnavailable, err), "interpret", attr)
	}
	i.logger.LogAttrs(ctx, slog.LevelDebug, "interpretation received", attr,
		slog.Duration("duration", time.Since(start)), slog.Int("length", len(text)))
	return text, nil
}

// Fallback is the deterministic text used in place of the model's prose.
func Fallback(in *bank.Instrument, score scoring.Score) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n", in.Title)
	b.WriteString("Автоматическая интерпретация сейчас недоступна. Ниже приведены ваши результаты ")
	fmt.Fprintf(&b, "(%s).\n", score.Method.Label())
	for _, code := range score.Categories {
		fmt.Fprintf(&b, "- **%s**: %s\n", in.CategoryName(code), FormatValue(score.Value(code)))
	}
	fmt.Fprintf(&b, "Наиболее выражена категория **%s**. ", in.CategoryName(score.Dominant()))
	b.WriteString("Чем выше балл, тем сильнее проявляется соответствующая склонность. ")
	b.WriteString("Сравнивайте категории между собой, а не с чужими результатами.\n")
	return b.String()
}

// Request is one instrument to interpret.
type Request struct {
	Instrument *bank.Instrument
	Score      scoring.Score
}

// Result is the prose of one instrument. Fallback is set when the model's answer is not used.
type Result struct {
	Text     string
	Fallback bool
}

// InterpretAll interprets every request in parallel within the aggregate timeout. It never fails: each
// request that errors or is still pending when time runs out gets the fallback text.
func (i *Interpreter) InterpretAll(
	ctx context.Context,
	requests []Request,
	dc DialogContext,
	limiter *rate.Limiter,
) map[bank.InstrumentID]Result {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	var (
		mu      sync.Mutex
		results = make(map[bank.InstrumentID]Result, len(requests))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, req := range requests {
		g.Go(func() error {
			text, err := i.interpretBounded(gctx, req, dc, limiter)
			result := Result{Text: text, Fallback: false}
			if err != nil {
				i.logger.LogAttrs(gctx, slog.LevelWarn, "using fallback interpretation", errors.SlogError(err))
				result = Result{Text: Fallback(req.Instrument, req.Score), Fallback: true}
			}
			mu.Lock()
			results[req.Instrument.ID] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// interpretBounded returns as soon as ctx is done, even when the completer ignores cancellation.
func (i *Interpreter) interpretBounded(
	ctx context.Context,
	req Request,
	dc DialogContext,
	limiter *rate.Limiter,
) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := i.Interpret(ctx, req.Instrument, req.Score, dc, limiter)
		done <- outcome{text: text, err: err}
	}()
	select {
	case o := <-done:
		return o.text, o.err
	case <-ctx.Done():
		return "", errors.Wrap(errors.Join(errors.ErrLLMUnavailable, ctx.Err()), "interpret",
			slog.String("instrument", string(req.Instrument.ID)))
	}
}
