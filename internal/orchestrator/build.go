package orchestrator

import (
	"context"
	"github.com/google/uuid"
	"github.com/myrjola/portrait/internal/ai"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/chart"
	"github.com/myrjola/portrait/internal/chat"
	"github.com/myrjola/portrait/internal/contexthelpers"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/portrait"
	"github.com/myrjola/portrait/internal/scoring"
	"github.com/myrjola/portrait/internal/session"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// build produces and delivers the report, then ends the session. The session is destroyed and its scratch
// directory removed on every path out of here.
func (o *Orchestrator) build(ctx context.Context, s *session.Session) {
	id := s.RespondentID
	defer o.deps.Sessions.Destroy(ctx, id)

	o.transition(ctx, s, session.StateBuild)
	o.send(ctx, id, buildingText, chat.RemoveKeyboard())

	// The build stops when the respondent cancels or when the process shuts down.
	buildCtx, cancel := context.WithCancelCause(s.Context())
	defer cancel(nil)
	stop := context.AfterFunc(ctx, func() { cancel(context.Cause(ctx)) })
	defer stop()
	buildCtx = contexthelpers.WithBuild(buildCtx, uuid.NewString())

	start := time.Now()
	path, name, err := o.produce(buildCtx, s)
	if err != nil {
		if errors.Is(context.Cause(buildCtx), errors.ErrCancelled) {
			o.transition(ctx, s, session.StateEndCancelled)
			o.logger.LogAttrs(buildCtx, slog.LevelInfo, "build cancelled")
			return
		}
		o.transition(ctx, s, session.StateEndError)
		o.logger.LogAttrs(buildCtx, slog.LevelError, "build failed", errors.SlogError(err))
		o.send(ctx, id, buildFailedText, chat.RemoveKeyboard())
		return
	}

	o.transition(ctx, s, session.StateDeliver)
	if err = o.deps.Sender.SendDocument(ctx, id, path, name, deliveredText); err != nil {
		o.transition(ctx, s, session.StateEndError)
		o.logger.LogAttrs(buildCtx, slog.LevelError, "deliver report", errors.SlogError(err))
		o.send(ctx, id, buildFailedText, chat.RemoveKeyboard())
		return
	}
	o.transition(ctx, s, session.StateEnd)
	o.logger.LogAttrs(buildCtx, slog.LevelInfo, "report delivered",
		slog.String("path", path), slog.Duration("duration", time.Since(start)))
}

// produce runs score, normalize, charts, interpretation, composition and archiving. It returns the path of
// the report and the file name the respondent sees.
func (o *Orchestrator) produce(ctx context.Context, s *session.Session) (string, string, error) {
	instruments := o.deps.Bank.Instruments()
	scores := make(map[bank.InstrumentID]scoring.Score, len(instruments))
	for _, in := range instruments {
		raw, err := scoring.Raw(in, s.Answers[in.ID])
		if err != nil {
			return "", "", errors.Wrap(err, "score", slog.String("instrument", string(in.ID)))
		}
		scores[in.ID] = scoring.Normalize(raw)
	}

	charts := make([]chart.Input, 0, len(instruments))
	requests := make([]ai.Request, 0, len(instruments))
	for _, in := range instruments {
		charts = append(charts, chart.Input{Instrument: in, Score: scores[in.ID]})
		requests = append(requests, ai.Request{Instrument: in, Score: scores[in.ID]})
	}
	chartPaths := o.deps.Charts.RenderAll(ctx, s.ScratchDir, charts)
	if err := ctx.Err(); err != nil {
		return "", "", errors.Wrap(err, "after charts")
	}

	prose := o.deps.Interpreter.InterpretAll(ctx, requests, ai.DialogContext{Respondent: s.Name}, s.Limiter)
	if err := ctx.Err(); err != nil {
		return "", "", errors.Wrap(err, "after interpretation")
	}

	doc := portrait.Document{
		Respondent: s.Name,
		Date:       o.now(),
		Provider:   o.provider(prose),
	}
	for _, in := range instruments {
		doc.Sections = append(doc.Sections, portrait.Section{
			Instrument: in,
			Score:      scores[in.ID],
			ChartPath:  chartPaths[in.ID],
			Prose:      prose[in.ID].Text,
			Answers:    s.Answers[in.ID],
		})
	}

	if err := os.MkdirAll(o.opts.OutDir, 0o750); err != nil { //nolint:mnd // reports directory
		return "", "", errors.Wrap(errors.Join(errors.ErrPDFBuildFailed, err), "create out dir")
	}
	pdfCtx := ctx
	if o.opts.PDFTimeout > 0 {
		var cancel context.CancelFunc
		pdfCtx, cancel = context.WithTimeout(ctx, o.opts.PDFTimeout)
		defer cancel()
	}
	path, _, err := o.deps.Composer.Publish(pdfCtx, doc, o.opts.OutDir)
	if err != nil {
		return "", "", err
	}

	if o.deps.Uploader != nil {
		name := portrait.ArchiveName(doc.Date, s.Name, strconv.FormatInt(s.RespondentID, 10))
		if err := o.deps.Uploader.Upload(ctx, path, name); err != nil {
			o.logger.LogAttrs(ctx, slog.LevelWarn, "archive upload failed", errors.SlogError(err))
		}
	}
	return path, portrait.FileName(doc.Date, s.Name), nil
}

// provider is credited only when at least one section carries the model's prose.
func (o *Orchestrator) provider(prose map[bank.InstrumentID]ai.Result) string {
	for _, r := range prose {
		if !r.Fallback {
			return o.opts.Provider
		}
	}
	return ""
}
