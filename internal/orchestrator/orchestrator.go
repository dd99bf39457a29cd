// Package orchestrator drives the dialog with each respondent: greeting, name, the four questionnaires
// item by item, and finally the report build and delivery.
package orchestrator

import (
	"context"
	"github.com/myrjola/portrait/internal/ai"
	"github.com/myrjola/portrait/internal/archive"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/chart"
	"github.com/myrjola/portrait/internal/chat"
	"github.com/myrjola/portrait/internal/contexthelpers"
	"github.com/myrjola/portrait/internal/dispatch"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/portrait"
	"github.com/myrjola/portrait/internal/scoring"
	"github.com/myrjola/portrait/internal/session"
	"log/slog"
	"runtime/debug"
	"time"
)

// Deps are the collaborators of the Orchestrator. Uploader may be nil to disable archiving.
type Deps struct {
	Bank        *bank.Bank
	Sessions    *session.Store
	Sender      chat.Sender
	Charts      *chart.Renderer
	Interpreter *ai.Interpreter
	Composer    *portrait.Composer
	Uploader    archive.Uploader
}

type Options struct {
	// OutDir receives the finished reports.
	OutDir     string
	PDFTimeout time.Duration
	// AccessToken gates the dialog when set.
	AccessToken string
	// Provider is credited in the report. Empty when the model is disabled.
	Provider string
	// Now dates the reports. Defaults to time.Now.
	Now func() time.Time
}

type Orchestrator struct {
	logger     *slog.Logger
	deps       Deps
	opts       Options
	now        func() time.Time
	dispatcher *dispatch.Dispatcher[int64, chat.Event]
}

func New(logger *slog.Logger, deps Deps, opts Options) *Orchestrator {
	o := &Orchestrator{
		logger: logger,
		deps:   deps,
		opts:   opts,
		now:    opts.Now,
	}
	if o.now == nil {
		o.now = time.Now
	}
	o.dispatcher = dispatch.New[int64, chat.Event](o.handle, o.recoverSession)
	return o
}

// Start serves submitted events until Stop is called. It blocks.
func (o *Orchestrator) Start(ctx context.Context) {
	o.dispatcher.Start(ctx)
}

// Stop ends the event loop and waits for the handlers in flight.
func (o *Orchestrator) Stop() {
	o.dispatcher.Stop()
	o.dispatcher.Wait()
}

// Submit queues an event. Events of one respondent are handled strictly in order, but a cancellation also
// interrupts the work in flight right away.
func (o *Orchestrator) Submit(event chat.Event) {
	if isCancel(event.Command, event.Text) {
		o.deps.Sessions.Interrupt(event.RespondentID)
	}
	o.dispatcher.Submit(event.RespondentID, event)
}

func (o *Orchestrator) handle(ctx context.Context, _ int64, event chat.Event) {
	o.Handle(ctx, event)
}

// Handle processes one event synchronously. Callers must not handle two events of the same respondent at
// the same time; Submit takes care of that.
func (o *Orchestrator) Handle(ctx context.Context, event chat.Event) {
	id := event.RespondentID
	ctx = contexthelpers.WithRespondent(ctx, id)

	if isCancel(event.Command, event.Text) {
		o.cancel(ctx, id)
		return
	}
	if event.Command == "start" {
		o.greet(ctx, id, event.Args)
		return
	}

	s, ok := o.deps.Sessions.Get(id)
	if !ok {
		if o.opts.AccessToken != "" && event.Text == o.opts.AccessToken {
			o.greet(ctx, id, event.Text)
			return
		}
		o.send(ctx, id, noSessionText, chat.RemoveKeyboard())
		return
	}

	switch s.State {
	case session.StateAwaitConfirm:
		o.confirm(ctx, s, event.Text)
	case session.StateAwaitName:
		o.name(ctx, s, event.Text)
	case session.StateAskPAEI, session.StateAskDISC, session.StateAskSOFT, session.StateAskHEXACO:
		o.answer(ctx, s, event.Text)
	case session.StateBuild, session.StateDeliver:
		o.send(ctx, id, busyText, nil)
	case session.StateInit, session.StateEnd, session.StateEndError, session.StateEndCancelled:
		o.deps.Sessions.Destroy(ctx, id)
		o.send(ctx, id, noSessionText, chat.RemoveKeyboard())
	}
}

func (o *Orchestrator) greet(ctx context.Context, id int64, token string) {
	if o.opts.AccessToken != "" && token != o.opts.AccessToken {
		o.logger.LogAttrs(ctx, slog.LevelInfo, "access denied")
		o.send(ctx, id, accessDeniedText, chat.RemoveKeyboard())
		return
	}
	s, err := o.deps.Sessions.Create(ctx, id)
	if err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "create session", errors.SlogError(err))
		o.send(ctx, id, buildFailedText, chat.RemoveKeyboard())
		return
	}
	o.transition(ctx, s, session.StateAwaitConfirm)
	o.send(ctx, id, greetingText, chat.NewKeyboard(yesNoButtons...))
}

func (o *Orchestrator) confirm(ctx context.Context, s *session.Session, text string) {
	switch parseConfirmation(text) {
	case confirmed:
		o.transition(ctx, s, session.StateAwaitName)
		o.send(ctx, s.RespondentID, askNameText, chat.RemoveKeyboard())
	case declined:
		o.cancel(ctx, s.RespondentID)
	case unclear:
		o.send(ctx, s.RespondentID, confirmRetryText, chat.NewKeyboard(yesNoButtons...))
	}
}

func (o *Orchestrator) name(ctx context.Context, s *session.Session, text string) {
	name, ok := ValidName(text)
	if !ok {
		o.send(ctx, s.RespondentID, nameRetryText, nil)
		return
	}
	s.Name = name
	o.startInstrument(ctx, s, 0)
}

func (o *Orchestrator) startInstrument(ctx context.Context, s *session.Session, position int) {
	in := o.deps.Bank.Instrument(bank.DialogOrder[position])
	s.Index = 0
	o.transition(ctx, s, session.AskState(in.ID))
	o.send(ctx, s.RespondentID, instrumentIntro(in, position+1, len(bank.DialogOrder)), nil)
	o.ask(ctx, s, in)
}

func (o *Orchestrator) ask(ctx context.Context, s *session.Session, in *bank.Instrument) {
	keyboard := chat.NewKeyboard(likertButtons...)
	if in.Protocol == bank.AlternativeChoice {
		keyboard = chat.NewKeyboard(offered(in, s.Index)...)
	}
	o.send(ctx, s.RespondentID, itemPrompt(in, s.Index), keyboard)
}

func (o *Orchestrator) answer(ctx context.Context, s *session.Session, text string) {
	id, _ := s.State.Instrument()
	in := o.deps.Bank.Instrument(id)

	answer, ok := parseAnswer(in, s.Index, text)
	if !ok {
		o.logger.LogAttrs(ctx, slog.LevelDebug, "invalid answer",
			slog.String("instrument", string(id)), slog.Int("item", s.Index))
		o.send(ctx, s.RespondentID, retryText(in, s.Index), nil)
		o.ask(ctx, s, in)
		return
	}
	s.Record(id, answer)
	if s.Index < len(in.Items) {
		o.ask(ctx, s, in)
		return
	}

	position := indexOf(bank.DialogOrder, id)
	if position+1 < len(bank.DialogOrder) {
		o.startInstrument(ctx, s, position+1)
		return
	}
	o.build(ctx, s)
}

func parseAnswer(in *bank.Instrument, index int, text string) (scoring.Answer, bool) {
	if in.Protocol == bank.AlternativeChoice {
		letter, ok := ParseChoice(text, offered(in, index))
		return scoring.Answer{Choice: letter, Value: 0}, ok
	}
	v, ok := ParseLikert(text, bank.LikertMax)
	return scoring.Answer{Choice: "", Value: v}, ok
}

// offered lists the letters of the options the item actually has, in category order.
func offered(in *bank.Instrument, index int) []string {
	letters := make([]string, 0, len(in.Categories))
	for _, letter := range in.Choices() {
		if _, ok := in.Items[index].Options[letter]; ok {
			letters = append(letters, letter)
		}
	}
	return letters
}

func indexOf(ids []bank.InstrumentID, id bank.InstrumentID) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) cancel(ctx context.Context, id int64) {
	if s, ok := o.deps.Sessions.Get(id); ok {
		o.transition(ctx, s, session.StateEndCancelled)
		o.deps.Sessions.Destroy(ctx, id)
	}
	o.send(ctx, id, cancelledText, chat.RemoveKeyboard())
}

// recoverSession ends the session of a panicking handler the same way as a failed build.
func (o *Orchestrator) recoverSession(ctx context.Context, id int64, recovered any) {
	ctx = contexthelpers.WithRespondent(ctx, id)
	o.logger.LogAttrs(ctx, slog.LevelError, "handler panic",
		slog.Any("panic", recovered), slog.String("stack", string(debug.Stack())))
	o.deps.Sessions.Destroy(ctx, id)
	o.send(ctx, id, buildFailedText, chat.RemoveKeyboard())
}

func (o *Orchestrator) transition(ctx context.Context, s *session.Session, to session.State) {
	o.logger.LogAttrs(ctx, slog.LevelDebug, "state transition",
		slog.String("from", s.State.String()), slog.String("to", to.String()))
	s.State = to
}

func (o *Orchestrator) send(ctx context.Context, id int64, text string, keyboard *chat.Keyboard) {
	if err := o.deps.Sender.Send(ctx, id, chat.Message{Text: text, Keyboard: keyboard}); err != nil {
		o.logger.LogAttrs(ctx, slog.LevelError, "send message", errors.SlogError(err))
	}
}
