package orchestrator_test

import (
	"bytes"
	"context"
	"github.com/myrjola/portrait/internal/ai"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/chart"
	"github.com/myrjola/portrait/internal/chat"
	"github.com/myrjola/portrait/internal/orchestrator"
	"github.com/myrjola/portrait/internal/portrait"
	"github.com/myrjola/portrait/internal/session"
	"github.com/myrjola/portrait/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const respondent = int64(1)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeUploader struct {
	mu    sync.Mutex
	names []string
}

func (u *fakeUploader) Upload(_ context.Context, localPath, name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	u.names = append(u.names, name)
	return nil
}

type completerFunc func(ctx context.Context, system, user string) (string, error)

func (f completerFunc) Complete(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

func echo(_ context.Context, _, user string) (string, error) {
	return "### Интерпретация\n" + user, nil
}

type fixture struct {
	o           *orchestrator.Orchestrator
	bank        *bank.Bank
	sender      *testhelpers.FakeSender
	sessions    *session.Store
	uploader    *fakeUploader
	logs        *syncBuffer
	outDir      string
	scratchRoot string
}

type setup struct {
	completer       ai.Completer
	interpretBudget time.Duration
	accessToken     string
	outDir          string
	noInterpreter   bool
	now             func() time.Time
}

func newFixture(t *testing.T, cfg setup) *fixture {
	t.Helper()
	dataDir := testhelpers.RepoDataDir(t)
	b, err := bank.Load(dataDir)
	require.NoError(t, err)

	logs := &syncBuffer{}
	logger := testhelpers.NewLogger(logs)
	scratchRoot := filepath.Join(t.TempDir(), "scratch")
	sessions := session.NewStore(logger, scratchRoot, time.Hour, 0)

	budget := cfg.interpretBudget
	if budget == 0 {
		budget = 5 * time.Second
	}
	var interpreter *ai.Interpreter
	if !cfg.noInterpreter {
		interpreter, err = ai.NewInterpreter(logger, dataDir, cfg.completer, budget)
		require.NoError(t, err)
	}
	outDir := cfg.outDir
	if outDir == "" {
		outDir = filepath.Join(t.TempDir(), "out")
	}

	f := &fixture{
		bank:        b,
		sender:      testhelpers.NewFakeSender(),
		sessions:    sessions,
		uploader:    &fakeUploader{},
		logs:        logs,
		outDir:      outDir,
		scratchRoot: scratchRoot,
	}
	f.o = orchestrator.New(logger, orchestrator.Deps{
		Bank:        b,
		Sessions:    sessions,
		Sender:      f.sender,
		Charts:      chart.NewRenderer(logger, nil, 10*time.Second),
		Interpreter: interpreter,
		Composer:    portrait.NewComposer(logger, portrait.Options{}),
		Uploader:    f.uploader,
	}, orchestrator.Options{
		OutDir:      outDir,
		PDFTimeout:  30 * time.Second,
		AccessToken: cfg.accessToken,
		Provider:    "TestLLM",
		Now:         cfg.now,
	})
	return f
}

func (f *fixture) text(t *testing.T, text string) {
	t.Helper()
	f.o.Handle(context.Background(), chat.Event{RespondentID: respondent, Text: text})
}

func (f *fixture) command(t *testing.T, command, args string) {
	t.Helper()
	f.o.Handle(context.Background(), chat.Event{
		RespondentID: respondent,
		Command:      command,
		Args:         args,
		Text:         strings.TrimSpace("/" + command + " " + args),
	})
}

func (f *fixture) session(t *testing.T) *session.Session {
	t.Helper()
	s, ok := f.sessions.Get(respondent)
	require.True(t, ok, "no session")
	return s
}

func (f *fixture) lastText() string {
	return f.sender.Last(respondent).Text
}

// answerAll answers every item of the instrument with the given text.
func (f *fixture) answerAll(t *testing.T, id bank.InstrumentID, text string) {
	t.Helper()
	for range f.bank.Instrument(id).Items {
		f.text(t, text)
	}
}

func (f *fixture) begin(t *testing.T) {
	t.Helper()
	f.command(t, "start", "")
	f.text(t, "да")
	f.text(t, "Анна Петрова")
}

// fallbackLine is the opening of the fallback interpretation as drawn in the core font.
var fallbackLine = testhelpers.CoreText("Автоматическая интерпретация сейчас недоступна.")

func pdfText(t *testing.T, path string) string {
	t.Helper()
	return strings.Join(testhelpers.Content(t, path), "\n")
}

func (f *fixture) scratchEntries(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(f.scratchRoot)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return entries
}

func TestDialogToDelivery(t *testing.T) {
	f := newFixture(t, setup{completer: completerFunc(echo)})

	f.command(t, "start", "")
	assert.Equal(t, session.StateAwaitConfirm, f.session(t).State)
	assert.Equal(t, [][]string{{"Да", "Нет"}}, f.sender.Last(respondent).Keyboard.Rows)

	f.text(t, "может быть")
	assert.Equal(t, session.StateAwaitConfirm, f.session(t).State)

	f.text(t, "Да")
	assert.Equal(t, session.StateAwaitName, f.session(t).State)

	f.text(t, "/name")
	assert.Equal(t, session.StateAwaitName, f.session(t).State)

	f.text(t, "Анна Петрова")
	s := f.session(t)
	assert.Equal(t, "Анна Петрова", s.Name)
	assert.Equal(t, session.StateAskPAEI, s.State)
	last := f.sender.Last(respondent)
	assert.Contains(t, last.Text, "· 1/")
	assert.Equal(t, [][]string{{"P", "A", "E", "I"}}, last.Keyboard.Rows)

	f.answerAll(t, bank.PAEI, "A")
	assert.Equal(t, session.StateAskDISC, f.session(t).State)
	assert.Equal(t, [][]string{{"1", "2", "3", "4", "5"}}, f.sender.Last(respondent).Keyboard.Rows)
	f.answerAll(t, bank.DISC, "3")
	assert.Equal(t, session.StateAskSOFT, f.session(t).State)
	f.answerAll(t, bank.SOFT, "3")
	assert.Equal(t, session.StateAskHEXACO, f.session(t).State)
	scratch := f.session(t).ScratchDir
	f.answerAll(t, bank.HEXACO, "4. скорее да")

	docs := f.sender.Documents()
	require.Len(t, docs, 1)
	assert.True(t, bytes.HasPrefix(docs[0].Data, []byte("%PDF")))
	assert.Equal(t, f.outDir, filepath.Dir(docs[0].Path))
	assert.True(t, strings.HasSuffix(docs[0].Path, "_Анна_Петрова.pdf"), docs[0].Path)
	assert.Equal(t, filepath.Base(docs[0].Path), docs[0].Name)
	assert.FileExists(t, docs[0].Path)
	assert.NotContains(t, pdfText(t, docs[0].Path), fallbackLine)
	out, err := os.ReadDir(f.outDir)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, ok := f.sessions.Get(respondent)
	assert.False(t, ok, "session not destroyed")
	assert.NoDirExists(t, scratch)
	assert.Empty(t, f.scratchEntries(t))

	require.Len(t, f.uploader.names, 1)
	assert.True(t, strings.HasSuffix(f.uploader.names[0], "_Анна_Петрова_1.pdf"), f.uploader.names[0])
	assert.NotContains(t, f.logs.String(), "using fallback interpretation")
	assert.NotContains(t, f.logs.String(), "chart unavailable")
}

func TestInvalidInputRetry(t *testing.T) {
	f := newFixture(t, setup{completer: completerFunc(echo)})
	f.begin(t)
	f.answerAll(t, bank.PAEI, "P")

	f.text(t, "3")
	f.text(t, "3")
	s := f.session(t)
	require.Equal(t, session.StateAskDISC, s.State)
	require.Equal(t, 2, s.Index)

	before := len(f.sender.Messages(respondent))
	f.text(t, "maybe")
	assert.Equal(t, session.StateAskDISC, s.State)
	assert.Equal(t, 2, s.Index)
	assert.Len(t, s.Answers[bank.DISC], 2)
	msgs := f.sender.Messages(respondent)[before:]
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Text, "от 1 до 5")
	assert.Contains(t, msgs[1].Text, "· 3/")

	f.text(t, "4")
	assert.Equal(t, 3, s.Index)
	assert.Equal(t, 4, s.Answers[bank.DISC][2].Value)
	assert.Contains(t, f.lastText(), "· 4/")
}

func TestLLMTimeout(t *testing.T) {
	blocked := completerFunc(func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	f := newFixture(t, setup{completer: blocked, interpretBudget: 50 * time.Millisecond})
	f.begin(t)
	scratch := f.session(t).ScratchDir
	f.answerAll(t, bank.PAEI, "E")
	f.answerAll(t, bank.DISC, "5")
	f.answerAll(t, bank.SOFT, "2")
	f.answerAll(t, bank.HEXACO, "1")

	docs := f.sender.Documents()
	require.Len(t, docs, 1)
	assert.True(t, bytes.HasPrefix(docs[0].Data, []byte("%PDF")))
	assert.Equal(t, 4, strings.Count(f.logs.String(), "using fallback interpretation"))
	assert.Equal(t, 4, strings.Count(pdfText(t, docs[0].Path), fallbackLine))
	assert.NotContains(t, f.logs.String(), "chart unavailable")
	assert.NoDirExists(t, scratch)
	assert.Equal(t, 0, f.sessions.Len())
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name   string
		cancel func(f *fixture, t *testing.T)
	}{
		{"command", func(f *fixture, t *testing.T) { f.command(t, "cancel", "") }},
		{"word", func(f *fixture, t *testing.T) { f.text(t, "Отмена") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, setup{completer: completerFunc(echo)})
			f.begin(t)
			f.answerAll(t, bank.PAEI, "I")
			f.text(t, "2")
			scratch := f.session(t).ScratchDir

			tt.cancel(f, t)
			assert.Equal(t, 0, f.sessions.Len())
			assert.NoDirExists(t, scratch)
			assert.Contains(t, f.lastText(), "Тест прерван")
			assert.True(t, f.sender.Last(respondent).Keyboard.Remove)

			f.text(t, "3")
			assert.Contains(t, f.lastText(), "/start")
			assert.Empty(t, f.sender.Documents())
		})
	}
}

func TestDecline(t *testing.T) {
	f := newFixture(t, setup{completer: completerFunc(echo)})
	f.command(t, "start", "")
	scratch := f.session(t).ScratchDir
	f.text(t, "нет")
	assert.Equal(t, 0, f.sessions.Len())
	assert.NoDirExists(t, scratch)
	assert.Contains(t, f.lastText(), "Тест прерван")
}

func TestRestart(t *testing.T) {
	f := newFixture(t, setup{completer: completerFunc(echo)})
	f.begin(t)
	f.answerAll(t, bank.PAEI, "A")
	old := f.session(t).ScratchDir

	f.command(t, "start", "")
	s := f.session(t)
	assert.Equal(t, session.StateAwaitConfirm, s.State)
	assert.Empty(t, s.Answers[bank.PAEI])
	assert.NotEqual(t, old, s.ScratchDir)
	assert.NoDirExists(t, old)
	assert.Len(t, f.scratchEntries(t), 1)
}

func TestAccessToken(t *testing.T) {
	f := newFixture(t, setup{completer: completerFunc(echo), accessToken: "secret"})

	f.command(t, "start", "")
	assert.Equal(t, 0, f.sessions.Len())
	assert.Contains(t, f.lastText(), "код доступа")

	f.command(t, "start", "wrong")
	assert.Equal(t, 0, f.sessions.Len())

	f.text(t, "secret")
	assert.Equal(t, session.StateAwaitConfirm, f.session(t).State)

	f.command(t, "start", "secret")
	assert.Equal(t, session.StateAwaitConfirm, f.session(t).State)
}

func TestNoSession(t *testing.T) {
	f := newFixture(t, setup{completer: completerFunc(echo)})
	f.text(t, "привет")
	assert.Contains(t, f.lastText(), "/start")
	assert.Equal(t, 0, f.sessions.Len())
}

func TestBuildFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	f := newFixture(t, setup{completer: completerFunc(echo), outDir: filepath.Join(blocker, "out")})
	f.begin(t)
	scratch := f.session(t).ScratchDir
	f.answerAll(t, bank.PAEI, "P")
	f.answerAll(t, bank.DISC, "1")
	f.answerAll(t, bank.SOFT, "5")
	f.answerAll(t, bank.HEXACO, "3")

	assert.Empty(t, f.sender.Documents())
	assert.Contains(t, f.lastText(), "не удалось сформировать отчёт")
	assert.Equal(t, 0, f.sessions.Len())
	assert.NoDirExists(t, scratch)
	assert.Contains(t, f.logs.String(), "build failed")
}

func submitAll(f *fixture, texts ...string) {
	for _, text := range texts {
		f.o.Submit(chat.Event{RespondentID: respondent, Text: text})
	}
}

func answers(f *fixture) []string {
	return answersAs(f, "Анна", "P", "3")
}

// answersAs is the whole dialog after /start, giving the same choice to every alternative-choice item and
// the same value to every Likert item.
func answersAs(f *fixture, name, choice, value string) []string {
	texts := []string{"да", name}
	for _, id := range bank.DialogOrder {
		in := f.bank.Instrument(id)
		for range in.Items {
			if in.Protocol == bank.AlternativeChoice {
				texts = append(texts, choice)
			} else {
				texts = append(texts, value)
			}
		}
	}
	return texts
}

func TestCancelInterruptsBuild(t *testing.T) {
	entered := make(chan struct{}, 4)
	blocked := completerFunc(func(ctx context.Context, _, _ string) (string, error) {
		entered <- struct{}{}
		<-ctx.Done()
		return "", ctx.Err()
	})
	f := newFixture(t, setup{completer: blocked, interpretBudget: time.Minute})
	go f.o.Start(context.Background())
	t.Cleanup(f.o.Stop)

	f.o.Submit(chat.Event{RespondentID: respondent, Command: "start", Text: "/start"})
	submitAll(f, answers(f)...)

	select {
	case <-entered:
	case <-time.After(10 * time.Second):
		t.Fatal("build did not reach interpretation")
	}
	f.o.Submit(chat.Event{RespondentID: respondent, Command: "cancel", Text: "/cancel"})

	require.Eventually(t, func() bool {
		return f.sessions.Len() == 0 && strings.Contains(f.lastText(), "Тест прерван")
	}, 10*time.Second, 10*time.Millisecond)
	assert.Empty(t, f.sender.Documents())
	assert.Empty(t, f.scratchEntries(t))
	assert.NotContains(t, f.logs.String(), "build failed")
}

func TestHandlerPanicCleansUp(t *testing.T) {
	f := newFixture(t, setup{noInterpreter: true})
	go f.o.Start(context.Background())
	t.Cleanup(f.o.Stop)

	f.o.Submit(chat.Event{RespondentID: respondent, Command: "start", Text: "/start"})
	submitAll(f, answers(f)...)

	require.Eventually(t, func() bool {
		return strings.Contains(f.lastText(), "не удалось сформировать отчёт")
	}, 10*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.sessions.Len())
	assert.Empty(t, f.scratchEntries(t))
	assert.Contains(t, f.logs.String(), "handler panic")

	// The respondent can start over.
	f.o.Submit(chat.Event{RespondentID: respondent, Command: "start", Text: "/start"})
	require.Eventually(t, func() bool { return f.sessions.Len() == 1 }, 10*time.Second, 10*time.Millisecond)
}

func TestNamesakesGetTheirOwnReports(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	f := newFixture(t, setup{completer: completerFunc(echo), now: func() time.Time { return at }})
	ctx := context.Background()
	const first, second = int64(10), int64(20)

	dialogs := map[int64][]string{
		first:  answersAs(f, "Анна Петрова", "P", "2"),
		second: answersAs(f, "Анна Петрова", "E", "4"),
	}
	for _, id := range []int64{first, second} {
		f.o.Handle(ctx, chat.Event{RespondentID: id, Command: "start", Text: "/start"})
	}
	// Lockstep answers finish both dialogs within the same second.
	for i := range dialogs[first] {
		for _, id := range []int64{first, second} {
			f.o.Handle(ctx, chat.Event{RespondentID: id, Text: dialogs[id][i]})
		}
	}

	docs := f.sender.Documents()
	require.Len(t, docs, 2)
	byRespondent := map[int64]testhelpers.Document{}
	for _, d := range docs {
		byRespondent[d.RespondentID] = d
	}
	require.Len(t, byRespondent, 2)

	name := portrait.FileName(at, "Анна Петрова")
	a, b := byRespondent[first], byRespondent[second]
	assert.Equal(t, name, a.Name)
	assert.Equal(t, name, b.Name)
	assert.NotEqual(t, a.Path, b.Path)
	assert.Equal(t, filepath.Join(f.outDir, name), a.Path)
	assert.Equal(t, filepath.Join(f.outDir, strings.TrimSuffix(name, ".pdf")+"_2.pdf"), b.Path)
	assert.NotEqual(t, a.Data, b.Data)
	for _, d := range docs {
		onDisk, err := os.ReadFile(d.Path)
		require.NoError(t, err)
		assert.Equal(t, d.Data, onDisk, "report of respondent %d replaced", d.RespondentID)
	}

	out, err := os.ReadDir(f.outDir)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, 0, f.sessions.Len())
}
