package portrait_test

import (
	"context"
	"github.com/myrjola/portrait/internal/ai"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/chart"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/fonts"
	"github.com/myrjola/portrait/internal/portrait"
	"github.com/myrjola/portrait/internal/scoring"
	"github.com/myrjola/portrait/internal/testhelpers"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const longProse = `# Общий профиль
Вы склонны **брать ответственность** и доводить дела до конца.
## Сильные стороны
- **Организованность**: вы планируете заранее.
- Надёжность
---
### Рекомендации
* Делегируйте рутинные задачи.
Обычный абзац с > символами и ` + "`кодом`" + ` остаётся как есть.
`

func sections(t *testing.T, withCharts bool) []portrait.Section {
	t.Helper()
	b, err := bank.Load(testhelpers.RepoDataDir(t))
	require.NoError(t, err)
	dir := t.TempDir()
	renderer := chart.NewRenderer(testhelpers.NewLogger(io.Discard), nil, 10*time.Second)

	var out []portrait.Section
	for _, in := range b.Instruments() {
		answers := make([]scoring.Answer, len(in.Items))
		for i := range answers {
			if in.Protocol == bank.AlternativeChoice {
				answers[i] = scoring.Answer{Choice: in.Categories[i%len(in.Categories)].Code}
			} else {
				answers[i] = scoring.Answer{Value: i%bank.LikertMax + 1}
			}
		}
		raw, err := scoring.Raw(in, answers)
		require.NoError(t, err)
		score := scoring.Normalize(raw)
		s := portrait.Section{
			Instrument: in,
			Score:      score,
			Prose:      ai.Fallback(in, score) + "\n" + strings.Repeat(longProse, 3),
			Answers:    answers,
		}
		if withCharts {
			s.ChartPath, err = renderer.Render(context.Background(), dir, in, score)
			require.NoError(t, err)
		}
		out = append(out, s)
	}
	return out
}

func document(t *testing.T, withCharts bool) portrait.Document {
	t.Helper()
	return portrait.Document{
		Respondent: "Анна Петрова",
		Date:       time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC),
		Sections:   sections(t, withCharts),
		Provider:   "OpenAI",
	}
}

func TestCompose(t *testing.T) {
	logger := testhelpers.NewLogger(io.Discard)
	fontSet := fonts.Probe(fonts.SystemDirs...)

	tests := []struct {
		name     string
		fonts    fonts.Set
		appendix bool
		charts   bool
	}{
		{name: "probed fonts", fonts: fontSet, charts: true},
		{name: "core font fallback", fonts: fonts.Set{}, charts: true},
		{name: "charts unavailable", fonts: fontSet, charts: false},
		{name: "with appendix", fonts: fontSet, charts: true, appendix: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			composer := portrait.NewComposer(logger, portrait.Options{Fonts: tt.fonts, Appendix: tt.appendix})
			path := filepath.Join(t.TempDir(), "report.pdf")

			pages, err := composer.Compose(context.Background(), document(t, tt.charts), path)
			require.NoError(t, err)

			// Cover plus one page per instrument at least.
			assert.GreaterOrEqual(t, pages, 5)
			counted, err := api.PageCountFile(path)
			require.NoError(t, err)
			assert.Equal(t, pages, counted)
		})
	}
}

func TestComposeAppendixAddsPages(t *testing.T) {
	logger := testhelpers.NewLogger(io.Discard)
	doc := document(t, false)

	without, err := portrait.NewComposer(logger, portrait.Options{}).
		Compose(context.Background(), doc, filepath.Join(t.TempDir(), "a.pdf"))
	require.NoError(t, err)
	with, err := portrait.NewComposer(logger, portrait.Options{Appendix: true}).
		Compose(context.Background(), doc, filepath.Join(t.TempDir(), "b.pdf"))
	require.NoError(t, err)
	assert.Greater(t, with, without)
}

func TestComposeFailures(t *testing.T) {
	logger := testhelpers.NewLogger(io.Discard)
	composer := portrait.NewComposer(logger, portrait.Options{})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := composer.Compose(ctx, document(t, false), filepath.Join(t.TempDir(), "x.pdf"))
		require.ErrorIs(t, err, errors.ErrPDFBuildFailed)
	})

	t.Run("unwritable path", func(t *testing.T) {
		_, err := composer.Compose(context.Background(), document(t, false),
			filepath.Join(t.TempDir(), "missing", "x.pdf"))
		require.ErrorIs(t, err, errors.ErrPDFBuildFailed)
	})
}

func TestComposePageNumbers(t *testing.T) {
	composer := portrait.NewComposer(testhelpers.NewLogger(io.Discard), portrait.Options{Appendix: true})
	path := filepath.Join(t.TempDir(), "report.pdf")
	total, err := composer.Compose(context.Background(), document(t, false), path)
	require.NoError(t, err)

	pages := testhelpers.Content(t, path)
	require.Len(t, pages, total)
	for i, content := range pages {
		page := i + 1
		assert.Contains(t, content, "("+testhelpers.CoreText(portrait.PageLabel(page, total))+")", "page %d", page)
		if page != total {
			assert.NotContains(t, content, "("+testhelpers.CoreText(portrait.PageLabel(total, total))+")",
				"page %d", page)
		}
	}
}

func TestPublish(t *testing.T) {
	logger := testhelpers.NewLogger(io.Discard)
	composer := portrait.NewComposer(logger, portrait.Options{})
	doc := document(t, false)
	dir := t.TempDir()
	name := portrait.FileName(doc.Date, doc.Respondent)

	first, pages, err := composer.Publish(context.Background(), doc, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, name), first)
	counted, err := api.PageCountFile(first)
	require.NoError(t, err)
	assert.Equal(t, pages, counted)
	firstData, err := os.ReadFile(first)
	require.NoError(t, err)

	second, _, err := composer.Publish(context.Background(), doc, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, strings.TrimSuffix(name, ".pdf")+"_2.pdf"), second)
	again, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, firstData, again, "first report replaced")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = composer.Publish(ctx, doc, dir)
	require.ErrorIs(t, err, errors.ErrPDFBuildFailed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{filepath.Base(first), filepath.Base(second)}, names)
}

func TestPageLabel(t *testing.T) {
	assert.Equal(t, "Страница 2 из 7", portrait.PageLabel(2, 7))
}
