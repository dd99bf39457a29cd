package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/myrjola/portrait/cmd/cli/report"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/testhelpers"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
)

var outputRe = regexp.MustCompile(`^(.+\.pdf) \((\d+) pages\)\n$`)

func runRender(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	report.Render.SetOut(&out)
	report.Render.SetErr(&errOut)
	report.Render.SetArgs(args)
	// Flags keep their values between executions.
	report.Render.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	err := report.Render.ExecuteContext(context.Background())
	return out.String(), err
}

// answersJSON answers every item with the first choice, or with 3 on Likert items.
func answersJSON(t *testing.T, b *bank.Bank, name string) string {
	t.Helper()
	answers := make(map[bank.InstrumentID]any)
	for _, in := range b.Instruments() {
		if in.Protocol == bank.AlternativeChoice {
			letters := make([]string, len(in.Items))
			for i, item := range in.Items {
				for _, code := range in.CategoryCodes() {
					if _, ok := item.Options[code]; ok {
						letters[i] = code
						break
					}
				}
			}
			answers[in.ID] = letters
			continue
		}
		values := make([]int, len(in.Items))
		for i := range values {
			values[i] = 3
		}
		answers[in.ID] = values
	}
	data, err := json.Marshal(map[string]any{"name": name, "answers": answers})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "answers.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func assertReport(t *testing.T, out string) {
	t.Helper()
	m := outputRe.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	pages, err := strconv.Atoi(m[2])
	require.NoError(t, err)
	counted, err := api.PageCountFile(m[1])
	require.NoError(t, err)
	assert.Equal(t, pages, counted)
}

func TestRender(t *testing.T) {
	dataDir := testhelpers.RepoDataDir(t)
	b, err := bank.Load(dataDir)
	require.NoError(t, err)

	t.Run("answers file", func(t *testing.T) {
		outDir := t.TempDir()
		out, err := runRender(t, "--data", dataDir, "--out", outDir, "--font-dir", t.TempDir(),
			"--answers", answersJSON(t, b, "Анна Петрова"))
		require.NoError(t, err)
		assertReport(t, out)
		assert.Contains(t, out, "Анна_Петрова.pdf")
	})

	t.Run("random answers with appendix", func(t *testing.T) {
		out, err := runRender(t, "--data", dataDir, "--out", t.TempDir(), "--random", "7", "--appendix",
			"--name", "Sample")
		require.NoError(t, err)
		assertReport(t, out)
		assert.Contains(t, out, "Sample.pdf")
	})

	t.Run("no answers", func(t *testing.T) {
		_, err := runRender(t, "--data", dataDir, "--out", t.TempDir())
		require.Error(t, err)
	})

	t.Run("incomplete answers", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "answers.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"name":"X","answers":{"paei":["P"]}}`), 0o600))
		_, err := runRender(t, "--data", dataDir, "--out", t.TempDir(), "--answers", path)
		require.ErrorIs(t, err, errors.ErrIncomplete)
	})

	t.Run("likert value out of range", func(t *testing.T) {
		var f map[string]any
		data, err := os.ReadFile(answersJSON(t, b, "X"))
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &f))
		answers := f["answers"].(map[string]any)
		disc := answers["disc"].([]any)
		disc[0] = 9
		data, err = json.Marshal(f)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "answers.json")
		require.NoError(t, os.WriteFile(path, data, 0o600))

		_, err = runRender(t, "--data", dataDir, "--out", t.TempDir(), "--answers", path)
		require.ErrorIs(t, err, errors.ErrInvalidAnswer)
	})
}
