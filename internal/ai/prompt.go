package ai

import (
	"bytes"
	"fmt"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/scoring"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const defaultUserPrompt = `Опросник: {{.Title}}
Шкала: {{.Scale}}
{{- if .Respondent}}
Респондент: {{.Respondent}}
{{- end}}
Баллы:
{{- range .Scores}}
- {{.Name}} ({{.Code}}): {{.Value}}
{{- end}}
Ведущая категория: {{.Dominant}}
`

// PromptData is what the user prompt template is executed with.
type PromptData struct {
	Title      string
	Scale      string
	Respondent string
	Scores     []ScoreLine
	Dominant   string
}

type ScoreLine struct {
	Code  string
	Name  string
	Value string
}

// DialogContext is optional information about the respondent passed into the prompt.
type DialogContext struct {
	Respondent string
}

type prompt struct {
	system string
	user   *template.Template
}

// SystemPath is the location of the system prompt of an instrument.
func SystemPath(dataDir string, id bank.InstrumentID) string {
	return filepath.Join(dataDir, "prompts", bank.FileKey(id)+"_system_res.txt")
}

// UserTemplatePath is the location of the optional user prompt template of an instrument.
func UserTemplatePath(dataDir string, id bank.InstrumentID) string {
	return filepath.Join(dataDir, "prompts", bank.FileKey(id)+"_user_res.txt")
}

func loadPrompt(dataDir string, id bank.InstrumentID) (prompt, error) {
	system, err := os.ReadFile(SystemPath(dataDir, id))
	if err != nil {
		return prompt{}, errors.Wrap(errors.Join(errors.ErrBankCorrupt, err), "read system prompt",
			slog.String("instrument", string(id)))
	}
	userText := defaultUserPrompt
	custom, err := os.ReadFile(UserTemplatePath(dataDir, id))
	switch {
	case err == nil:
		userText = string(custom)
	case !errors.Is(err, fs.ErrNotExist):
		return prompt{}, errors.Wrap(err, "read user prompt", slog.String("instrument", string(id)))
	}
	user, err := template.New(string(id)).Option("missingkey=error").Parse(userText)
	if err != nil {
		return prompt{}, errors.Wrap(errors.Join(errors.ErrBankCorrupt, err), "parse user prompt",
			slog.String("instrument", string(id)))
	}
	return prompt{system: strings.TrimSpace(string(system)), user: user}, nil
}

func promptData(in *bank.Instrument, score scoring.Score, dc DialogContext) PromptData {
	data := PromptData{
		Title:      in.Title,
		Scale:      score.Method.Label(),
		Respondent: dc.Respondent,
		Dominant:   in.CategoryName(score.Dominant()),
	}
	for _, code := range score.Categories {
		data.Scores = append(data.Scores, ScoreLine{
			Code:  code,
			Name:  in.CategoryName(code),
			Value: FormatValue(score.Value(code)),
		})
	}
	return data
}

func (p prompt) render(data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := p.user.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "execute user prompt")
	}
	return buf.String(), nil
}

// FormatValue prints a presented value with one decimal.
func FormatValue(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
