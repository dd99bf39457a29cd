// Package report renders a portrait offline from a file of answers, with the fallback prose in place of the
// model's interpretation.
package report

import (
	"fmt"
	"github.com/golang/freetype/truetype"
	"github.com/myrjola/portrait/internal/ai"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/chart"
	"github.com/myrjola/portrait/internal/errors"
	"github.com/myrjola/portrait/internal/fonts"
	"github.com/myrjola/portrait/internal/logging"
	"github.com/myrjola/portrait/internal/portrait"
	"github.com/myrjola/portrait/internal/scoring"
	"github.com/spf13/cobra"
	"log/slog"
	"os"
	"time"
)

var Group = &cobra.Group{
	ID:    "report",
	Title: "Reports",
}

func init() {
	Render.Flags().String("answers", "", "JSON file with the answers of every instrument")
	Render.Flags().Uint64("random", 0, "use random answers drawn with this seed instead of --answers")
	Render.Flags().String("name", "", "respondent name, overrides the name in the answers file")
	Render.Flags().String("data", "./data", "data directory holding prompts/")
	Render.Flags().String("out", "./out", "directory receiving the report")
	Render.Flags().String("font-dir", "./data/fonts", "directory searched for unicode fonts before the system ones")
	Render.Flags().Bool("appendix", false, "append the answer appendix")
	Render.Flags().String("log-level", "warn", "debug, info, warn or error")
	Render.MarkFlagsMutuallyExclusive("answers", "random")
}

const chartTimeout = 10 * time.Second

var Render = &cobra.Command{
	Use:     "render",
	GroupID: "report",
	Short:   "Render a portrait offline",
	Long:    `Scores the answers, draws the charts and composes the PDF portrait without the chat or the model.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		answersPath, _ := flags.GetString("answers")
		seed, _ := flags.GetUint64("random")
		name, _ := flags.GetString("name")
		dataDir, _ := flags.GetString("data")
		outDir, _ := flags.GetString("out")
		fontDir, _ := flags.GetString("font-dir")
		appendix, _ := flags.GetBool("appendix")
		levelName, _ := flags.GetString("log-level")
		if answersPath == "" && seed == 0 {
			return errors.New("either --answers or --random is required")
		}

		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}
		logger := logging.NewLogger(cmd.ErrOrStderr(), level, "text")
		ctx := cmd.Context()

		b, err := bank.Load(dataDir)
		if err != nil {
			return err
		}
		answers := randomAnswers(seed, b)
		fileName := "Образец"
		if answersPath != "" {
			if fileName, answers, err = readAnswers(answersPath, b); err != nil {
				return err
			}
		}
		if name == "" {
			name = fileName
		}

		scratch, err := os.MkdirTemp("", "portrait-cli-")
		if err != nil {
			return errors.Wrap(err, "create scratch dir")
		}
		defer func() { _ = os.RemoveAll(scratch) }()

		fontSet := fonts.Probe(append([]string{fontDir}, fonts.SystemDirs...)...)
		var face *truetype.Font
		if fontSet.Available() {
			if face, err = fonts.Parse(fontSet.Regular); err != nil {
				logger.LogAttrs(ctx, slog.LevelWarn, "chart font unusable", errors.SlogError(err))
			}
		}

		doc := portrait.Document{Respondent: name, Date: time.Now(), Provider: ""}
		inputs := make([]chart.Input, 0, len(bank.DialogOrder))
		for _, in := range b.Instruments() {
			raw, scoreErr := scoring.Raw(in, answers[in.ID])
			if scoreErr != nil {
				return scoreErr
			}
			score := scoring.Normalize(raw)
			inputs = append(inputs, chart.Input{Instrument: in, Score: score})
			doc.Sections = append(doc.Sections, portrait.Section{
				Instrument: in,
				Score:      score,
				ChartPath:  "",
				Prose:      ai.Fallback(in, score),
				Answers:    answers[in.ID],
			})
		}
		charts := chart.NewRenderer(logger, face, chartTimeout).RenderAll(ctx, scratch, inputs)
		for i := range doc.Sections {
			doc.Sections[i].ChartPath = charts[doc.Sections[i].Instrument.ID]
		}

		if err = os.MkdirAll(outDir, 0o750); err != nil { //nolint:mnd // reports directory
			return errors.Wrap(err, "create out dir")
		}
		composer := portrait.NewComposer(logger, portrait.Options{Fonts: fontSet, Appendix: appendix})
		path, pages, err := composer.Publish(ctx, doc, outDir)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d pages)\n", path, pages)
		return nil
	},
}
