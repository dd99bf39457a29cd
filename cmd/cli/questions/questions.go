// Package questions validates the question bank of a data directory.
package questions

import (
	"fmt"
	"github.com/myrjola/portrait/internal/ai"
	"github.com/myrjola/portrait/internal/bank"
	"github.com/myrjola/portrait/internal/logging"
	"github.com/spf13/cobra"
	"io"
	"log/slog"
	"text/tabwriter"
)

var Group = &cobra.Group{
	ID:    "bank",
	Title: "Question bank",
}

func init() {
	Check.Flags().String("data", "./data", "data directory holding prompts/")
	Bank.AddCommand(Check)
}

var Bank = &cobra.Command{
	Use:     "bank",
	GroupID: "bank",
	Short:   "Question bank operations",
}

var Check = &cobra.Command{
	Use:   "check",
	Short: "Validate the question bank",
	Long:  `Parses every question file and prompt of the data directory and prints the item counts.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dataDir, err := cmd.Flags().GetString("data")
		if err != nil {
			return err
		}
		b, err := bank.Load(dataDir)
		if err != nil {
			return err
		}
		logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(io.Discard, nil)))
		if _, err = ai.NewInterpreter(logger, dataDir, nil, 0); err != nil {
			return err
		}
		return printSummary(cmd.OutOrStdout(), b)
	},
}

func printSummary(w io.Writer, b *bank.Bank) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) //nolint:mnd // column padding
	_, _ = fmt.Fprintln(tw, "ID\tITEMS\tCATEGORIES\tMAX RAW\tTITLE")
	for _, in := range b.Instruments() {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%g\t%s\n", in.ID, len(in.Items), len(in.Categories), in.MaxRaw, in.Title)
	}
	return tw.Flush()
}
