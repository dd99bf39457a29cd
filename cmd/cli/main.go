package main

import (
	"fmt"
	"github.com/myrjola/portrait/cmd/cli/access"
	"github.com/myrjola/portrait/cmd/cli/questions"
	"github.com/myrjola/portrait/cmd/cli/report"
	"github.com/spf13/cobra"
	"os"
)

func init() {
	rootCmd.AddGroup(questions.Group)
	rootCmd.AddCommand(questions.Bank)
	rootCmd.AddGroup(report.Group)
	rootCmd.AddCommand(report.Render)
	rootCmd.AddGroup(access.Group)
	rootCmd.AddCommand(access.Token)
}

var rootCmd = &cobra.Command{
	Use:          "portrait-cli",
	Long:         `Maintenance utilities for the portrait bot: question bank checks, offline report rendering
and access tokens.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
