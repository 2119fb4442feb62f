// Package cmd holds the adam CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "adam",
	Short: "Adam - a clay-shaping sage answering questions from sacred texts",
	Long: `Adam answers questions in the voice of the first man, drawing on a
corpus of scripture and commentary through hybrid lexical and vector
retrieval.

Running adam without a subcommand starts an interactive conversation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
