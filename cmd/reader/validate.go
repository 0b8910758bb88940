package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-reader/internal/content"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a reading material file",
		Long:  `Validate parses a YAML reading material file and checks it against the material schema and the question rules.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := content.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %q with %d questions and %d vocabulary terms\n",
				args[0], c.Title(), c.QuestionCount(), len(c.Vocabulary()))
			return nil
		},
	}
}
