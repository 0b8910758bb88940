package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-reader/internal/content"
)

func catalogCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List levels, topics and the reading passage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := content.Load(root.contentPath)
			if err != nil {
				return fmt.Errorf("loading content: %w", err)
			}
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Levels   []content.LevelInfo `json:"levels"`
					Topics   []content.TopicInfo `json:"topics"`
					Material content.Material    `json:"material"`
				}{c.Levels(), c.Topics(), c.Material()})
			}

			fmt.Fprintln(out, "Levels:")
			for _, l := range c.Levels() {
				fmt.Fprintf(out, "  %-3s %s\n", l.Label, l.Description)
			}
			fmt.Fprintln(out, "Topics:")
			for _, t := range c.Topics() {
				fmt.Fprintf(out, "  %-11s %s\n", t.Key, t.Label)
			}
			fmt.Fprintf(out, "Passage: %s (approx. %d words, %d questions, %d vocabulary terms)\n",
				c.Title(), c.ApproxWords(), c.QuestionCount(), len(c.Vocabulary()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON without the answer key")
	return cmd
}
