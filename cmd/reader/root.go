package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-reader/internal/platform/config"
	"github.com/p-n-ai/pai-reader/internal/platform/logging"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

type rootOptions struct {
	contentPath string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	// Environment values become flag defaults; flags win.
	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{Quiz: config.QuizConfig{GenerationDelay: quiz.DefaultGenerationDelay}}
	}

	root := &cobra.Command{
		Use:          "reader",
		Short:        "Practice English reading with a short CEFR quiz",
		Long:         `Reader walks through choosing a level and topics, reading a passage and answering five questions about it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(cmd.ErrOrStderr(), config.LogConfig{Level: opts.logLevel, Format: "text"})
			slog.SetDefault(logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.contentPath, "content", cfg.ContentPath,
		"YAML reading material (default: built-in passage)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn",
		"log level: debug, info, warn or error")

	root.AddCommand(playCmd(opts, cfg.Quiz), catalogCmd(opts), validateCmd())
	return root
}
