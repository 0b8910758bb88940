package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-reader/internal/agent"
	"github.com/p-n-ai/pai-reader/internal/chat"
	"github.com/p-n-ai/pai-reader/internal/content"
	"github.com/p-n-ai/pai-reader/internal/export"
	"github.com/p-n-ai/pai-reader/internal/platform/config"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

type playOptions struct {
	delay      time.Duration
	exportPath string
	plain      bool
	name       string
}

func playCmd(root *rootOptions, defaults config.QuizConfig) *cobra.Command {
	opts := &playOptions{}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start an interactive quiz session",
		Long: `Play reads commands from standard input. Send help for the command list
and quit to leave. With --export, submitted results are saved as an Excel workbook.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, root, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.delay, "delay", defaults.GenerationDelay,
		"simulated generation time")
	cmd.Flags().StringVar(&opts.exportPath, "export", "", "write submitted results to this .xlsx file")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print Markdown without styling")
	cmd.Flags().StringVar(&opts.name, "name", os.Getenv("USER"), "name used in the greeting")
	return cmd
}

func runPlay(cmd *cobra.Command, root *rootOptions, opts *playOptions) error {
	ctx := cmd.Context()

	catalog, err := content.Load(root.contentPath)
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}

	out := cmd.OutOrStdout()
	var render chat.RenderFunc = chat.PlainRenderer
	if !opts.plain {
		tty, width := chat.IsTerminal(out)
		if render, err = chat.NewMarkdownRenderer(tty, width); err != nil {
			return err
		}
	}

	store := agent.NewSessionStore(agent.StoreConfig{
		Catalog: catalog,
		Options: []quiz.Option{
			quiz.WithGenerationDelay(opts.delay),
			quiz.WithLogger(slog.Default()),
		},
	})
	term := chat.NewTerminalChannel(cmd.InOrStdin(), out, chat.WithRenderer(render))
	gw := chat.NewGateway()
	gw.Register(chat.TerminalChannelName, term)
	engine := agent.NewEngine(agent.EngineConfig{Store: store, Sender: gw})

	p := &player{engine: engine, gateway: gw, name: opts.name}

	term.Banner("English Reader", "Type help for commands, quit to leave.")
	p.handle(ctx, chat.InboundMessage{Channel: chat.TerminalChannelName, UserID: term.UserID(), Text: "start"})

	if err := gw.StartAll(ctx, func(msg chat.InboundMessage) { p.handle(ctx, msg) }); err != nil {
		return err
	}
	select {
	case <-term.Done():
	case <-ctx.Done():
	}
	if err := gw.StopAll(); err != nil {
		slog.Warn("failed to stop terminal", "error", err)
	}

	if opts.exportPath == "" {
		return nil
	}
	entry, err := store.Get(agent.SessionKey(chat.TerminalChannelName, term.UserID()))
	if err != nil {
		return err
	}
	return writeExport(cmd, opts.exportPath, entry)
}

// player answers terminal input one line at a time.
type player struct {
	engine  *agent.Engine
	gateway *chat.Gateway
	name    string
}

func (p *player) handle(ctx context.Context, msg chat.InboundMessage) {
	msg.FirstName = p.name

	reply, err := p.engine.ProcessMessage(ctx, msg)
	if err != nil {
		slog.Error("failed to process input", "error", err)
		return
	}
	if err := p.gateway.Send(ctx, chat.OutboundMessage{
		Channel:   msg.Channel,
		UserID:    msg.UserID,
		Text:      reply,
		ParseMode: agent.ParseMode,
	}); err != nil {
		slog.Error("failed to write reply", "error", err)
	}

	p.awaitGeneration(ctx, agent.SessionKey(msg.Channel, msg.UserID))
}

// awaitGeneration blocks input while the reading is generated, so the next
// command sees the reading stage.
func (p *player) awaitGeneration(ctx context.Context, key string) {
	entry, err := p.engine.Store().Get(key)
	if err != nil {
		return
	}

	ready := make(chan struct{})
	var once sync.Once
	unsubscribe := entry.Session.Subscribe(func(c quiz.Change) {
		if !c.Snapshot.Generating {
			once.Do(func() { close(ready) })
		}
	})
	defer unsubscribe()

	if !entry.Session.Snapshot().Generating {
		return
	}
	select {
	case <-ready:
	case <-ctx.Done():
	}
}

func writeExport(cmd *cobra.Command, path string, entry *agent.Entry) error {
	snap := entry.Session.Snapshot()
	if !snap.Submitted {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No submitted quiz, nothing exported.")
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	meta := export.Meta{SessionID: entry.ID, GeneratedAt: time.Now()}
	if err := export.Write(f, entry.Session.Catalog(), snap, meta); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing export file: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Results saved to %s\n", path)
	return nil
}
