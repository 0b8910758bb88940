package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// TerminalChannelName is the channel name terminal messages carry.
const TerminalChannelName = "terminal"

// RenderFunc turns Markdown into terminal output.
type RenderFunc func(markdown string) (string, error)

// PlainRenderer returns Markdown unchanged.
func PlainRenderer(markdown string) (string, error) {
	return markdown, nil
}

// NewMarkdownRenderer renders Markdown with glamour. Auto style picks a
// light or dark theme on a TTY; elsewhere the colorless style is used.
func NewMarkdownRenderer(tty bool, width int) (RenderFunc, error) {
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle("notty")}
	if tty {
		opts = []glamour.TermRendererOption{glamour.WithAutoStyle()}
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	return r.Render, nil
}

// IsTerminal reports whether w is an interactive terminal, and its width.
func IsTerminal(w io.Writer) (bool, int) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return true, 0
	}
	return true, width
}

// TerminalChannel is a single-user channel over a line-oriented reader and
// a writer, used by the interactive CLI.
type TerminalChannel struct {
	in     io.Reader
	out    io.Writer
	render RenderFunc
	userID string
	prompt string

	mu       sync.Mutex
	done     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// TerminalOption configures a TerminalChannel.
type TerminalOption func(*TerminalChannel)

// WithRenderer sets the Markdown renderer. The default prints Markdown as is.
func WithRenderer(r RenderFunc) TerminalOption {
	return func(t *TerminalChannel) { t.render = r }
}

// WithPrompt sets the input prompt written before each line is read.
func WithPrompt(p string) TerminalOption {
	return func(t *TerminalChannel) { t.prompt = p }
}

// WithUserID sets the user id inbound messages carry.
func WithUserID(id string) TerminalOption {
	return func(t *TerminalChannel) { t.userID = id }
}

// NewTerminalChannel creates a terminal channel.
func NewTerminalChannel(in io.Reader, out io.Writer, opts ...TerminalOption) *TerminalChannel {
	t := &TerminalChannel{
		in:     in,
		out:    out,
		render: PlainRenderer,
		userID: "local",
		prompt: "> ",
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// UserID is the id inbound messages carry.
func (t *TerminalChannel) UserID() string {
	return t.userID
}

// Banner writes the application header, colored when out supports it.
func (t *TerminalChannel) Banner(title, subtitle string) {
	o := termenv.NewOutput(t.out)
	head := o.String(title).Bold().Foreground(o.Color("#FF8C66"))
	sub := o.String(subtitle).Faint()

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintf(t.out, "\n%s\n%s\n\n", head, sub)
}

func (t *TerminalChannel) SendMessage(_ context.Context, _ string, msg OutboundMessage) error {
	text := msg.Text
	if msg.ParseMode != "" {
		rendered, err := t.render(text)
		if err != nil {
			return fmt.Errorf("rendering message: %w", err)
		}
		text = rendered
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.out, text); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

func (t *TerminalChannel) SendTyping(_ context.Context, _ string) error {
	return nil
}

// Start reads lines until EOF, ctx is done or Stop is called. Lines are
// handled one at a time in order. Done is closed when reading ends.
func (t *TerminalChannel) Start(ctx context.Context, handler func(InboundMessage)) error {
	go t.readLoop(ctx, handler)
	return nil
}

func (t *TerminalChannel) Stop() error {
	t.stopOnce.Do(func() { close(t.stop) })
	return nil
}

// Done is closed when the input is exhausted or the channel stops.
func (t *TerminalChannel) Done() <-chan struct{} {
	return t.done
}

func (t *TerminalChannel) readLoop(ctx context.Context, handler func(InboundMessage)) {
	defer close(t.done)

	scanner := bufio.NewScanner(t.in)
	for {
		t.writePrompt()
		if !scanner.Scan() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		handler(InboundMessage{
			Channel: TerminalChannelName,
			UserID:  t.userID,
			Text:    line,
		})
	}
}

func (t *TerminalChannel) writePrompt() {
	if t.prompt == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.out, t.prompt)
}
