package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	yokopoke "github.com/YOKOPOKE/yokopoke-sub000"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/presentation/tui"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/google/uuid"
)

// TerminalGateway prints responses instead of delivering them, and remembers
// the last choices so the chat can map a typed number to a button or row.
type TerminalGateway struct {
	out    io.Writer
	render tui.Renderer

	mu      sync.Mutex
	choices []tui.Choice
}

// NewTerminalGateway creates a gateway writing rendered responses to out.
func NewTerminalGateway(out io.Writer, render tui.Renderer) *TerminalGateway {
	return &TerminalGateway{out: out, render: render}
}

// Send renders resp to the terminal.
func (g *TerminalGateway) Send(ctx context.Context, to string, resp domain.Response) error {
	text, err := g.render(resp)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if c := tui.Choices(resp); len(c) > 0 {
		g.choices = c
	}
	_, err = fmt.Fprintf(g.out, "🐼 %s\n", strings.TrimRight(text, "\n"))
	return err
}

// resolve maps "2" to the second choice shown last.
func (g *TerminalGateway) resolve(input string) (tui.Choice, bool) {
	n, err := strconv.Atoi(input)
	if err != nil {
		return tui.Choice{}, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if n < 1 || n > len(g.choices) {
		return tui.Choice{}, false
	}
	return g.choices[n-1], true
}

// Chat runs a local conversation against bot as the customer phone, reading
// lines from in until EOF, "/salir" or ctx is done. A number picks one of
// the choices shown last.
func Chat(ctx context.Context, bot *yokopoke.Bot, gw *TerminalGateway, phone string, in io.Reader, prompt io.Writer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(prompt, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(prompt)
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		if line == "/salir" || line == "/exit" {
			return nil
		}

		msg := domain.Message{
			ID:        uuid.NewString(),
			From:      phone,
			Kind:      domain.KindText,
			Text:      line,
			Timestamp: time.Now(),
		}
		if c, ok := gw.resolve(line); ok {
			msg.Kind = domain.KindInteractive
			msg.ReplyID = c.ID
			msg.Text = c.Title
		}
		if _, err := bot.Handle(ctx, msg); err != nil {
			return err
		}
	}
}
