// Package presenter renders pipeline events on a terminal.
//
// A Console owns a session.Session and is driven from a single goroutine:
// it waits on the dispatcher, drains pending events, folds them into the
// session and prints what changed.
package presenter

import (
	"context"
	"fmt"
	"io"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/image-text-extractor/internal/config"
	"github.com/ironsheep/image-text-extractor/internal/pipeline"
	"github.com/ironsheep/image-text-extractor/internal/session"
)

// Source is the event queue a Console drains.
type Source interface {
	Ready() <-chan struct{}
	Drain() []pipeline.Event
}

// Console prints status lines and recognized text.
type Console struct {
	text    io.Writer
	status  io.Writer
	session *session.Session
	colors  map[pipeline.Severity]string
	quiet   bool
}

// Option configures a Console.
type Option func(*Console)

// WithPalette colors status lines by severity. Invalid hex values are
// rendered without color.
func WithPalette(p config.Palette) Option {
	return func(c *Console) {
		c.colors = map[pipeline.Severity]string{
			pipeline.SeverityInfo:    ansiColor(p.Info),
			pipeline.SeveritySuccess: ansiColor(p.Success),
			pipeline.SeverityWarning: ansiColor(p.Warning),
			pipeline.SeverityError:   ansiColor(p.Error),
		}
	}
}

// WithQuiet suppresses everything except recognized text and errors.
func WithQuiet(quiet bool) Option {
	return func(c *Console) { c.quiet = quiet }
}

// NewConsole creates a console writing recognized text to text and status
// lines to status.
func NewConsole(text, status io.Writer, sess *session.Session, opts ...Option) *Console {
	c := &Console{
		text:    text,
		status:  status,
		session: sess,
		colors:  map[pipeline.Severity]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the console renders.
func (c *Console) Session() *session.Session {
	return c.session
}

// Run renders events until done is closed or ctx is canceled. Events still
// pending when done closes are rendered before returning.
func (c *Console) Run(ctx context.Context, src Source, done <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			c.Render(src.Drain())
			return ctx.Err()
		case <-done:
			c.Render(src.Drain())
			return nil
		case <-src.Ready():
			c.Render(src.Drain())
		}
	}
}

// Render applies events to the session and prints them in order.
func (c *Console) Render(events []pipeline.Event) {
	for _, ev := range events {
		c.session.Apply(ev)

		switch ev.Type {
		case pipeline.EventTypeStatus:
			if ev.Status != nil {
				c.printStatus(*ev.Status)
			}
		case pipeline.EventTypeResult:
			if ev.Result != nil {
				c.printResult(*ev.Result)
			}
		case pipeline.EventTypeFailure:
			// The status line that follows a failure carries the message.
		}
	}
}

func (c *Console) printStatus(st pipeline.Status) {
	if c.quiet && st.Severity != pipeline.SeverityError {
		return
	}
	if code := c.colors[st.Severity]; code != "" {
		fmt.Fprintf(c.status, "%s%s%s\n", code, st.Message, ansiReset)
		return
	}
	fmt.Fprintln(c.status, st.Message)
}

func (c *Console) printResult(r pipeline.Result) {
	text := r.Text
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	fmt.Fprint(c.text, text)

	if !c.quiet && r.SidecarPath != "" {
		c.printStatus(pipeline.Status{
			Message:  "Saved " + r.SidecarPath,
			Severity: pipeline.SeverityInfo,
		})
	}
}

const ansiReset = "\x1b[0m"

// ansiColor converts a hex color into a 24-bit foreground escape sequence.
func ansiColor(hex string) string {
	col, err := colorful.Hex(hex)
	if err != nil {
		return ""
	}
	r, g, b := col.RGB255()
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
}
