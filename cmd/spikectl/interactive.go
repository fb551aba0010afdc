package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spikeai/spike/backend/pkg/models"
)

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i", "repl"},
	Short:   "Start an interactive question session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context(), newClient())
	},
}

// session holds the state of one interactive run.
type session struct {
	client     *Client
	in         *bufio.Scanner
	out        io.Writer
	propertyID string
	asked      int
}

func runInteractive(ctx context.Context, client *Client) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &session{
		client:     client,
		in:         bufio.NewScanner(os.Stdin),
		out:        os.Stdout,
		propertyID: settings.GetString("property_id"),
	}
	return s.run(ctx)
}

func (s *session) run(ctx context.Context) error {
	headerColor.Fprintln(s.out, "\n 🤖  SPIKE AI BACKEND - INTERACTIVE QUERY INTERFACE")
	fmt.Fprintln(s.out, rule)

	fmt.Fprint(s.out, "⏳ Checking server status... ")
	if err := s.client.Health(ctx); err != nil {
		errColor.Fprintln(s.out, "❌ Server not responding")
		warnColor.Fprintln(s.out, "   Start the server first: go run ./cmd/server")
		return err
	}
	okColor.Fprintln(s.out, "✅ Server is running!")

	if s.propertyID == "" {
		fmt.Fprintln(s.out, "\nDo you have a GA4 Property ID for analytics questions?")
		fmt.Fprintln(s.out, "  • Enter it for analytics + SEO questions")
		fmt.Fprintln(s.out, "  • Press ENTER to skip (SEO questions only)")
		s.propertyID, _ = s.prompt("📊 GA4 Property ID (or press Enter): ")
	}
	s.printMode()
	fmt.Fprintln(s.out, "💬 Type your question and press Enter. Commands: help, examples, clear, status, property, quit")

	for {
		fmt.Fprintln(s.out, rule)
		line, ok := s.prompt(fmt.Sprintf("\n💬 Your Question #%d: ", s.asked+1))
		if !ok {
			return nil
		}
		if line == "" {
			warnColor.Fprintln(s.out, "⚠️  Please enter a question or type 'quit' to exit")
			continue
		}
		if done := s.handle(ctx, line); done {
			headerColor.Fprintln(s.out, "\n 👋  Thank you for using Spike AI Backend!")
			return nil
		}
	}
}

// handle runs one command or question. It reports whether the session should end.
func (s *session) handle(ctx context.Context, line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit", "q", "bye":
		return true
	case "help":
		s.printHelp()
	case "examples":
		s.printExamples()
	case "clear":
		fmt.Fprint(s.out, "\033[2J\033[H")
	case "status":
		if err := s.client.Health(ctx); err != nil {
			printError(s.out, err)
		} else {
			okColor.Fprintln(s.out, "✅ Server is healthy")
		}
	case "property":
		s.propertyID, _ = s.prompt("📊 New GA4 Property ID (empty for SEO only): ")
		s.printMode()
	default:
		s.asked++
		fmt.Fprintln(s.out)
		response, err := s.ask(ctx, line)
		if err != nil {
			printError(s.out, err)
			return false
		}
		printResponse(s.out, response)
	}
	return false
}

func (s *session) ask(ctx context.Context, query string) (string, error) {
	final, err := s.client.Stream(ctx, query, s.propertyID, func(ev models.StreamEvent) {
		if ev.Response == "" {
			printStep(s.out, ev.Step, ev.Status)
		}
	})
	if err != nil {
		return "", err
	}
	return final.Response, nil
}

func (s *session) prompt(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *session) printMode() {
	if s.propertyID == "" {
		okColor.Fprintln(s.out, "\n✓ Configuration: SEO Mode")
		return
	}
	okColor.Fprintln(s.out, "\n✓ Configuration: Analytics + SEO Mode")
	okColor.Fprintf(s.out, "✓ Property ID: %s\n", s.propertyID)
}

func (s *session) printHelp() {
	headerColor.Fprintln(s.out, "\n⚡ QUICK COMMANDS")
	fmt.Fprintln(s.out, "  help      → Show this help message")
	fmt.Fprintln(s.out, "  examples  → Show example questions")
	fmt.Fprintln(s.out, "  clear     → Clear the screen")
	fmt.Fprintln(s.out, "  status    → Check server health")
	fmt.Fprintln(s.out, "  property  → Change GA4 Property ID")
	fmt.Fprintln(s.out, "  quit      → Exit")
}

func (s *session) printExamples() {
	headerColor.Fprintln(s.out, "\n📝 EXAMPLE QUESTIONS")
	if s.propertyID != "" {
		fmt.Fprintln(s.out, "📊 Analytics:")
		fmt.Fprintln(s.out, "  • How many users visited my site last week?")
		fmt.Fprintln(s.out, "  • Show me page views by traffic source")
		fmt.Fprintln(s.out, "  • What's the bounce rate for mobile users?")
	}
	fmt.Fprintln(s.out, "🔍 SEO & Accessibility:")
	fmt.Fprintln(s.out, "  • List pages with their HTTP status codes")
	fmt.Fprintln(s.out, "  • Which pages have titles longer than 60 characters?")
	fmt.Fprintln(s.out, "  • Group pages by indexability")
	if s.propertyID != "" {
		fmt.Fprintln(s.out, "🔄 Combined:")
		fmt.Fprintln(s.out, "  • Show high-traffic pages with SEO problems")
	}
}
