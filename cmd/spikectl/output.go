package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed, color.Bold)
	dimColor    = color.New(color.Faint)
)

const rule = "──────────────────────────────────────────────────────────────────────"

func printResponse(w io.Writer, response string) {
	fmt.Fprintln(w)
	headerColor.Fprintln(w, "🤖  AI RESPONSE")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, strings.TrimRight(response, "\n"))
	fmt.Fprintln(w, rule)
}

func printError(w io.Writer, err error) {
	errColor.Fprintf(w, "❌ Error: %v\n", err)
}

func printStep(w io.Writer, step int, status string) {
	if step > 0 {
		dimColor.Fprintf(w, "  [%d/5] %s\n", step, status)
		return
	}
	dimColor.Fprintf(w, "  %s\n", status)
}
