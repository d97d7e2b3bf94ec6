// Package printer writes the CLI's user-facing messages: coloured status
// lines on stdout and multi-part errors on stderr.
package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
)

func init() {
	// Colour stays on when piped; NO_COLOR turns it off
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)

	mu     sync.Mutex
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// SetOutput redirects status messages to stdout and error reports to stderr.
// A nil writer restores the process default. It returns a func restoring the
// previous writers.
func SetOutput(stdout, stderr io.Writer) (restore func()) {
	mu.Lock()
	defer mu.Unlock()

	prevOut, prevErr := out, errOut
	out, errOut = stdout, stderr
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return func() {
		mu.Lock()
		defer mu.Unlock()
		out, errOut = prevOut, prevErr
	}
}

func writers() (io.Writer, io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	return out, errOut
}

// ReportedError is returned once a message has been printed to stderr. Its
// text is only the title, so callers that print it again stay short.
type ReportedError struct {
	Title string
}

func (e *ReportedError) Error() string {
	return e.Title
}

// Success prints a green line prefixed with a checkmark.
func Success(format string, a ...any) {
	w, _ := writers()
	green.Fprint(w, prefixed("✓", fmt.Sprintf(format, a...)))
}

// Info prints a plain line.
func Info(format string, a ...any) {
	w, _ := writers()
	fmt.Fprintf(w, format, a...)
}

// Warning prints a yellow line prefixed with a warning sign.
func Warning(format string, a ...any) {
	w, _ := writers()
	yellow.Fprint(w, prefixed("⚠️", fmt.Sprintf(format, a...)))
}

// Step prints a progress line for multi-step operations.
func Step(format string, a ...any) {
	w, _ := writers()
	cyan.Fprint(w, prefixed("→", fmt.Sprintf(format, a...)))
}

// Error reports a failure as a title, an explanation and the suggested fixes,
// and returns a *ReportedError for cobra.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details, listed in key order.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	_, w := writers()

	red.Fprintf(w, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(w, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(w)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, context[k])
		}
	}

	writeSuggestions(w, suggestions)
	return &ReportedError{Title: title}
}

func writeSuggestions(w io.Writer, suggestions []string) {
	switch len(suggestions) {
	case 0:
		return
	case 1:
		fmt.Fprintf(w, "\n%s\n", suggestions[0])
	default:
		fmt.Fprint(w, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, s)
		}
	}
}

func prefixed(mark, msg string) string {
	if strings.HasPrefix(msg, mark) {
		return msg
	}
	if mark == "⚠️" {
		return mark + "  " + msg
	}
	return mark + " " + msg
}
