// Package ui formats command-line output: tables, headers and error reports.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Report is a command failure rendered for a terminal
type Report struct {
	Title       string
	Problem     string
	Suggestions []string
	Hints       []string
}

// Format renders the report. Example:
//
//	✗ UNKNOWN TYPE: storys
//	   Did you mean: stories?
//	   → List types: inkwell types
func (r Report) Format(noColor bool) string {
	header := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if noColor {
		header.DisableColor()
		yellow.DisableColor()
		cyan.DisableColor()
	}

	var b strings.Builder
	if r.Title != "" {
		header.Fprintf(&b, "✗ %s: %s\n", strings.ToUpper(r.Title), r.Problem)
	} else {
		header.Fprintf(&b, "✗ %s\n", r.Problem)
	}
	if len(r.Suggestions) > 0 {
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(r.Suggestions, ", "))
	}
	for _, hint := range r.Hints {
		cyan.Fprintf(&b, "   → %s\n", hint)
	}
	return b.String()
}

// Write renders the report to w
func (r Report) Write(w io.Writer, noColor bool) {
	fmt.Fprint(w, r.Format(noColor))
}

// UnknownType reports a resource type that is not registered
func UnknownType(name string, known []string) Report {
	return Report{
		Title:       "unknown type",
		Problem:     name,
		Suggestions: Suggest(name, known, 3),
		Hints:       []string{"List types: inkwell types"},
	}
}

// ConfigProblem reports a configuration that failed to load
func ConfigProblem(err error) Report {
	return Report{
		Title:   "configuration error",
		Problem: err.Error(),
		Hints: []string{
			"Check inkwell.yaml or the INKWELL_* environment",
			"Get help: inkwell serve --help",
		},
	}
}

// Failure reports any other command error
func Failure(err error) Report {
	return Report{Problem: err.Error()}
}
