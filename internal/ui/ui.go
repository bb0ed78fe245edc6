// Package ui provides formatted output utilities for the CLI.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Color functions for consistent styling.
var (
	Green  = color.New(color.FgGreen).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	Dim    = color.New(color.Faint).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// Output is the destination for UI output.
// Defaults to os.Stdout but can be overridden for testing.
var Output io.Writer = os.Stdout

// ErrOutput is the destination for diagnostics.
var ErrOutput io.Writer = os.Stderr

// PrintSuccess prints a success message with green checkmark.
func PrintSuccess(message string) {
	fmt.Fprintf(Output, "%s %s\n", Green("✓"), message)
}

// PrintError prints an error message with red X.
func PrintError(message string) {
	fmt.Fprintf(ErrOutput, "%s %s\n", Red("✗"), message)
}

// PrintWarning prints a warning message with yellow exclamation.
func PrintWarning(message string) {
	fmt.Fprintf(ErrOutput, "%s %s\n", Yellow("⚠"), message)
}

// PrintKey prints a labeled key string. Keys are cyan so they stand out
// when copied from a terminal scrollback.
func PrintKey(label, key string) {
	fmt.Fprintf(Output, "%s %s\n", Bold(label+":"), Cyan(key))
}

// PrintVerdict prints the verification outcome. It goes to ErrOutput: on an
// embedded verification stdout carries the recovered file bytes.
func PrintVerdict(trusted bool, signer string) {
	if trusted {
		fmt.Fprintf(ErrOutput, "%s %s\n", Green("✓ Good signature"), Dim(fmt.Sprintf("(trusted key %s)", signer)))
	} else {
		fmt.Fprintf(ErrOutput, "%s %s\n", Green("✓ Good signature"), Yellow(fmt.Sprintf("(UNTRUSTED key %s)", signer)))
	}
}

// TrustEntry is one trust-list row for display.
type TrustEntry struct {
	Index int
	Key   string
	Start int // highlighted span, Start == End for no highlight
	End   int
}

// PrintTrustList prints trust-list entries with their 1-based indexes and
// an optional highlighted span (the matched substring).
func PrintTrustList(entries []TrustEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(Output, "No trusted keys.")
		return
	}

	for _, e := range entries {
		key := e.Key
		if e.End > e.Start {
			key = key[:e.Start] + Yellow(key[e.Start:e.End]) + key[e.End:]
		}
		fmt.Fprintf(Output, "  %s %s\n", Dim(fmt.Sprintf("%3d.", e.Index)), key)
	}
}
