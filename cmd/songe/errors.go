package main

import (
	"errors"

	"github.com/d2verb/songe/internal/keyfile"
)

// Exit codes for CLI commands.
const (
	exitSuccess = 0
	exitError   = 1
	exitSetup   = 2
)

// ExitError represents an error that should cause the process to exit with a
// specific code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// exitCodeFor maps an error to the process exit code: 2 for setup problems
// (no key pair generated yet), 1 for everything else.
func exitCodeFor(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	if keyfile.IsNotFound(err) {
		return exitSetup
	}
	return exitError
}
