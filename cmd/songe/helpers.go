package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/d2verb/songe/internal/config"
	"github.com/d2verb/songe/internal/engine"
	"github.com/d2verb/songe/internal/logging"
	"golang.org/x/term"
)

// stdin is the input source for prompts. Can be replaced for testing.
var stdin = bufio.NewReader(os.Stdin)

func newEngine() *engine.Engine {
	return engine.New(config.Default(), ".",
		engine.WithPassphraseFunc(readPassphrase),
	)
}

// readPassphrase prompts on stderr and reads without echo. When stdin is
// not a terminal (pipes, tests) it falls back to reading a line.
func readPassphrase(prompt string, confirm bool) ([]byte, error) {
	pw, err := readSecretLine(prompt)
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return nil, errors.New("passphrase must not be empty")
	}

	if confirm {
		again, err := readSecretLine(prompt + " (again)")
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(pw, again) {
			return nil, errors.New("passphrases do not match")
		}
	}
	return pw, nil
}

func readSecretLine(prompt string) ([]byte, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, &ExitError{Code: exitSetup, Message: fmt.Sprintf("read passphrase: %v", err)}
		}
		return pw, nil
	}

	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

// promptLine prompts the user for input and returns the trimmed response.
func promptLine(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	input, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// audit records key, signing, and trust operations. It never gets in the
// way: with no resolvable home directory events are dropped.
var audit = newAuditLogger()

func newAuditLogger() *slog.Logger {
	path, err := config.LogPath()
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logging.NewLogger(logging.NewRotatingWriter(logging.DefaultConfig(path)))
}
