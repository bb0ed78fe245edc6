package main

import (
	"os"

	"github.com/d2verb/songe/internal/config"
	"github.com/d2verb/songe/internal/engine"
	"github.com/d2verb/songe/internal/sigrecord"
	"github.com/d2verb/songe/internal/ui"
)

type VerifyCmd struct {
	File string `arg:"" help:"Signed file (its .sgsig must sit next to it)"`
}

func (c *VerifyCmd) Run() error {
	eng := newEngine()

	// Recovered embedded bytes go to stdout; everything human-readable
	// goes to stderr so the output stays pipeable.
	verdict, err := eng.Verify(c.File, os.Stdout, os.Stderr)
	if err != nil {
		audit.Info("verification failed", "file", c.File, "error", err.Error())
		return err
	}

	signer := signerOf(c.File)
	ui.PrintVerdict(verdict == engine.GoodTrusted, signer)
	audit.Info("file verified", "file", c.File, "trusted", verdict == engine.GoodTrusted)
	return nil
}

// signerOf re-reads the record for display purposes only; verification has
// already happened.
func signerOf(file string) string {
	data, err := os.ReadFile(config.Default().SigPath(file))
	if err != nil {
		return "?"
	}
	rec, err := sigrecord.Parse(data)
	if err != nil {
		return "?"
	}
	return rec.VerifyKey
}
