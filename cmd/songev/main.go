// Command songev is the verify-only companion to songe. It checks
// signatures and reports trust but carries no key-management commands; an
// engine without a passphrase source can never touch the wrapped signing
// key.
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/d2verb/songe/internal/config"
	"github.com/d2verb/songe/internal/engine"
	"github.com/d2verb/songe/internal/sigrecord"
	"github.com/d2verb/songe/internal/ui"
)

var version = "dev"

type CLI struct {
	File    string           `arg:"" help:"Signed file (its .sgsig must sit next to it)"`
	Version kong.VersionFlag `help:"Show version"`
}

func main() {
	cli := CLI{}
	kong.Parse(&cli,
		kong.Name("songev"),
		kong.Description("Verify a file signed with songe"),
		kong.UsageOnError(),
		kong.Vars{"version": "songev version " + version},
	)

	eng := engine.New(config.Default(), ".")

	// Recovered embedded bytes go to stdout; diagnostics go to stderr.
	verdict, err := eng.Verify(cli.File, os.Stdout, os.Stderr)
	if err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}

	ui.PrintVerdict(verdict == engine.GoodTrusted, signerOf(cli.File))
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
