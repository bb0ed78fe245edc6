package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/d2verb/songe/internal/ui"
	"github.com/willabides/kongplete"
)

var version = "dev"

type CLI struct {
	Generate GenerateCmd `cmd:"" help:"Create a new key pair for this project"`
	Import   ImportCmd   `cmd:"" help:"Import a signing key (K…) and derive the pair"`
	Passwd   PasswdCmd   `cmd:"" help:"Change the key passphrase"`
	Show     ShowCmd     `cmd:"" help:"Show the verify key (or the signing key with --secret)"`
	Sign     SignCmd     `cmd:"" help:"Sign a file"`
	Verify   VerifyCmd   `cmd:"" help:"Verify a signed file"`
	Trust    TrustCmd    `cmd:"" help:"Manage the list of trusted verify keys"`

	InstallCompletions kongplete.InstallCompletions `cmd:"" name:"completion" help:"Install shell completion"`
	Version            VersionCmd                   `cmd:"" help:"Show version"`
}

func main() {
	cli := CLI{}
	parser := kong.Must(&cli,
		kong.Name("songe"),
		kong.Description("Sign and verify project files with an Ed25519 key"),
		kong.UsageOnError(),
	)

	kongplete.Complete(parser,
		kongplete.WithPredictor("trustkey", newTrustKeyPredictor()),
	)

	ctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.FatalIfErrorf(err)
	}

	if err := ctx.Run(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(exitCodeFor(err))
	}
}
