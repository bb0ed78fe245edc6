package main

import (
	"fmt"

	"github.com/d2verb/songe/internal/ui"
)

type SignCmd struct {
	File    string `arg:"" type:"existingfile" help:"File to sign"`
	Comment string `short:"m" help:"Comment signed together with the file"`
	Embed   bool   `help:"Embed the file bytes in the signature record"`
}

func (c *SignCmd) Run() error {
	eng := newEngine()

	sigPath, err := eng.Sign(c.File, c.Comment, c.Embed)
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Signature written to %s", sigPath))
	audit.Info("file signed", "file", c.File, "embedded", c.Embed)
	return nil
}
