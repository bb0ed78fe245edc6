package main

import "github.com/d2verb/songe/internal/ui"

type PasswdCmd struct{}

func (c *PasswdCmd) Run() error {
	eng := newEngine()

	if err := eng.ChangePassphrase(); err != nil {
		return err
	}

	ui.PrintSuccess("Passphrase changed")
	ui.PrintWarning("The trust list must be re-signed: run a trust command to do so")
	audit.Info("passphrase changed")
	return nil
}
