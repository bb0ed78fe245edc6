package main

import (
	"errors"

	"github.com/d2verb/songe/internal/ui"
)

type ImportCmd struct {
	Key string `arg:"" optional:"" help:"Signing key (K…); prompted for when omitted"`
}

func (c *ImportCmd) Run() error {
	key := c.Key
	if key == "" {
		var err error
		key, err = promptLine("Signing key (K…)")
		if err != nil {
			return err
		}
	}
	if key == "" {
		return errors.New("no signing key given")
	}

	eng := newEngine()
	verifyKey, err := eng.Import(key)
	if err != nil {
		return err
	}

	ui.PrintSuccess("Signing key imported")
	ui.PrintKey("Verify key", verifyKey)
	audit.Info("key imported", "verifykey", verifyKey)
	return nil
}
