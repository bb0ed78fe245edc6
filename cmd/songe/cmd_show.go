package main

import "github.com/d2verb/songe/internal/ui"

type ShowCmd struct {
	Secret bool `help:"Show the signing key instead (prompts for the passphrase)"`
}

func (c *ShowCmd) Run() error {
	eng := newEngine()

	path, err := eng.KeyFilePath()
	if err == nil {
		ui.PrintKey("Key file", path)
	}

	if c.Secret {
		signingKey, err := eng.SigningKeyString()
		if err != nil {
			return err
		}
		ui.PrintKey("Signing key", signingKey)
		ui.PrintWarning("Anyone with this string can sign as you")
		return nil
	}

	verifyKey, err := eng.VerifyKeyString()
	if err != nil {
		return err
	}
	ui.PrintKey("Verify key", verifyKey)
	return nil
}
