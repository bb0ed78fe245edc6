package main

import (
	"fmt"

	"github.com/d2verb/songe/internal/ui"
)

type GenerateCmd struct{}

func (c *GenerateCmd) Run() error {
	eng := newEngine()

	verifyKey, err := eng.Generate()
	if err != nil {
		return err
	}

	path, err := eng.KeyFilePath()
	if err != nil {
		path = "?"
	}

	ui.PrintSuccess(fmt.Sprintf("Key pair created in %s", path))
	ui.PrintKey("Verify key", verifyKey)
	audit.Info("key generated", "verifykey", verifyKey)
	return nil
}
