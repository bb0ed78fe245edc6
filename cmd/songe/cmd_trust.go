package main

import (
	"fmt"

	"github.com/d2verb/songe/internal/ui"
)

type TrustCmd struct {
	List TrustListCmd `cmd:"" name:"list" aliases:"ls" help:"List trusted keys, optionally filtered"`
	Add  TrustAddCmd  `cmd:"" help:"Add a verify key to the trust list"`
	Rm   TrustRmCmd   `cmd:"" help:"Remove a key by value or 1-based index"`
}

type TrustListCmd struct {
	Substring string `arg:"" optional:"" help:"Show only keys containing this substring"`
}

func (c *TrustListCmd) Run() error {
	eng := newEngine()

	matches, warn, err := eng.TrustList(c.Substring)
	if err != nil {
		return err
	}
	if warn != nil {
		ui.PrintWarning(warn.Error())
	}

	entries := make([]ui.TrustEntry, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, ui.TrustEntry{
			Index: m.Index,
			Key:   m.Key,
			Start: m.Start,
			End:   m.End,
		})
	}
	ui.PrintTrustList(entries)
	return nil
}

type TrustAddCmd struct {
	Key string `arg:"" help:"Verify key (P…) to trust"`
}

func (c *TrustAddCmd) Run() error {
	eng := newEngine()

	if err := eng.TrustAdd(c.Key); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Trusted %s", c.Key))
	audit.Info("trust added", "key", c.Key)
	return nil
}

type TrustRmCmd struct {
	Selector string `arg:"" predictor:"trustkey" help:"Verify key or 1-based index to remove"`
}

func (c *TrustRmCmd) Run() error {
	eng := newEngine()

	removed, err := eng.TrustRemove(c.Selector)
	if err != nil {
		return err
	}
	if removed == "" {
		ui.PrintWarning(fmt.Sprintf("%s is not in the trust list", c.Selector))
		return nil
	}

	ui.PrintSuccess(fmt.Sprintf("Removed %s", removed))
	audit.Info("trust removed", "key", removed)
	return nil
}
