package main

import (
	"strings"

	"github.com/d2verb/songe/internal/config"
	"github.com/d2verb/songe/internal/truststore"
	"github.com/posener/complete"
)

// trustKeyPredictor completes 'trust rm' arguments with the current
// trust-list entries.
type trustKeyPredictor struct{}

func newTrustKeyPredictor() complete.Predictor {
	return &trustKeyPredictor{}
}

// Predict implements complete.Predictor. Completion must stay fast and
// silent, so the list is read without signature verification and errors
// produce no suggestions.
func (p *trustKeyPredictor) Predict(args complete.Args) []string {
	store := truststore.NewStore(config.Default(), ".")
	keys, err := store.LoadUnverified()
	if err != nil && !truststore.IsUnsigned(err) {
		return nil
	}

	var results []string
	for _, k := range keys {
		if strings.HasPrefix(k, args.Last) {
			results = append(results, k)
		}
	}
	return results
}
