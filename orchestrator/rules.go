// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// maxCandidates caps the narrowed catalog a follow-up round offers.
const maxCandidates = 3

//go:embed rules.jsonc
var embeddedRules []byte

// Pattern describes the plausible next steps after one function.
type Pattern struct {
	// Next lists the functions that finish a request this one
	// started, in preference order. At most maxCandidates entries.
	Next []string `json:"next"`

	// Auto continues on the function name alone. Set for read-only
	// functions whose results are invisible until a later call acts
	// on them.
	Auto bool `json:"auto"`
}

// Rules drive the keyword continuation strategy: which functions head
// a known multi-step pattern, and which phrases in the user's text
// signal a compound request.
type Rules struct {
	Patterns   map[string]Pattern `json:"patterns"`
	Cues       []string           `json:"cues"`
	PairedCues [][]string         `json:"pairedCues"`
}

// DefaultRules returns the embedded rule set. An error indicates a
// bug in the embedded document, not a runtime condition.
func DefaultRules() (Rules, error) {
	return parseRules(embeddedRules)
}

// LoadRules reads an operator-supplied rules file. The format is
// JSONC; the embedded document with comments is the reference.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("orchestrator: reading rules: %w", err)
	}
	rules, err := parseRules(data)
	if err != nil {
		return Rules{}, fmt.Errorf("orchestrator: %s: %w", path, err)
	}
	return rules, nil
}

func parseRules(data []byte) (Rules, error) {
	var rules Rules
	if err := json.Unmarshal(jsonc.ToJSON(data), &rules); err != nil {
		return Rules{}, fmt.Errorf("parsing rules: %w", err)
	}
	for name, pattern := range rules.Patterns {
		if len(pattern.Next) == 0 {
			return Rules{}, fmt.Errorf("pattern %s has no next steps", name)
		}
		if len(pattern.Next) > maxCandidates {
			return Rules{}, fmt.Errorf("pattern %s has %d next steps, limit %d", name, len(pattern.Next), maxCandidates)
		}
	}
	for i, pair := range rules.PairedCues {
		if len(pair) != 2 {
			return Rules{}, fmt.Errorf("paired cue %d has %d phrases, want 2", i, len(pair))
		}
	}
	return rules, nil
}
