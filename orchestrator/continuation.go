// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import "strings"

// Decision is a strategy's verdict after one dispatch round.
type Decision struct {
	// Continue requests a follow-up model round.
	Continue bool

	// Candidates names the functions the follow-up round may offer,
	// at most maxCandidates. Ignored when Continue is false.
	Candidates []string
}

// Strategy decides whether a dispatch round left the user's request
// unfinished. Implementations see the first and last function
// dispatched in the round just completed and the user's original
// text, never the full conversation, which keeps the decision cheap
// and deterministic.
type Strategy interface {
	Evaluate(firstFunction, lastFunction, userText string) Decision
}

// KeywordStrategy is the rule-table continuation heuristic: a round
// continues when its last function is an auto-continue pattern head,
// or when it heads any pattern and the user's text carries a
// compound-request cue. Candidates come from the FIRST function's
// pattern: later calls in a batch are usually dependents of the
// first, so the first call names the request's primary step.
type KeywordStrategy struct {
	rules Rules
}

// NewKeywordStrategy builds the strategy from a rule set, typically
// [DefaultRules] or an operator override via [LoadRules].
func NewKeywordStrategy(rules Rules) *KeywordStrategy {
	return &KeywordStrategy{rules: rules}
}

// Evaluate implements [Strategy].
func (s *KeywordStrategy) Evaluate(firstFunction, lastFunction, userText string) Decision {
	head, ok := s.rules.Patterns[firstFunction]
	if !ok || len(head.Next) == 0 {
		return Decision{}
	}
	candidates := head.Next
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	last, ok := s.rules.Patterns[lastFunction]
	if ok && last.Auto {
		return Decision{Continue: true, Candidates: candidates}
	}
	if s.textHasCue(userText) {
		return Decision{Continue: true, Candidates: candidates}
	}
	return Decision{}
}

// textHasCue reports whether the user's text signals a compound
// request: any single cue phrase, or both halves of a paired cue.
func (s *KeywordStrategy) textHasCue(userText string) bool {
	text := strings.ToLower(userText)
	for _, cue := range s.rules.Cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	for _, pair := range s.rules.PairedCues {
		if len(pair) == 2 && strings.Contains(text, pair[0]) && strings.Contains(text, pair[1]) {
			return true
		}
	}
	return false
}
