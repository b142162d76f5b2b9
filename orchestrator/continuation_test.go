// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"reflect"
	"testing"
)

func newTestStrategy(t *testing.T) *KeywordStrategy {
	t.Helper()
	rules, err := DefaultRules()
	if err != nil {
		t.Fatalf("DefaultRules: %v", err)
	}
	return NewKeywordStrategy(rules)
}

func TestKeywordStrategyEvaluate(t *testing.T) {
	t.Parallel()

	strategy := newTestStrategy(t)

	tests := []struct {
		name           string
		first, last    string
		text           string
		wantContinue   bool
		wantCandidates []string
	}{
		{
			name:         "side-effect head without cue stops",
			first:        "createChannel",
			last:         "createChannel",
			text:         "create a channel called launch-prep",
			wantContinue: false,
		},
		{
			name:           "side-effect head with cue continues",
			first:          "createChannel",
			last:           "createChannel",
			text:           "Create a channel called launch-prep and invite Dana and Lee",
			wantContinue:   true,
			wantCandidates: []string{"inviteToChannel", "sendMessage", "setChannelTopic"},
		},
		{
			name:           "read-only head continues without cue",
			first:          "searchMessages",
			last:           "searchMessages",
			text:           "what did we decide about the launch date",
			wantContinue:   true,
			wantCandidates: []string{"sendMessage", "sendDirectMessage"},
		},
		{
			name:         "unknown head stops even with cue",
			first:        "sendMessage",
			last:         "sendMessage",
			text:         "post the update and then archive the channel",
			wantContinue: false,
		},
		{
			name:           "paired cue fires on both halves",
			first:          "createChannel",
			last:           "createChannel",
			text:           "Please create the launch channel so we can invite the crew",
			wantContinue:   true,
			wantCandidates: []string{"inviteToChannel", "sendMessage", "setChannelTopic"},
		},
		{
			name:         "single paired-cue half is not a cue",
			first:        "createChannel",
			last:         "createChannel",
			text:         "create a channel for the offsite",
			wantContinue: false,
		},
		{
			name:           "cue matching ignores case",
			first:          "listUsers",
			last:           "listUsers",
			text:           "List everyone AND THEN dm the admins",
			wantContinue:   true,
			wantCandidates: []string{"inviteToChannel", "sendDirectMessage"},
		},
		{
			name:           "auto flag read from the last function",
			first:          "createChannel",
			last:           "searchMessages",
			text:           "make the channel",
			wantContinue:   true,
			wantCandidates: []string{"inviteToChannel", "sendMessage", "setChannelTopic"},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			decision := strategy.Evaluate(test.first, test.last, test.text)
			if decision.Continue != test.wantContinue {
				t.Fatalf("Continue = %v, want %v", decision.Continue, test.wantContinue)
			}
			if !test.wantContinue {
				return
			}
			if !reflect.DeepEqual(decision.Candidates, test.wantCandidates) {
				t.Errorf("Candidates = %v, want %v", decision.Candidates, test.wantCandidates)
			}
		})
	}
}

func TestKeywordStrategyCapsCandidates(t *testing.T) {
	t.Parallel()

	// A hand-built rule set can exceed the cap; Evaluate still clamps.
	strategy := NewKeywordStrategy(Rules{
		Patterns: map[string]Pattern{
			"listChannels": {
				Next: []string{"a", "b", "c", "d", "e"},
				Auto: true,
			},
		},
	})

	decision := strategy.Evaluate("listChannels", "listChannels", "show me the channels")
	if !decision.Continue {
		t.Fatal("expected continuation")
	}
	if len(decision.Candidates) != maxCandidates {
		t.Errorf("candidates length = %d, want %d", len(decision.Candidates), maxCandidates)
	}
}
