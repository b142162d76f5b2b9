// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "testing"

var mrkdwnCases = []struct {
	name  string
	input string
	want  string
}{
	{"plain text", "no markup at all", "no markup at all"},
	{"bold", "a **bold** word", "a *bold* word"},
	{"italic", "an __italic__ word", "an _italic_ word"},
	{"bold italic", "***both***", "*_both_*"},
	{"strikethrough", "~~retracted~~", "~retracted~"},
	{"heading", "# Release notes\nbody text", "*Release notes*\nbody text"},
	{"deep heading", "### Details", "*Details*"},
	{"heading with bold", "## **Big**", "*_Big_*"},
	{"link", "see [the docs](https://example.com/a)", "see <https://example.com/a|the docs>"},
	{"inline code kept", "run `**not bold**` now", "run `**not bold**` now"},
	{"fenced code kept", "```\n**code**\n# not a heading\n```", "```\n**code**\n# not a heading\n```"},
	{"unterminated fence kept", "```go\n**still code**", "```go\n**still code**"},
	{"mixed code and text", "**a** `**b**` **c**", "*a* `**b**` *c*"},
	{"single asterisk kept", "already *slack bold*", "already *slack bold*"},
	{"single underscore kept", "already _slack italic_", "already _slack italic_"},
	{"multiple rules", "# Plan\n**Goal**: ship [v2](https://example.com/v2)", "*Plan*\n*Goal*: ship <https://example.com/v2|v2>"},
}

func TestToMrkdwn(t *testing.T) {
	t.Parallel()

	for _, testCase := range mrkdwnCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if got := ToMrkdwn(testCase.input); got != testCase.want {
				t.Errorf("ToMrkdwn(%q) = %q, want %q", testCase.input, got, testCase.want)
			}
		})
	}
}

// Assistant text can pass through the conversion twice (once via the
// store's assistant filter, once when a catalog function posts it),
// so converting already-converted text must change nothing.
func TestToMrkdwnIdempotent(t *testing.T) {
	t.Parallel()

	for _, testCase := range mrkdwnCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			once := ToMrkdwn(testCase.input)
			if twice := ToMrkdwn(once); twice != once {
				t.Errorf("second pass changed output: %q -> %q", once, twice)
			}
		})
	}
}
