// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"regexp"
	"strings"
)

// Markdown constructs converted to Slack mrkdwn. Each rule's output
// cannot match any rule's input: double asterisks become
// single, double underscores become single, headings lose their hash
// prefix, links lose their brackets. That makes ToMrkdwn idempotent,
// which matters because assistant text may pass through the store
// filter and a catalog function in the same run.
var (
	// codeSpan matches fenced blocks (terminated, or running to the
	// end of text when the closing fence is missing) and inline code.
	// Matched spans pass through ToMrkdwn untouched.
	codeSpan = regexp.MustCompile("(?s)```.*?```|```.*$|`[^`\n]+`")

	heading        = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.*)$`)
	boldItalic     = regexp.MustCompile(`\*\*\*([^*]+)\*\*\*`)
	bold           = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	underscoreBold = regexp.MustCompile(`__([^_]+)__`)
	strikethrough  = regexp.MustCompile(`~~([^~]+)~~`)
	link           = regexp.MustCompile(`\[([^\]]*)\]\(([^()\s]+)\)`)
)

// ToMrkdwn converts common markdown emphasis to Slack mrkdwn:
// `**bold**` → `*bold*`, `__italic__` → `_italic_`, `***both***` →
// `*_both_*`, `~~strike~~` → `~strike~`, `# heading` → `*heading*`,
// and `[label](url)` → `<url|label>`. Code fences and inline code
// spans pass through unchanged. Single-asterisk emphasis is left
// alone: rewriting it would make the conversion feed on its own
// output.
//
// ToMrkdwn(ToMrkdwn(s)) == ToMrkdwn(s) for all s.
func ToMrkdwn(text string) string {
	var converted strings.Builder
	last := 0
	for _, span := range codeSpan.FindAllStringIndex(text, -1) {
		converted.WriteString(convertSegment(text[last:span[0]]))
		converted.WriteString(text[span[0]:span[1]])
		last = span[1]
	}
	converted.WriteString(convertSegment(text[last:]))
	return converted.String()
}

// convertSegment applies the mrkdwn rules to text known to contain no
// code spans. Rule order matters: headings may produce triple
// asterisks (`# **t**` → `***t***`), which the bold-italic rule then
// resolves, and bold-italic must run before bold so `***x***` is not
// half-consumed as `**x**`.
func convertSegment(text string) string {
	text = heading.ReplaceAllString(text, "*$1*")
	text = boldItalic.ReplaceAllString(text, "*_$1_*")
	text = bold.ReplaceAllString(text, "*$1*")
	text = underscoreBold.ReplaceAllString(text, "_$1_")
	text = strikethrough.ReplaceAllString(text, "~$1~")
	text = link.ReplaceAllString(text, "<$2|$1>")
	return text
}
