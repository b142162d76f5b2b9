// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import "strings"

// Profile captures a model family's structural constraints on message
// lists.
type Profile struct {
	// RequiresAlternation means the family rejects two consecutive
	// messages with the same role. Consecutive same-role messages are
	// merged by concatenating their text with a blank line.
	RequiresAlternation bool

	// InlineSystem means the family has no distinct system role.
	// System messages are rewritten as user messages with the content
	// wrapped between InstructionsOpen and InstructionsClose so the
	// model can still tell instructions from conversation.
	InlineSystem bool
}

// Delimiters wrapped around system instructions when a family requires
// them inlined into a user message.
const (
	InstructionsOpen  = "[BEGIN SYSTEM INSTRUCTIONS]"
	InstructionsClose = "[END SYSTEM INSTRUCTIONS]"
)

// familyProfiles maps model identifier prefixes to profiles. Matched
// in order; first prefix match wins.
var familyProfiles = []struct {
	prefix  string
	profile Profile
}{
	// Anthropic: strict user/assistant alternation, separate system
	// channel.
	{"claude", Profile{RequiresAlternation: true}},

	// OpenAI: system messages inline, role repeats tolerated.
	{"gpt", Profile{}},
	{"chatgpt", Profile{}},
	{"o1", Profile{}},
	{"o3", Profile{}},
	{"o4", Profile{}},

	// Gemini: alternation required, no system role on the oldest
	// API surface.
	{"gemini", Profile{RequiresAlternation: true, InlineSystem: true}},

	// Common open-weight servers accept OpenAI-shaped history.
	{"mistral", Profile{}},
	{"deepseek", Profile{}},
	{"llama", Profile{RequiresAlternation: true, InlineSystem: true}},
}

// defaultProfile is used for unrecognized models: the strictest
// shaping, which every family accepts.
var defaultProfile = Profile{RequiresAlternation: true, InlineSystem: true}

// ProfileForModel returns the shaping profile for a model identifier,
// matched by prefix. Unknown models get the strictest profile, which
// is valid input for every family.
func ProfileForModel(model string) Profile {
	lower := strings.ToLower(model)
	for _, entry := range familyProfiles {
		if strings.HasPrefix(lower, entry.prefix) {
			return entry.profile
		}
	}
	return defaultProfile
}

// Shape adapts a conversation history to a model family's constraints:
//
//  1. Windows the history to the leading system message plus the most
//     recent window non-system messages.
//  2. If the profile lacks a system role, rewrites system messages as
//     delimited user messages.
//  3. If the profile requires alternation, merges consecutive
//     same-role messages by concatenating text with a blank-line
//     separator; the merged message keeps the earlier timestamp and
//     author.
//
// The inline-system rewrite runs before merging so the output honors
// alternation even when both constraints apply. Relative order is
// always preserved and content is never dropped. Shaping input that
// already satisfies every constraint returns it unchanged.
func Shape(messages []Message, profile Profile, window int) []Message {
	shaped := truncate(messages, window)

	if profile.InlineSystem {
		shaped = inlineSystem(shaped)
	}
	if profile.RequiresAlternation {
		shaped = mergeAdjacent(shaped)
	}
	return shaped
}

// truncate returns the leading system message (when present) plus the
// most recent window non-system messages. Input that already fits is
// returned unchanged, making truncation idempotent.
func truncate(messages []Message, window int) []Message {
	if window < 0 {
		window = 0
	}

	systemCount := 0
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		systemCount = 1
	}

	rest := messages[systemCount:]
	if len(rest) <= window {
		return messages
	}

	result := make([]Message, 0, systemCount+window)
	result = append(result, messages[:systemCount]...)
	result = append(result, rest[len(rest)-window:]...)
	return result
}

// inlineSystem rewrites system messages as user messages with the
// instructions wrapped in the documented delimiters. Content already
// carrying the delimiters is left as is, so the rewrite is idempotent.
func inlineSystem(messages []Message) []Message {
	changed := false
	for _, message := range messages {
		if message.Role == RoleSystem {
			changed = true
			break
		}
	}
	if !changed {
		return messages
	}

	result := make([]Message, len(messages))
	copy(result, messages)
	for i, message := range result {
		if message.Role != RoleSystem {
			continue
		}
		text := message.Text()
		if !strings.HasPrefix(text, InstructionsOpen) {
			text = InstructionsOpen + "\n" + text + "\n" + InstructionsClose
		}
		result[i] = Message{
			Role:      RoleUser,
			Parts:     []Part{{Type: PartText, Text: text}},
			Name:      message.Name,
			Timestamp: message.Timestamp,
		}
	}
	return result
}

// mergeAdjacent merges runs of consecutive same-role messages into one
// message per run. Text content concatenates with a blank-line
// separator; non-text parts are carried over in order. The merged
// message keeps the first message's timestamp and author.
func mergeAdjacent(messages []Message) []Message {
	if !hasAdjacentSameRole(messages) {
		return messages
	}

	result := make([]Message, 0, len(messages))
	for _, message := range messages {
		if len(result) == 0 || result[len(result)-1].Role != message.Role {
			copied := message
			copied.Parts = append([]Part(nil), message.Parts...)
			result = append(result, copied)
			continue
		}
		merge(&result[len(result)-1], message)
	}
	return result
}

// merge folds later into earlier. When both boundary parts are text
// they concatenate with a blank-line separator; otherwise parts are
// appended as is.
func merge(earlier *Message, later Message) {
	for i, part := range later.Parts {
		if i == 0 && part.Type == PartText &&
			len(earlier.Parts) > 0 && earlier.Parts[len(earlier.Parts)-1].Type == PartText {
			earlier.Parts[len(earlier.Parts)-1].Text += "\n\n" + part.Text
			continue
		}
		earlier.Parts = append(earlier.Parts, part)
	}
}

func hasAdjacentSameRole(messages []Message) bool {
	for i := 1; i < len(messages); i++ {
		if messages[i].Role == messages[i-1].Role {
			return true
		}
	}
	return false
}
