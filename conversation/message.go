// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleSystem marks the standing instructions seeded into every
	// conversation.
	RoleSystem Role = "system"
	// RoleUser marks messages from humans.
	RoleUser Role = "user"
	// RoleAssistant marks messages from the model.
	RoleAssistant Role = "assistant"
)

// PartType discriminates the variants of a message Part.
type PartType string

const (
	// PartText is plain text.
	PartText PartType = "text"
	// PartImage is an image reference with a processing detail hint.
	PartImage PartType = "image"
)

// Part is one element of a message's content.
type Part struct {
	Type PartType `json:"type"`

	// Text is set for PartText parts.
	Text string `json:"text,omitempty"`

	// ImageURL is set for PartImage parts.
	ImageURL string `json:"image_url,omitempty"`

	// Detail hints the resolution an image should be processed at
	// ("low", "high", or "auto").
	Detail string `json:"detail,omitempty"`
}

// Message is one turn in a conversation.
type Message struct {
	Role Role `json:"role"`

	// Parts is the ordered message content.
	Parts []Part `json:"parts"`

	// Name optionally attributes the message to an author, for
	// multi-user threads.
	Name string `json:"name,omitempty"`

	// Timestamp is assigned at append time and is monotonically
	// non-decreasing within a conversation (ties allowed).
	Timestamp time.Time `json:"timestamp"`
}

// Text returns the concatenated text parts of the message.
func (message Message) Text() string {
	var builder strings.Builder
	for _, part := range message.Parts {
		if part.Type == PartText {
			builder.WriteString(part.Text)
		}
	}
	return builder.String()
}

// TextMessage constructs a message with a single text part.
func TextMessage(role Role, text string) Message {
	return Message{
		Role:  role,
		Parts: []Part{{Type: PartText, Text: text}},
	}
}
