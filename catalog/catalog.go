// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parleyhq/parley/chat"
	"github.com/parleyhq/parley/function"
)

// maxListedItems caps the entries a listing function returns in its
// payload. Full workspace listings can run to thousands of entries;
// the model only needs enough to act on.
const maxListedItems = 50

// Config holds the collaborators catalog handlers bind to.
type Config struct {
	// Client executes Slack Web API calls. Required.
	Client *chat.Client

	// Logger receives handler-level logging. Nil means slog.Default().
	Logger *slog.Logger
}

// New builds the full Slack function registry. Definitions are
// generated from each handler's parameter struct; a duplicate or
// malformed definition is a construction error, surfaced at startup.
func New(config Config) (*function.Registry, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("catalog: Client is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &catalog{client: config.Client, logger: logger}

	return function.NewRegistry(
		define("sendMessage",
			"Send a message to a Slack channel. Use thread_ts to reply inside an existing thread.",
			c.sendMessage),
		define("sendDirectMessage",
			"Send a direct message to a Slack user.",
			c.sendDirectMessage),
		define("updateMessage",
			"Replace the text of a message the bot previously posted.",
			c.updateMessage),
		define("deleteMessage",
			"Delete a message the bot previously posted.",
			c.deleteMessage),
		define("addReaction",
			"Add an emoji reaction to a message.",
			c.addReaction),
		define("uploadFile",
			"Upload a text file to a channel, with optional title and thread.",
			c.uploadFile),
		define("createChannel",
			"Create a Slack channel. Names are normalized to Slack's format (lowercase, hyphens).",
			c.createChannel),
		define("inviteToChannel",
			"Invite one or more users to a channel.",
			c.inviteToChannel),
		define("archiveChannel",
			"Archive a channel.",
			c.archiveChannel),
		define("setChannelTopic",
			"Set a channel's topic.",
			c.setChannelTopic),
		define("listChannels",
			"List the workspace's non-archived channels.",
			c.listChannels),
		define("channelHistory",
			"Fetch recent messages from a channel, newest first.",
			c.channelHistory),
		define("listUsers",
			"List the workspace's active members.",
			c.listUsers),
		define("userInfo",
			"Look up a Slack user by ID.",
			c.userInfo),
		define("searchMessages",
			"Search workspace messages. Supports Slack modifiers like in:#channel and from:@user.",
			c.searchMessages),
	)
}

// catalog carries the shared collaborators into the handler methods.
type catalog struct {
	client *chat.Client
	logger *slog.Logger
}

// define builds a registry entry: the parameters schema is generated
// from P's struct tags, and the typed handler is wrapped to decode
// the model's raw JSON arguments. Parameter structs are static, so a
// schema generation failure is a programming error; the package tests
// assert every definition carries a valid schema.
func define[P any](name, description string, handler func(ctx context.Context, params P) (map[string]any, error)) function.Entry {
	schema, _ := function.ParamsSchema(new(P))
	return function.Entry{
		Definition: function.Definition{
			Name:        name,
			Description: description,
			Parameters:  schema,
		},
		Handler: func(ctx context.Context, arguments json.RawMessage) (map[string]any, error) {
			var params P
			if len(arguments) > 0 {
				if err := json.Unmarshal(arguments, &params); err != nil {
					return nil, fmt.Errorf("invalid arguments: %w", err)
				}
			}
			return handler(ctx, params)
		},
	}
}

// normalizeChannelName rewrites a requested channel name into Slack's
// allowed format: lowercase, no spaces, only letters, digits, hyphens,
// underscores, and periods, at most 80 characters.
func normalizeChannelName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	normalized := strings.Trim(b.String(), "-")
	if len(normalized) > 80 {
		normalized = normalized[:80]
	}
	return normalized
}
