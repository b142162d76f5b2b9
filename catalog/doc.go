// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog builds the function registry Parley exposes to the
// model: messaging, channel management, user lookup, search, and file
// upload, all executing against the Slack Web API through one shared
// [chat.Client].
//
// Every handler returns a payload with a human-readable "message"
// field, which the orchestrator assembles into replies, plus
// machine-readable identifiers (channelId, ts, userId) that follow-up
// rounds feed back to the model.
package catalog
