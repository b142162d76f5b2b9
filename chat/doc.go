// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat is Parley's Slack collaborator: the Web API client the
// function catalog acts through, the Socket Mode stream that delivers
// inbound events, and the mrkdwn text conversion applied to assistant
// replies.
//
// [Client] wraps the Slack Web API. Every method call is form-encoded,
// bearer-authenticated, and paced by a shared rate limiter sized for
// the Web API's method tiers. Slack reports failures inside an HTTP
// 200 body as {"ok":false,"error":"code"}; those surface as
// [*APIError] values matchable with [IsAPIError].
//
// [Socket] maintains the Socket Mode connection: it opens a WebSocket
// URL via apps.connections.open, acknowledges event envelopes, and
// delivers message and app_mention events to a handler callback,
// reconnecting with capped retries when the server rotates the
// connection.
//
// [ToMrkdwn] converts markdown emphasis to Slack mrkdwn. It is
// idempotent, so the conversation store can apply it unconditionally
// to assistant text.
package chat
