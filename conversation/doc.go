// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package conversation holds per-thread chat state and shapes it for
// model providers.
//
// [Store] is the in-memory conversation store, keyed by thread key. It
// is bounded: creating a conversation past the configured capacity
// evicts the one with the oldest activity, and an optional [Sweeper]
// evicts conversations idle past a TTL. There is no persistence;
// evicted history is gone.
//
// [Shape] is the pure message formatter. It windows history to a
// configured length and adapts it to a model family's structural
// constraints ([Profile]): families that require strict role
// alternation get consecutive same-role messages merged, and families
// without a distinct system role get system messages rewritten as
// delimited user messages. Content is never dropped, only reshaped.
//
// [CharEstimator] estimates the token cost of a shaped window from
// character counts, self-calibrating from provider usage feedback.
package conversation
