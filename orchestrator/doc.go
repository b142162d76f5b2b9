// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator runs one bounded model-and-dispatch loop per
// inbound user message: it shapes the conversation for the configured
// model, offers the function catalog, dispatches the calls the model
// makes strictly in order, and decides via a pluggable continuation
// [Strategy] whether a narrowed follow-up round is needed to finish
// a compound request. Follow-up depth is hard-capped so the loop
// always terminates.
package orchestrator
