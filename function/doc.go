// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package function defines Parley's callable function catalog and the
// dispatcher that executes model-issued function calls.
//
// A [Registry] is an immutable name → {definition, handler} mapping
// built once at startup; duplicate names are a construction error.
// The registry is passed to the orchestrator by reference; there are
// no package-level registries.
//
// [Dispatcher.Dispatch] is the only execution path. It never panics
// and never returns a Go error: unknown names, handler errors, and
// handler panics all normalize to a [Result] with Success false and a
// non-empty Error. Handlers perform their own external I/O; the
// dispatcher adds no retries and no timeouts.
package function
