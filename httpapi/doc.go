// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi exposes the bridge over plain HTTP: one endpoint
// that accepts a user message and returns the orchestrated reply, and
// a liveness probe. It serves clients that are not Slack, such as the
// parley-send CLI and smoke tests that want the function-calling loop
// without a workspace in the middle.
package httpapi
