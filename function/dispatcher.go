// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package function

import (
	"context"
	"fmt"
	"log/slog"
)

// Dispatcher executes model-issued calls against a Registry.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher over registry. A nil logger uses
// slog.Default().
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Dispatch executes one call and normalizes every outcome into a
// Result. It never panics and has no error return: an unknown name, a
// handler error, and a handler panic all produce Success false with a
// non-empty Error. Dispatch is at-most-once; retry policy, if any,
// belongs to the handler's own HTTP client.
func (dispatcher *Dispatcher) Dispatch(ctx context.Context, call Call) (result Result) {
	handler := dispatcher.registry.handler(call.Name)
	if handler == nil {
		dispatcher.logger.Warn("unknown function requested by model", "function", call.Name)
		return Failure(fmt.Sprintf("unknown function: %s", call.Name))
	}

	// A panicking handler must not take down the run; the other calls
	// in the batch still execute.
	defer func() {
		if recovered := recover(); recovered != nil {
			dispatcher.logger.Error("function handler panicked",
				"function", call.Name,
				"panic", recovered)
			result = Failure(fmt.Sprintf("%s: internal handler failure", call.Name))
		}
	}()

	dispatcher.logger.Debug("dispatching function",
		"function", call.Name,
		"arguments_bytes", len(call.Arguments))

	payload, err := handler(ctx, call.Arguments)
	if err != nil {
		dispatcher.logger.Warn("function failed",
			"function", call.Name,
			"error", err)
		return Failure(err.Error())
	}

	dispatcher.logger.Debug("function completed", "function", call.Name)
	return OK(payload)
}
