// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package function

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler executes one function against the external action surface.
// It receives the model's raw JSON arguments and returns the flat
// result payload, or an error describing why the action failed.
// Handlers perform their own HTTP I/O and honor ctx for cancellation.
type Handler func(ctx context.Context, arguments json.RawMessage) (map[string]any, error)

// Entry pairs a function definition with its handler for registration.
type Entry struct {
	Definition Definition
	Handler    Handler
}

// Registry is the immutable function catalog: every function the model
// may call, with its schema and handler. Built once at startup and
// injected wherever dispatch or catalog listing is needed.
type Registry struct {
	entries []Entry
	byName  map[string]int
}

// NewRegistry builds a Registry from entries. Duplicate names, empty
// names, and nil handlers are construction errors; the daemon treats
// them as fatal configuration mistakes at startup.
func NewRegistry(entries ...Entry) (*Registry, error) {
	registry := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	for _, entry := range entries {
		name := entry.Definition.Name
		if name == "" {
			return nil, fmt.Errorf("function: entry with empty name")
		}
		if entry.Handler == nil {
			return nil, fmt.Errorf("function: %s has no handler", name)
		}
		if _, exists := registry.byName[name]; exists {
			return nil, fmt.Errorf("function: duplicate name %s", name)
		}
		registry.byName[name] = len(registry.entries)
		registry.entries = append(registry.entries, entry)
	}
	return registry, nil
}

// Len returns the number of registered functions.
func (registry *Registry) Len() int {
	return len(registry.entries)
}

// Definitions returns every registered definition in registration
// order. The slice is a copy; mutating it does not affect the
// registry.
func (registry *Registry) Definitions() []Definition {
	definitions := make([]Definition, len(registry.entries))
	for i, entry := range registry.entries {
		definitions[i] = entry.Definition
	}
	return definitions
}

// Subset returns the definitions for the named functions, in the given
// order, silently skipping names that are not registered. Used to
// build the narrowed catalogs for follow-up rounds.
func (registry *Registry) Subset(names ...string) []Definition {
	definitions := make([]Definition, 0, len(names))
	for _, name := range names {
		if index, ok := registry.byName[name]; ok {
			definitions = append(definitions, registry.entries[index].Definition)
		}
	}
	return definitions
}

// Lookup returns the definition for name and whether it is registered.
func (registry *Registry) Lookup(name string) (Definition, bool) {
	index, ok := registry.byName[name]
	if !ok {
		return Definition{}, false
	}
	return registry.entries[index].Definition, true
}

// handler returns the handler for name, or nil when unregistered.
func (registry *Registry) handler(name string) Handler {
	index, ok := registry.byName[name]
	if !ok {
		return nil
	}
	return registry.entries[index].Handler
}
