// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package function

import "encoding/json"

// Definition describes one callable function offered to the model.
type Definition struct {
	// Name is the unique function name the model uses to invoke it.
	Name string

	// Description tells the model what the function does.
	Description string

	// Parameters is the JSON Schema for the argument object.
	Parameters json.RawMessage
}

// Call is a model-issued function invocation. Arguments is the raw
// JSON object the model produced, not necessarily valid against the
// definition's schema; handlers validate what they need.
type Call struct {
	// Name is the function to invoke.
	Name string

	// Arguments is the JSON-encoded argument object.
	Arguments json.RawMessage
}

// Result is a dispatched function's outcome. It marshals to the
// {"success": bool, "error": string, ...payload} wire shape handlers
// and the model both consume.
type Result struct {
	// Success reports whether the function completed.
	Success bool

	// Error explains the failure. Empty on success.
	Error string

	// Payload carries the function's flat result fields (channel IDs,
	// timestamps, human-readable message, ...). Nil on failure.
	Payload map[string]any
}

// Failure constructs a failed Result with the given error text.
func Failure(errorText string) Result {
	return Result{Error: errorText}
}

// OK constructs a successful Result with the given payload.
func OK(payload map[string]any) Result {
	return Result{Success: true, Payload: payload}
}

// Message returns the human-readable message payload field, or "" when
// the payload has none. The orchestrator uses it to synthesize the
// reply text.
func (result Result) Message() string {
	if message, ok := result.Payload["message"].(string); ok {
		return message
	}
	return ""
}

// Field returns the named payload field and whether it is present.
func (result Result) Field(name string) (any, bool) {
	value, ok := result.Payload[name]
	return value, ok
}

// Compact returns a reduced view of the result for embedding in
// follow-up prompts: success, error when set, and only the named
// payload fields that are present. The full payload never travels
// into prompts, which bounds prompt size.
func (result Result) Compact(fields ...string) map[string]any {
	compact := map[string]any{"success": result.Success}
	if result.Error != "" {
		compact["error"] = result.Error
	}
	for _, field := range fields {
		if value, ok := result.Payload[field]; ok {
			compact[field] = value
		}
	}
	return compact
}

// MarshalJSON flattens the payload fields next to success and error.
// Payload fields named "success" or "error" are dropped rather than
// allowed to mask the result's own status.
func (result Result) MarshalJSON() ([]byte, error) {
	wire := make(map[string]any, len(result.Payload)+2)
	for key, value := range result.Payload {
		if key == "success" || key == "error" {
			continue
		}
		wire[key] = value
	}
	wire["success"] = result.Success
	if result.Error != "" {
		wire["error"] = result.Error
	}
	return json.Marshal(wire)
}
