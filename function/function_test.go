// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package function

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func textEntry(name string) Entry {
	return Entry{
		Definition: Definition{
			Name:        name,
			Description: "test function " + name,
			Parameters:  json.RawMessage(`{"type":"object"}`),
		},
		Handler: func(ctx context.Context, arguments json.RawMessage) (map[string]any, error) {
			return map[string]any{"message": name + " done"}, nil
		},
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(textEntry("sendMessage"), textEntry("sendMessage"))
	if err == nil {
		t.Fatal("NewRegistry accepted a duplicate name")
	}
	if !strings.Contains(err.Error(), "sendMessage") {
		t.Errorf("error = %q, want it to name the duplicate", err)
	}
}

func TestNewRegistryRejectsBadEntries(t *testing.T) {
	t.Parallel()

	if _, err := NewRegistry(Entry{Definition: Definition{Name: ""}}); err == nil {
		t.Error("NewRegistry accepted an empty name")
	}
	if _, err := NewRegistry(Entry{Definition: Definition{Name: "x"}}); err == nil {
		t.Error("NewRegistry accepted a nil handler")
	}
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(textEntry("a"), textEntry("b"), textEntry("c"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	definitions := registry.Definitions()
	if len(definitions) != 3 {
		t.Fatalf("Definitions length = %d, want 3", len(definitions))
	}
	for i, want := range []string{"a", "b", "c"} {
		if definitions[i].Name != want {
			t.Errorf("definitions[%d] = %q, want %q", i, definitions[i].Name, want)
		}
	}
}

func TestRegistrySubset(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(textEntry("a"), textEntry("b"), textEntry("c"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	subset := registry.Subset("c", "nope", "a")
	if len(subset) != 2 {
		t.Fatalf("Subset length = %d, want 2 (unknown names skipped)", len(subset))
	}
	if subset[0].Name != "c" || subset[1].Name != "a" {
		t.Errorf("subset order = [%s, %s], want caller order [c, a]", subset[0].Name, subset[1].Name)
	}
}

func TestDispatchSuccessPayloadPassesThrough(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(Entry{
		Definition: Definition{Name: "createChannel"},
		Handler: func(ctx context.Context, arguments json.RawMessage) (map[string]any, error) {
			var args struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(arguments, &args); err != nil {
				return nil, err
			}
			return map[string]any{
				"channelId":   "C1",
				"channelName": args.Name,
				"message":     fmt.Sprintf("Created channel #%s", args.Name),
			}, nil
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	dispatcher := NewDispatcher(registry, nil)

	result := dispatcher.Dispatch(context.Background(), Call{
		Name:      "createChannel",
		Arguments: json.RawMessage(`{"name":"launch-prep"}`),
	})

	if !result.Success {
		t.Fatalf("Success = false, error = %q", result.Error)
	}
	if id, _ := result.Field("channelId"); id != "C1" {
		t.Errorf("channelId = %v, want C1", id)
	}
	if got := result.Message(); got != "Created channel #launch-prep" {
		t.Errorf("Message() = %q", got)
	}
}

func TestDispatchUnknownFunction(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(textEntry("known"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	dispatcher := NewDispatcher(registry, nil)

	result := dispatcher.Dispatch(context.Background(), Call{Name: "unknownThing"})
	if result.Success {
		t.Error("Success = true for unknown function")
	}
	if result.Error == "" {
		t.Error("Error is empty for unknown function")
	}
	if !strings.Contains(result.Error, "unknownThing") {
		t.Errorf("Error = %q, want it to name the function", result.Error)
	}
}

func TestDispatchHandlerError(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(Entry{
		Definition: Definition{Name: "sendMessage"},
		Handler: func(ctx context.Context, arguments json.RawMessage) (map[string]any, error) {
			return nil, errors.New("channel_not_found")
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	dispatcher := NewDispatcher(registry, nil)

	result := dispatcher.Dispatch(context.Background(), Call{Name: "sendMessage"})
	if result.Success {
		t.Error("Success = true for failing handler")
	}
	if result.Error != "channel_not_found" {
		t.Errorf("Error = %q, want channel_not_found", result.Error)
	}
}

func TestDispatchHandlerPanic(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(Entry{
		Definition: Definition{Name: "explosive"},
		Handler: func(ctx context.Context, arguments json.RawMessage) (map[string]any, error) {
			panic("boom")
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	dispatcher := NewDispatcher(registry, nil)

	result := dispatcher.Dispatch(context.Background(), Call{Name: "explosive"})
	if result.Success {
		t.Error("Success = true for panicking handler")
	}
	if result.Error == "" {
		t.Error("Error is empty for panicking handler")
	}
	// The raw panic value must not leak into the user-visible error.
	if strings.Contains(result.Error, "boom") {
		t.Errorf("Error = %q leaks the panic value", result.Error)
	}
}

func TestResultMarshalWireShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(OK(map[string]any{
		"channelId": "C1",
		"success":   "masking attempt",
	}))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if wire["success"] != true {
		t.Errorf("success = %v, want true (payload must not mask it)", wire["success"])
	}
	if wire["channelId"] != "C1" {
		t.Errorf("channelId = %v, want C1", wire["channelId"])
	}
	if _, present := wire["error"]; present {
		t.Error("error field present on success")
	}

	data, err = json.Marshal(Failure("nope"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if wire["success"] != false || wire["error"] != "nope" {
		t.Errorf("failure wire = %v, want success false with error", wire)
	}
}

func TestResultCompact(t *testing.T) {
	t.Parallel()

	result := OK(map[string]any{
		"channelId":   "C1",
		"channelName": "launch-prep",
		"rawEnvelope": strings.Repeat("x", 10000),
	})

	compact := result.Compact("channelId", "channelName", "ts")
	if compact["success"] != true {
		t.Errorf("compact success = %v, want true", compact["success"])
	}
	if compact["channelId"] != "C1" || compact["channelName"] != "launch-prep" {
		t.Errorf("compact payload = %v, want whitelisted fields", compact)
	}
	if _, present := compact["rawEnvelope"]; present {
		t.Error("non-whitelisted field leaked into compact form")
	}
	if _, present := compact["ts"]; present {
		t.Error("absent whitelisted field fabricated in compact form")
	}

	compact = Failure("bad").Compact("channelId")
	if compact["error"] != "bad" || compact["success"] != false {
		t.Errorf("failure compact = %v", compact)
	}
}
