// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/parleyhq/parley/chat"
	"github.com/parleyhq/parley/function"
)

// catalogFunctions is every name New registers, in registration order.
var catalogFunctions = []string{
	"sendMessage", "sendDirectMessage", "updateMessage", "deleteMessage",
	"addReaction", "uploadFile", "createChannel", "inviteToChannel",
	"archiveChannel", "setChannelTopic", "listChannels", "channelHistory",
	"listUsers", "userInfo", "searchMessages",
}

// newTestDispatcher builds the catalog against server and returns a
// dispatcher for exercising handlers end to end.
func newTestDispatcher(t *testing.T, server *httptest.Server) *function.Dispatcher {
	t.Helper()
	client, err := chat.NewClient(chat.ClientConfig{
		BotToken: "xoxb-test",
		BaseURL:  server.URL,
		Limiter:  rate.NewLimiter(rate.Inf, 0),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	registry, err := New(Config{Client: client})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return function.NewDispatcher(registry, nil)
}

func TestCatalogRegistration(t *testing.T) {
	t.Parallel()

	client, err := chat.NewClient(chat.ClientConfig{BotToken: "xoxb-test"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	registry, err := New(Config{Client: client})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, want := registry.Len(), len(catalogFunctions); got != want {
		t.Errorf("registry size = %d, want %d", got, want)
	}

	for _, name := range catalogFunctions {
		definition, ok := registry.Lookup(name)
		if !ok {
			t.Errorf("function %s not registered", name)
			continue
		}
		if definition.Description == "" {
			t.Errorf("function %s has no description", name)
		}

		// Every definition must carry a valid object schema; the
		// generation error is discarded at define time.
		var schema struct {
			Type       string                     `json:"type"`
			Properties map[string]json.RawMessage `json:"properties"`
		}
		if err := json.Unmarshal(definition.Parameters, &schema); err != nil {
			t.Errorf("function %s: schema is not valid JSON: %v", name, err)
			continue
		}
		if schema.Type != "object" {
			t.Errorf("function %s: schema type = %q, want object", name, schema.Type)
		}
	}

	sendMessage, _ := registry.Lookup("sendMessage")
	var schema function.Schema
	if err := json.Unmarshal(sendMessage.Parameters, &schema); err != nil {
		t.Fatalf("sendMessage schema: %v", err)
	}
	for _, required := range []string{"channel_id", "text"} {
		found := false
		for _, name := range schema.Required {
			if name == required {
				found = true
			}
		}
		if !found {
			t.Errorf("sendMessage schema missing required %s", required)
		}
	}
}

func TestCatalogRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("New without Client succeeded, want error")
	}
}

func TestCreateChannelNormalizesName(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.create", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		request.ParseForm()
		if got := request.PostForm.Get("name"); got != "launch-prep" {
			t.Errorf("name = %q, want launch-prep", got)
		}
		if got := request.PostForm.Get("is_private"); got != "false" {
			t.Errorf("is_private = %q, want false", got)
		}
		json.NewEncoder(writer).Encode(map[string]any{
			"ok":      true,
			"channel": map[string]any{"id": "C1", "name": "launch-prep"},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	dispatcher := newTestDispatcher(t, server)

	result := dispatcher.Dispatch(context.Background(), function.Call{
		Name:      "createChannel",
		Arguments: json.RawMessage(`{"name": "Launch Prep!"}`),
	})
	if !result.Success {
		t.Fatalf("dispatch failed: %s", result.Error)
	}
	if got, _ := result.Field("channelId"); got != "C1" {
		t.Errorf("channelId = %v, want C1", got)
	}
	if got, _ := result.Field("channelName"); got != "launch-prep" {
		t.Errorf("channelName = %v, want launch-prep", got)
	}
	if message := result.Message(); !strings.Contains(message, "launch-prep") {
		t.Errorf("message = %q, want channel name mentioned", message)
	}
}

func TestSendMessageConvertsMarkdown(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		request.ParseForm()
		if got := request.PostForm.Get("text"); got != "a *bold* move" {
			t.Errorf("text = %q, want mrkdwn conversion applied", got)
		}
		json.NewEncoder(writer).Encode(map[string]any{"ok": true, "channel": "C1", "ts": "1.2"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	dispatcher := newTestDispatcher(t, server)

	result := dispatcher.Dispatch(context.Background(), function.Call{
		Name:      "sendMessage",
		Arguments: json.RawMessage(`{"channel_id": "C1", "text": "a **bold** move"}`),
	})
	if !result.Success {
		t.Fatalf("dispatch failed: %s", result.Error)
	}
	if got, _ := result.Field("ts"); got != "1.2" {
		t.Errorf("ts = %v, want 1.2", got)
	}
}

func TestHandlerFailureBecomesResultError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		json.NewEncoder(writer).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	dispatcher := newTestDispatcher(t, server)

	result := dispatcher.Dispatch(context.Background(), function.Call{
		Name:      "sendMessage",
		Arguments: json.RawMessage(`{"channel_id": "CMISSING", "text": "hello"}`),
	})
	if result.Success {
		t.Fatal("dispatch succeeded against a missing channel")
	}
	if !strings.Contains(result.Error, "channel_not_found") {
		t.Errorf("error = %q, want channel_not_found mentioned", result.Error)
	}
}

func TestSendDirectMessage(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.open", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		request.ParseForm()
		if got := request.PostForm.Get("users"); got != "U1" {
			t.Errorf("users = %q, want U1", got)
		}
		json.NewEncoder(writer).Encode(map[string]any{
			"ok":      true,
			"channel": map[string]any{"id": "D9", "is_im": true},
		})
	})
	mux.HandleFunc("/chat.postMessage", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		request.ParseForm()
		if got := request.PostForm.Get("channel"); got != "D9" {
			t.Errorf("channel = %q, want the opened DM D9", got)
		}
		json.NewEncoder(writer).Encode(map[string]any{"ok": true, "channel": "D9", "ts": "5.6"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	dispatcher := newTestDispatcher(t, server)

	result := dispatcher.Dispatch(context.Background(), function.Call{
		Name:      "sendDirectMessage",
		Arguments: json.RawMessage(`{"user_id": "U1", "text": "hi"}`),
	})
	if !result.Success {
		t.Fatalf("dispatch failed: %s", result.Error)
	}
	if got, _ := result.Field("channelId"); got != "D9" {
		t.Errorf("channelId = %v, want D9", got)
	}
	if got, _ := result.Field("userId"); got != "U1" {
		t.Errorf("userId = %v, want U1", got)
	}
}

func TestSearchMessagesPayload(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search.messages", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		request.ParseForm()
		if got := request.PostForm.Get("count"); got != "10" {
			t.Errorf("count = %q, want the default 10", got)
		}
		json.NewEncoder(writer).Encode(map[string]any{
			"ok": true,
			"messages": map[string]any{
				"total": 2,
				"matches": []map[string]any{
					{"username": "jane", "text": "deploy done", "ts": "1.1",
						"permalink": "https://example.slack.com/p1",
						"channel":   map[string]any{"id": "C1", "name": "ops"}},
					{"username": "sam", "text": "deploy queued", "ts": "2.2",
						"permalink": "https://example.slack.com/p2",
						"channel":   map[string]any{"id": "C1", "name": "ops"}},
				},
			},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	dispatcher := newTestDispatcher(t, server)

	result := dispatcher.Dispatch(context.Background(), function.Call{
		Name:      "searchMessages",
		Arguments: json.RawMessage(`{"query": "deploy"}`),
	})
	if !result.Success {
		t.Fatalf("dispatch failed: %s", result.Error)
	}
	if got, _ := result.Field("count"); got != 2 {
		t.Errorf("count = %v, want 2", got)
	}
	if !strings.Contains(result.Message(), "deploy") {
		t.Errorf("message = %q, want query mentioned", result.Message())
	}
	matches, _ := result.Field("matches")
	if listed, ok := matches.([]map[string]any); !ok || len(listed) != 2 {
		t.Errorf("matches = %v, want 2 entries", matches)
	}
}

func TestListUsersFiltersDeletedAndBots(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/users.list", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		json.NewEncoder(writer).Encode(map[string]any{
			"ok": true,
			"members": []map[string]any{
				{"id": "U1", "name": "jane", "real_name": "Jane Doe"},
				{"id": "U2", "name": "old", "deleted": true},
				{"id": "U3", "name": "bot", "is_bot": true},
			},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	dispatcher := newTestDispatcher(t, server)

	result := dispatcher.Dispatch(context.Background(), function.Call{Name: "listUsers"})
	if !result.Success {
		t.Fatalf("dispatch failed: %s", result.Error)
	}
	if got, _ := result.Field("count"); got != 1 {
		t.Errorf("count = %v, want 1 (deleted and bot accounts excluded)", got)
	}
}

func TestInvalidArgumentsFailCleanly(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NewServeMux())
	t.Cleanup(server.Close)
	dispatcher := newTestDispatcher(t, server)

	result := dispatcher.Dispatch(context.Background(), function.Call{
		Name:      "createChannel",
		Arguments: json.RawMessage(`{"name": 42}`),
	})
	if result.Success {
		t.Fatal("dispatch with mistyped arguments succeeded")
	}
	if !strings.Contains(result.Error, "invalid arguments") {
		t.Errorf("error = %q, want invalid arguments mentioned", result.Error)
	}
}

func TestNormalizeChannelName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  string
	}{
		{"Launch Prep!", "launch-prep"},
		{"  HELLO World  ", "hello-world"},
		{"ok_name.v2", "ok_name.v2"},
		{"---edges---", "edges"},
		{"Q3 Planning & Review", "q3-planning--review"},
	}
	for _, testCase := range cases {
		if got := normalizeChannelName(testCase.input); got != testCase.want {
			t.Errorf("normalizeChannelName(%q) = %q, want %q", testCase.input, got, testCase.want)
		}
	}

	long := strings.Repeat("a", 100)
	if got := normalizeChannelName(long); len(got) != 80 {
		t.Errorf("long name length = %d, want 80", len(got))
	}
}
