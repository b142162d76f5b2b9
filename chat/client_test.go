// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// newTestClient builds a Client against server with rate limiting
// disabled so tests never stall on the Tier 3 pacing.
func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		BotToken: "xoxb-test",
		BaseURL:  server.URL,
		Limiter:  rate.NewLimiter(rate.Inf, 0),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatal("NewClient with empty BotToken succeeded, want error")
	}
}

func TestClientPostMessage(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if got := request.Header.Get("Authorization"); got != "Bearer xoxb-test" {
			t.Errorf("Authorization = %q, want Bearer xoxb-test", got)
		}
		if got := request.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q, want form encoding", got)
		}
		if err := request.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if got := request.PostForm.Get("channel"); got != "C123" {
			t.Errorf("channel = %q, want C123", got)
		}
		if got := request.PostForm.Get("text"); got != "hello there" {
			t.Errorf("text = %q, want 'hello there'", got)
		}
		if got := request.PostForm.Get("thread_ts"); got != "111.222" {
			t.Errorf("thread_ts = %q, want 111.222", got)
		}
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(map[string]any{
			"ok": true, "channel": "C123", "ts": "333.444",
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := newTestClient(t, server)

	ref, err := client.PostMessage(context.Background(), "C123", "111.222", "hello there")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if ref.ChannelID != "C123" || ref.TS != "333.444" {
		t.Errorf("ref = %+v, want C123/333.444", ref)
	}
}

func TestClientUnthreadedPostOmitsThreadTS(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		request.ParseForm()
		if _, present := request.PostForm["thread_ts"]; present {
			t.Error("thread_ts sent for unthreaded message")
		}
		json.NewEncoder(writer).Encode(map[string]any{"ok": true, "channel": "C1", "ts": "1.2"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := newTestClient(t, server)

	if _, err := client.PostMessage(context.Background(), "C1", "", "top level"); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
}

func TestClientAPIError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/conversations.archive", func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			http.Error(writer, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		// Slack reports API failures with HTTP 200.
		json.NewEncoder(writer).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := newTestClient(t, server)

	err := client.ArchiveConversation(context.Background(), "CMISSING")
	if err == nil {
		t.Fatal("ArchiveConversation on missing channel succeeded, want error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v (%T), want *APIError", err, err)
	}
	if apiErr.Code != ErrCodeChannelNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeChannelNotFound)
	}
	if apiErr.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", apiErr.StatusCode)
	}
	if !IsAPIError(err, ErrCodeChannelNotFound) {
		t.Error("IsAPIError(err, channel_not_found) = false, want true")
	}
	if IsAPIError(err, ErrCodeUserNotFound) {
		t.Error("IsAPIError matched the wrong code")
	}
}

func TestClientRateLimited(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /users.info", func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Retry-After", "30")
		writer.WriteHeader(http.StatusTooManyRequests)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := newTestClient(t, server)

	_, err := client.UserInfo(context.Background(), "U1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v (%T), want *APIError", err, err)
	}
	if apiErr.Code != ErrCodeRateLimited {
		t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeRateLimited)
	}
	if apiErr.RetryAfter != 30*time.Second {
		t.Errorf("retry after = %s, want 30s", apiErr.RetryAfter)
	}
}

func TestClientListConversationsPaginates(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /conversations.list", func(writer http.ResponseWriter, request *http.Request) {
		request.ParseForm()
		switch request.PostForm.Get("cursor") {
		case "":
			json.NewEncoder(writer).Encode(map[string]any{
				"ok":                true,
				"channels":          []map[string]any{{"id": "C1", "name": "general"}},
				"response_metadata": map[string]any{"next_cursor": "page-two"},
			})
		case "page-two":
			json.NewEncoder(writer).Encode(map[string]any{
				"ok":       true,
				"channels": []map[string]any{{"id": "C2", "name": "random", "is_private": true}},
			})
		default:
			t.Errorf("unexpected cursor %q", request.PostForm.Get("cursor"))
			json.NewEncoder(writer).Encode(map[string]any{"ok": false, "error": "invalid_cursor"})
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := newTestClient(t, server)

	channels, err := client.ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("got %d channels, want 2", len(channels))
	}
	if channels[0].ID != "C1" || channels[1].ID != "C2" {
		t.Errorf("channel IDs = %s, %s, want C1, C2", channels[0].ID, channels[1].ID)
	}
	if !channels[1].IsPrivate {
		t.Error("second channel not marked private")
	}
}

func TestClientSearchMessages(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /search.messages", func(writer http.ResponseWriter, request *http.Request) {
		request.ParseForm()
		if got := request.PostForm.Get("query"); got != "deploy in:#ops" {
			t.Errorf("query = %q, want 'deploy in:#ops'", got)
		}
		if got := request.PostForm.Get("count"); got != "5" {
			t.Errorf("count = %q, want 5", got)
		}
		json.NewEncoder(writer).Encode(map[string]any{
			"ok": true,
			"messages": map[string]any{
				"total": 1,
				"matches": []map[string]any{{
					"username":  "ops-bot",
					"text":      "deploy finished",
					"ts":        "123.456",
					"permalink": "https://example.slack.com/archives/C1/p123",
					"channel":   map[string]any{"id": "C1", "name": "ops"},
				}},
			},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := newTestClient(t, server)

	matches, err := client.SearchMessages(context.Background(), "deploy in:#ops", 5)
	if err != nil {
		t.Fatalf("SearchMessages: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Channel.Name != "ops" {
		t.Errorf("match channel = %q, want ops", matches[0].Channel.Name)
	}
	if matches[0].Permalink == "" {
		t.Error("match permalink empty")
	}
}

func TestClientUploadFile(t *testing.T) {
	t.Parallel()

	content := []byte("col_a,col_b\n1,2\n")
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("POST /files.getUploadURLExternal", func(writer http.ResponseWriter, request *http.Request) {
		request.ParseForm()
		if got := request.PostForm.Get("filename"); got != "report.csv" {
			t.Errorf("filename = %q, want report.csv", got)
		}
		if got := request.PostForm.Get("length"); got != "16" {
			t.Errorf("length = %q, want 16", got)
		}
		json.NewEncoder(writer).Encode(map[string]any{
			"ok":         true,
			"upload_url": server.URL + "/upload/edge",
			"file_id":    "F777",
		})
	})
	mux.HandleFunc("POST /upload/edge", func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		if string(body) != string(content) {
			t.Errorf("uploaded bytes = %q, want %q", body, content)
		}
		writer.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /files.completeUploadExternal", func(writer http.ResponseWriter, request *http.Request) {
		request.ParseForm()
		if got := request.PostForm.Get("channel_id"); got != "C9" {
			t.Errorf("channel_id = %q, want C9", got)
		}
		var files []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		}
		if err := json.Unmarshal([]byte(request.PostForm.Get("files")), &files); err != nil {
			t.Errorf("parsing files param: %v", err)
		} else if len(files) != 1 || files[0].ID != "F777" || files[0].Title != "Weekly report" {
			t.Errorf("files param = %+v, want one entry F777/'Weekly report'", files)
		}
		json.NewEncoder(writer).Encode(map[string]any{
			"ok":    true,
			"files": []map[string]any{{"id": "F777", "name": "report.csv", "title": "Weekly report"}},
		})
	})

	client := newTestClient(t, server)
	file, err := client.UploadFile(context.Background(), "C9", "", "report.csv", "Weekly report", content)
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if file.ID != "F777" {
		t.Errorf("file ID = %q, want F777", file.ID)
	}
	if file.Name != "report.csv" {
		t.Errorf("file name = %q, want report.csv", file.Name)
	}
}

func TestClientAuthTest(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth.test", func(writer http.ResponseWriter, request *http.Request) {
		json.NewEncoder(writer).Encode(map[string]any{
			"ok":      true,
			"team":    "Acme",
			"user":    "parley",
			"team_id": "T1",
			"user_id": "UBOT",
			"bot_id":  "B42",
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	client := newTestClient(t, server)

	identity, err := client.AuthTest(context.Background())
	if err != nil {
		t.Fatalf("AuthTest: %v", err)
	}
	if identity.UserID != "UBOT" {
		t.Errorf("user_id = %q, want UBOT", identity.UserID)
	}
	if identity.BotID != "B42" {
		t.Errorf("bot_id = %q, want B42", identity.BotID)
	}
}
