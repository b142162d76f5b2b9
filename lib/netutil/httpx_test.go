// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestReadResponse(t *testing.T) {
	t.Run("normal body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader([]byte(`{"ok":true}`)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `{"ok":true}` {
			t.Fatalf("got %q, want %q", data, `{"ok":true}`)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		data, err := ReadResponse(bytes.NewReader(nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) != 0 {
			t.Fatalf("expected empty, got %d bytes", len(data))
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		_, err := ReadResponse(&failReader{})
		if err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestDecodeResponse(t *testing.T) {
	t.Run("valid JSON", func(t *testing.T) {
		var payload struct {
			OK      bool   `json:"ok"`
			Channel string `json:"channel"`
		}
		err := DecodeResponse(strings.NewReader(`{"ok":true,"channel":"C123"}`), &payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !payload.OK || payload.Channel != "C123" {
			t.Fatalf("decoded %+v, want ok=true channel=C123", payload)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		var payload map[string]any
		if err := DecodeResponse(strings.NewReader(`{"ok":`), &payload); err == nil {
			t.Fatal("expected error for malformed JSON")
		}
	})

	t.Run("read error wraps", func(t *testing.T) {
		var payload map[string]any
		err := DecodeResponse(&failReader{}, &payload)
		if err == nil {
			t.Fatal("expected error from failing reader")
		}
		if !strings.Contains(err.Error(), "reading response body") {
			t.Fatalf("error %q does not mention body read", err)
		}
	})
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody(strings.NewReader("rate limited")); got != "rate limited" {
		t.Fatalf("ErrorBody = %q, want %q", got, "rate limited")
	}
	// Read failures yield an empty string, never an error.
	if got := ErrorBody(&failReader{}); got != "" {
		t.Fatalf("ErrorBody on failing reader = %q, want empty", got)
	}
}

type failReader struct{}

func (*failReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("synthetic read failure")
}
