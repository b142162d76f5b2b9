// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// parley-send posts one prompt to a running parleyd and prints the
// reply. It exercises the HTTP contract end to end without a Slack
// workspace: the prompt goes through the same conversation store,
// model calls, and function dispatch as a Slack mention.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/parleyhq/parley/lib/netutil"
	"github.com/parleyhq/parley/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		serverURL string
		channelID string
		userID    string
		threadKey string
		timeout   time.Duration
		rawJSON   bool
	)

	flagSet := pflag.NewFlagSet("parley-send", pflag.ContinueOnError)
	flagSet.StringVar(&serverURL, "server", "http://127.0.0.1:8484", "parleyd base URL")
	flagSet.StringVar(&channelID, "channel", "cli", "channel ID recorded on the conversation")
	flagSet.StringVar(&userID, "user", "cli", "user ID recorded on the conversation")
	flagSet.StringVar(&threadKey, "thread", "", "thread key (default: channel:user)")
	flagSet.DurationVar(&timeout, "timeout", 2*time.Minute, "request timeout")
	flagSet.BoolVar(&rawJSON, "json", false, "print the raw JSON response")

	// Handle --version before flag parsing to match parleyd.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("parley-send %s\n", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	prompt := strings.TrimSpace(strings.Join(flagSet.Args(), " "))
	if prompt == "" {
		return fmt.Errorf("usage: parley-send [flags] <prompt>")
	}

	body, err := json.Marshal(map[string]string{
		"thread_key": threadKey,
		"channel_id": channelID,
		"user_id":    userID,
		"text":       prompt,
	})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	client := &http.Client{Timeout: timeout}
	response, err := client.Post(
		strings.TrimSuffix(serverURL, "/")+"/v1/messages",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to parleyd: %w", err)
	}
	defer response.Body.Close()

	payload, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if rawJSON {
		fmt.Println(strings.TrimSpace(string(payload)))
		if response.StatusCode != http.StatusOK {
			return fmt.Errorf("parleyd returned HTTP %d", response.StatusCode)
		}
		return nil
	}

	var decoded struct {
		ReplyText string `json:"reply_text"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("parleyd returned HTTP %d: %s", response.StatusCode, strings.TrimSpace(string(payload)))
	}
	if decoded.ReplyText != "" {
		fmt.Println(decoded.ReplyText)
	}
	if decoded.Error != "" {
		return fmt.Errorf("run failed: %s", decoded.Error)
	}
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("parleyd returned HTTP %d", response.StatusCode)
	}
	return nil
}
