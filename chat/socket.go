// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleyhq/parley/lib/clock"
)

// maxConnectRetries is the number of consecutive connection failures
// allowed before Run gives up. A successful connection (hello
// received) resets the counter, so Slack's routine connection
// refreshes never accumulate toward the limit.
const maxConnectRetries = 5

// reconnectDelay spaces reconnection attempts after a failure. The
// delay grows linearly with consecutive failures.
const reconnectDelay = 2 * time.Second

// leadingMention matches a user mention at the start of message text,
// with any trailing punctuation and whitespace. app_mention events
// carry the bot's own mention as a prefix; stripping it leaves the
// instruction the user actually typed.
var leadingMention = regexp.MustCompile(`^\s*<@[A-Z0-9]+>[:,]?\s*`)

// MessageEvent is one inbound user message from the event stream,
// reduced to what the orchestrator consumes.
type MessageEvent struct {
	// ThreadKey identifies the conversation: the channel ID for DMs,
	// channel:threadTS for threaded channel messages.
	ThreadKey string

	// ChannelID is where the message was posted.
	ChannelID string

	// UserID is the Slack user who sent the message.
	UserID string

	// Text is the message text with any leading bot mention removed.
	Text string

	// EventTS is the message's own timestamp, usable as thread_ts
	// when replying in-thread.
	EventTS string
}

// Handler consumes inbound message events. Handlers run on their own
// goroutine per event so slow processing (an LLM round trip) never
// stalls envelope acknowledgment.
type Handler func(ctx context.Context, event MessageEvent)

// SocketConfig holds configuration for creating a Socket.
type SocketConfig struct {
	// Client is the Web API client used for apps.connections.open
	// and auth.test. Required.
	Client *Client

	// AppToken is the xapp- app-level token Socket Mode
	// authenticates with. Required.
	AppToken string

	// Handler receives inbound message events. Required.
	Handler Handler

	// Clock paces reconnection backoff. Nil means the real clock.
	Clock clock.Clock

	// Logger receives connection lifecycle logging. Nil means
	// slog.Default().
	Logger *slog.Logger

	// Dialer opens WebSocket connections. Nil means
	// websocket.DefaultDialer. Tests point this at an httptest
	// server.
	Dialer *websocket.Dialer
}

// Socket is a Slack Socket Mode connection: it opens a WebSocket via
// apps.connections.open, acknowledges event envelopes, and delivers
// user messages to a handler. Messages from bots (including Parley
// itself) are filtered out so the bridge never responds to its own
// replies.
type Socket struct {
	client   *Client
	appToken string
	handler  Handler
	clk      clock.Clock
	logger   *slog.Logger
	dialer   *websocket.Dialer

	selfUserID string
}

// NewSocket creates a Socket Mode connection manager.
func NewSocket(config SocketConfig) (*Socket, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("chat: socket requires a Client")
	}
	if config.AppToken == "" {
		return nil, fmt.Errorf("chat: socket requires an AppToken")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("chat: socket requires a Handler")
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dialer := config.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Socket{
		client:   config.Client,
		appToken: config.AppToken,
		handler:  config.Handler,
		clk:      clk,
		logger:   logger,
		dialer:   dialer,
	}, nil
}

// socketEnvelope is the Socket Mode framing around every inbound
// WebSocket message.
type socketEnvelope struct {
	Type       string          `json:"type"`
	EnvelopeID string          `json:"envelope_id"`
	Reason     string          `json:"reason"`
	Payload    json.RawMessage `json:"payload"`
}

// eventsPayload is the payload of an events_api envelope, reduced to
// the message fields Parley handles.
type eventsPayload struct {
	Event struct {
		Type        string `json:"type"`
		Subtype     string `json:"subtype"`
		User        string `json:"user"`
		BotID       string `json:"bot_id"`
		Text        string `json:"text"`
		TS          string `json:"ts"`
		ThreadTS    string `json:"thread_ts"`
		Channel     string `json:"channel"`
		ChannelType string `json:"channel_type"`
	} `json:"event"`
}

// Run connects to Socket Mode and pumps events until ctx is cancelled
// or the connection fails maxConnectRetries consecutive times. Slack
// cycles Socket Mode connections routinely (disconnect envelopes with
// reason "refresh_requested"); Run reconnects through those without
// counting them as failures.
func (s *Socket) Run(ctx context.Context) error {
	identity, err := s.client.AuthTest(ctx)
	if err != nil {
		return fmt.Errorf("chat: socket: resolving own identity: %w", err)
	}
	s.selfUserID = identity.UserID
	s.logger.Info("socket mode starting", "self_user_id", identity.UserID, "team", identity.Team)

	var retries int
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.connectAndPump(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			// Clean disconnect (refresh requested): reconnect
			// immediately without counting a failure.
			retries = 0
			continue
		}
		retries++
		s.client.CloseIdleConnections()
		if retries > maxConnectRetries {
			return fmt.Errorf("chat: socket: connection failed %d consecutive times: %w", retries, err)
		}
		delay := reconnectDelay * time.Duration(retries)
		s.logger.Warn("socket mode connection lost, reconnecting",
			"attempt", retries,
			"max_attempts", maxConnectRetries,
			"delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clk.After(delay):
		}
	}
}

// connectAndPump opens one WebSocket connection and processes
// envelopes until it closes. A nil return means Slack asked for a
// reconnect (normal rotation); an error means the connection failed.
func (s *Socket) connectAndPump(ctx context.Context) error {
	var ticket struct {
		URL string `json:"url"`
	}
	if err := s.client.callMethodWithToken(ctx, s.appToken, "apps.connections.open", nil, &ticket); err != nil {
		return fmt.Errorf("opening socket connection: %w", err)
	}

	conn, _, err := s.dialer.DialContext(ctx, ticket.URL, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", ticket.URL, err)
	}
	defer conn.Close()

	// Unblock the read loop when ctx is cancelled: closing the
	// connection makes ReadMessage return immediately.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading envelope: %w", err)
		}
		var envelope socketEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			s.logger.Warn("socket mode envelope unparseable", "error", err)
			continue
		}

		// Slack requires acks promptly; send before processing.
		if envelope.EnvelopeID != "" {
			ack := map[string]string{"envelope_id": envelope.EnvelopeID}
			if err := conn.WriteJSON(ack); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("acking envelope: %w", err)
			}
		}

		switch envelope.Type {
		case "hello":
			s.logger.Info("socket mode connected")
		case "disconnect":
			s.logger.Info("socket mode disconnect requested", "reason", envelope.Reason)
			return nil
		case "events_api":
			s.handleEventsEnvelope(ctx, envelope.Payload)
		default:
			s.logger.Debug("socket mode envelope ignored", "type", envelope.Type)
		}
	}
}

// handleEventsEnvelope filters one events_api payload and hands
// qualifying messages to the handler. Channel messages are handled
// via app_mention (so the bot only answers when addressed); DMs are
// handled via plain message events. Handling both event types for
// channel mentions would double-process, since Slack delivers a
// mention as both an app_mention and a message event.
func (s *Socket) handleEventsEnvelope(ctx context.Context, payload json.RawMessage) {
	var events eventsPayload
	if err := json.Unmarshal(payload, &events); err != nil {
		s.logger.Warn("socket mode event unparseable", "error", err)
		return
	}
	event := events.Event

	if event.Subtype != "" {
		return // edits, deletions, joins: not user instructions
	}
	if event.BotID != "" || event.User == "" || event.User == s.selfUserID {
		return
	}

	isDM := event.ChannelType == "im"
	switch event.Type {
	case "app_mention":
	case "message":
		if !isDM {
			return
		}
	default:
		return
	}

	text := leadingMention.ReplaceAllString(event.Text, "")
	if text == "" {
		return
	}

	threadKey := event.Channel
	if !isDM {
		threadTS := event.ThreadTS
		if threadTS == "" {
			threadTS = event.TS
		}
		threadKey = event.Channel + ":" + threadTS
	}

	messageEvent := MessageEvent{
		ThreadKey: threadKey,
		ChannelID: event.Channel,
		UserID:    event.User,
		Text:      text,
		EventTS:   event.TS,
	}
	s.logger.Debug("inbound message",
		"thread_key", messageEvent.ThreadKey,
		"channel_id", messageEvent.ChannelID,
		"user_id", messageEvent.UserID,
	)
	go s.handler(ctx, messageEvent)
}
