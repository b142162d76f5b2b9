// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/orchestrator"
)

// maxRequestBytes bounds the POST body. A chat message is small; a
// larger body is a client bug.
const maxRequestBytes = 1 << 20

type handler struct {
	engine *orchestrator.Engine
	logger *slog.Logger
}

// messageRequest is the POST /v1/messages body.
type messageRequest struct {
	// ThreadKey scopes the conversation. Empty means one conversation
	// per channel/user pair.
	ThreadKey string `json:"thread_key"`
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
}

// messageResponse mirrors the orchestration outcome. Error is set
// when the run failed; FunctionResults may still carry the steps that
// completed before the failure.
type messageResponse struct {
	ReplyText       string                         `json:"reply_text"`
	FunctionResults []orchestrator.FunctionOutcome `json:"function_results,omitempty"`
	Error           string                         `json:"error,omitempty"`
}

// HandleMessage runs one orchestration for the posted message and
// returns the reply with its function results.
func (h *handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var request messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if request.ChannelID == "" || request.UserID == "" || strings.TrimSpace(request.Text) == "" {
		http.Error(w, "channel_id, user_id, and text are required", http.StatusBadRequest)
		return
	}
	threadKey := request.ThreadKey
	if threadKey == "" {
		threadKey = request.ChannelID + ":" + request.UserID
	}

	logger := h.logger.With(
		"request_id", uuid.NewString(),
		"thread_key", threadKey)
	logger.Info("message accepted",
		"channel_id", request.ChannelID,
		"user_id", request.UserID,
		"chars", len(request.Text))

	start := time.Now()
	run, err := h.engine.HandleIncoming(r.Context(), threadKey, request.ChannelID, request.UserID, request.Text)
	if err != nil {
		logger.Error("orchestration failed",
			"error", err,
			"duration", time.Since(start))
		response := messageResponse{Error: err.Error()}
		if run != nil {
			response.ReplyText = run.Reply
			response.FunctionResults = run.Results
		}
		h.writeJSON(w, http.StatusBadGateway, response)
		return
	}

	logger.Info("orchestration complete",
		"functions", len(run.Results),
		"reply_chars", len(run.Reply),
		"duration", time.Since(start))
	h.writeJSON(w, http.StatusOK, messageResponse{
		ReplyText:       run.Reply,
		FunctionResults: run.Results,
	})
}

// HandleHealth is the liveness probe.
func (h *handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes value as JSON into w. An encoding failure usually
// means the client disconnected; it is logged since no corrective
// response can reach a dead client.
func (h *handler) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.logger.Warn("writing JSON response", "error", err)
	}
}
