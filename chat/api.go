// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/parleyhq/parley/lib/netutil"
)

// pageSize is the per-page limit for cursor-paginated list methods.
const pageSize = 200

// maxPages bounds cursor pagination so a misbehaving endpoint that
// keeps returning cursors cannot spin the client forever.
const maxPages = 25

// responseMetadata carries the pagination cursor on list responses.
type responseMetadata struct {
	NextCursor string `json:"next_cursor"`
}

// AuthTest verifies the bot token and reports the identity it acts
// as. Parley calls this at startup to learn its own user ID so that
// event handling can ignore the bot's own messages.
func (c *Client) AuthTest(ctx context.Context) (*AuthIdentity, error) {
	var identity AuthIdentity
	if err := c.callMethod(ctx, "auth.test", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// PostMessage sends text to a channel. A non-empty threadTS posts the
// message as a reply in that thread.
func (c *Client) PostMessage(ctx context.Context, channelID, threadTS, text string) (*MessageRef, error) {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("text", text)
	if threadTS != "" {
		params.Set("thread_ts", threadTS)
	}
	var posted struct {
		Channel string `json:"channel"`
		TS      string `json:"ts"`
	}
	if err := c.callMethod(ctx, "chat.postMessage", params, &posted); err != nil {
		return nil, err
	}
	return &MessageRef{ChannelID: posted.Channel, TS: posted.TS}, nil
}

// UpdateMessage replaces the text of a previously posted message.
func (c *Client) UpdateMessage(ctx context.Context, channelID, ts, text string) (*MessageRef, error) {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("ts", ts)
	params.Set("text", text)
	var updated struct {
		Channel string `json:"channel"`
		TS      string `json:"ts"`
	}
	if err := c.callMethod(ctx, "chat.update", params, &updated); err != nil {
		return nil, err
	}
	return &MessageRef{ChannelID: updated.Channel, TS: updated.TS}, nil
}

// DeleteMessage removes a previously posted message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, ts string) error {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("ts", ts)
	return c.callMethod(ctx, "chat.delete", params, nil)
}

// CreateConversation creates a channel. Slack channel names must be
// lowercase without spaces; the caller is responsible for normalizing.
func (c *Client) CreateConversation(ctx context.Context, name string, private bool) (*Channel, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("is_private", strconv.FormatBool(private))
	var created struct {
		Channel Channel `json:"channel"`
	}
	if err := c.callMethod(ctx, "conversations.create", params, &created); err != nil {
		return nil, err
	}
	return &created.Channel, nil
}

// InviteToConversation adds users to a channel.
func (c *Client) InviteToConversation(ctx context.Context, channelID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return fmt.Errorf("chat: conversations.invite: no users given")
	}
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("users", strings.Join(userIDs, ","))
	return c.callMethod(ctx, "conversations.invite", params, nil)
}

// ArchiveConversation archives a channel.
func (c *Client) ArchiveConversation(ctx context.Context, channelID string) error {
	params := url.Values{}
	params.Set("channel", channelID)
	return c.callMethod(ctx, "conversations.archive", params, nil)
}

// SetTopic sets a channel's topic.
func (c *Client) SetTopic(ctx context.Context, channelID, topic string) error {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("topic", topic)
	return c.callMethod(ctx, "conversations.setTopic", params, nil)
}

// ListConversations returns the non-archived public and private
// channels the bot can see, following pagination cursors until the
// workspace is exhausted.
func (c *Client) ListConversations(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	cursor := ""
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Set("types", "public_channel,private_channel")
		params.Set("exclude_archived", "true")
		params.Set("limit", strconv.Itoa(pageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var result struct {
			Channels         []Channel        `json:"channels"`
			ResponseMetadata responseMetadata `json:"response_metadata"`
		}
		if err := c.callMethod(ctx, "conversations.list", params, &result); err != nil {
			return nil, err
		}
		channels = append(channels, result.Channels...)
		cursor = result.ResponseMetadata.NextCursor
		if cursor == "" {
			return channels, nil
		}
	}
	return nil, fmt.Errorf("chat: conversations.list: cursor did not terminate after %d pages", maxPages)
}

// OpenConversation opens (or resumes) a direct message with the given
// users. One user opens a 1:1 DM; several open a group DM.
func (c *Client) OpenConversation(ctx context.Context, userIDs []string) (*Channel, error) {
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("chat: conversations.open: no users given")
	}
	params := url.Values{}
	params.Set("users", strings.Join(userIDs, ","))
	var opened struct {
		Channel Channel `json:"channel"`
	}
	if err := c.callMethod(ctx, "conversations.open", params, &opened); err != nil {
		return nil, err
	}
	return &opened.Channel, nil
}

// ConversationHistory returns up to limit recent messages from a
// channel, newest first (Slack's native order).
func (c *Client) ConversationHistory(ctx context.Context, channelID string, limit int) ([]HistoryMessage, error) {
	if limit <= 0 || limit > pageSize {
		limit = pageSize
	}
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("limit", strconv.Itoa(limit))
	var result struct {
		Messages []HistoryMessage `json:"messages"`
	}
	if err := c.callMethod(ctx, "conversations.history", params, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

// ListUsers returns the workspace member list, following pagination
// cursors. Deleted accounts are included; callers filter as needed.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	cursor := ""
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(pageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var result struct {
			Members          []User           `json:"members"`
			ResponseMetadata responseMetadata `json:"response_metadata"`
		}
		if err := c.callMethod(ctx, "users.list", params, &result); err != nil {
			return nil, err
		}
		users = append(users, result.Members...)
		cursor = result.ResponseMetadata.NextCursor
		if cursor == "" {
			return users, nil
		}
	}
	return nil, fmt.Errorf("chat: users.list: cursor did not terminate after %d pages", maxPages)
}

// UserInfo looks up one workspace member by ID.
func (c *Client) UserInfo(ctx context.Context, userID string) (*User, error) {
	params := url.Values{}
	params.Set("user", userID)
	var result struct {
		User User `json:"user"`
	}
	if err := c.callMethod(ctx, "users.info", params, &result); err != nil {
		return nil, err
	}
	return &result.User, nil
}

// SearchMessages runs a workspace message search and returns up to
// count matches. Slack's search modifiers (in:#channel, from:@user,
// quoted phrases) pass through in the query.
func (c *Client) SearchMessages(ctx context.Context, query string, count int) ([]SearchMatch, error) {
	if count <= 0 || count > 100 {
		count = 20
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("count", strconv.Itoa(count))
	var result struct {
		Messages struct {
			Total   int           `json:"total"`
			Matches []SearchMatch `json:"matches"`
		} `json:"messages"`
	}
	if err := c.callMethod(ctx, "search.messages", params, &result); err != nil {
		return nil, err
	}
	return result.Messages.Matches, nil
}

// AddReaction adds an emoji reaction (by name, without colons) to a
// message.
func (c *Client) AddReaction(ctx context.Context, channelID, ts, name string) error {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("timestamp", ts)
	params.Set("name", strings.Trim(name, ":"))
	return c.callMethod(ctx, "reactions.add", params, nil)
}

// UploadFile uploads content to a channel using the external upload
// flow: reserve an upload URL, POST the bytes to it, then complete
// the upload to share the file. A non-empty threadTS shares the file
// into that thread.
func (c *Client) UploadFile(ctx context.Context, channelID, threadTS, filename, title string, content []byte) (*FileRef, error) {
	params := url.Values{}
	params.Set("filename", filename)
	params.Set("length", strconv.Itoa(len(content)))
	var ticket struct {
		UploadURL string `json:"upload_url"`
		FileID    string `json:"file_id"`
	}
	if err := c.callMethod(ctx, "files.getUploadURLExternal", params, &ticket); err != nil {
		return nil, err
	}

	if err := c.uploadBytes(ctx, ticket.UploadURL, content); err != nil {
		return nil, err
	}

	fileList, err := json.Marshal([]map[string]string{{"id": ticket.FileID, "title": title}})
	if err != nil {
		return nil, fmt.Errorf("chat: files.completeUploadExternal: encoding file list: %w", err)
	}
	complete := url.Values{}
	complete.Set("files", string(fileList))
	complete.Set("channel_id", channelID)
	if threadTS != "" {
		complete.Set("thread_ts", threadTS)
	}
	var done struct {
		Files []FileRef `json:"files"`
	}
	if err := c.callMethod(ctx, "files.completeUploadExternal", complete, &done); err != nil {
		return nil, err
	}
	if len(done.Files) == 0 {
		return &FileRef{ID: ticket.FileID, Title: title}, nil
	}
	return &done.Files[0], nil
}

// uploadBytes POSTs raw file content to a reserved upload URL. The
// URL points at Slack's file edge, not the Web API, so it carries no
// envelope; any non-2xx status is a failure.
func (c *Client) uploadBytes(ctx context.Context, uploadURL string, content []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("chat: upload: creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/octet-stream")
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("chat: upload: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := netutil.ReadResponse(response.Body)
		return fmt.Errorf("chat: upload: unexpected HTTP %d: %s", response.StatusCode, string(body))
	}
	return nil
}
