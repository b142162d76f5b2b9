// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"

	"github.com/parleyhq/parley/chat"
)

type sendMessageParams struct {
	ChannelID string `json:"channel_id" desc:"channel ID to post to (e.g. C0123456789)" required:"true"`
	Text      string `json:"text"       desc:"message text; markdown is converted to Slack formatting" required:"true"`
	ThreadTS  string `json:"thread_ts"  desc:"timestamp of a thread to reply in"`
}

func (c *catalog) sendMessage(ctx context.Context, params sendMessageParams) (map[string]any, error) {
	if params.ChannelID == "" || params.Text == "" {
		return nil, fmt.Errorf("channel_id and text are required")
	}
	ref, err := c.client.PostMessage(ctx, params.ChannelID, params.ThreadTS, chat.ToMrkdwn(params.Text))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message":   fmt.Sprintf("Message sent to <#%s>.", ref.ChannelID),
		"channelId": ref.ChannelID,
		"ts":        ref.TS,
	}, nil
}

type sendDirectMessageParams struct {
	UserID string `json:"user_id" desc:"Slack user ID to message (e.g. U0123456789)" required:"true"`
	Text   string `json:"text"    desc:"message text; markdown is converted to Slack formatting" required:"true"`
}

func (c *catalog) sendDirectMessage(ctx context.Context, params sendDirectMessageParams) (map[string]any, error) {
	if params.UserID == "" || params.Text == "" {
		return nil, fmt.Errorf("user_id and text are required")
	}
	dm, err := c.client.OpenConversation(ctx, []string{params.UserID})
	if err != nil {
		return nil, err
	}
	ref, err := c.client.PostMessage(ctx, dm.ID, "", chat.ToMrkdwn(params.Text))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message":   fmt.Sprintf("Sent a direct message to <@%s>.", params.UserID),
		"channelId": ref.ChannelID,
		"ts":        ref.TS,
		"userId":    params.UserID,
	}, nil
}

type updateMessageParams struct {
	ChannelID string `json:"channel_id" desc:"channel containing the message" required:"true"`
	TS        string `json:"ts"         desc:"timestamp of the message to update" required:"true"`
	Text      string `json:"text"       desc:"replacement text" required:"true"`
}

func (c *catalog) updateMessage(ctx context.Context, params updateMessageParams) (map[string]any, error) {
	if params.ChannelID == "" || params.TS == "" || params.Text == "" {
		return nil, fmt.Errorf("channel_id, ts, and text are required")
	}
	ref, err := c.client.UpdateMessage(ctx, params.ChannelID, params.TS, chat.ToMrkdwn(params.Text))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message":   "Message updated.",
		"channelId": ref.ChannelID,
		"ts":        ref.TS,
	}, nil
}

type deleteMessageParams struct {
	ChannelID string `json:"channel_id" desc:"channel containing the message" required:"true"`
	TS        string `json:"ts"         desc:"timestamp of the message to delete" required:"true"`
}

func (c *catalog) deleteMessage(ctx context.Context, params deleteMessageParams) (map[string]any, error) {
	if params.ChannelID == "" || params.TS == "" {
		return nil, fmt.Errorf("channel_id and ts are required")
	}
	if err := c.client.DeleteMessage(ctx, params.ChannelID, params.TS); err != nil {
		return nil, err
	}
	return map[string]any{
		"message":   "Message deleted.",
		"channelId": params.ChannelID,
	}, nil
}

type addReactionParams struct {
	ChannelID string `json:"channel_id" desc:"channel containing the message" required:"true"`
	TS        string `json:"ts"         desc:"timestamp of the message to react to" required:"true"`
	Emoji     string `json:"emoji"      desc:"emoji name without colons (e.g. tada)" required:"true"`
}

func (c *catalog) addReaction(ctx context.Context, params addReactionParams) (map[string]any, error) {
	if params.ChannelID == "" || params.TS == "" || params.Emoji == "" {
		return nil, fmt.Errorf("channel_id, ts, and emoji are required")
	}
	if err := c.client.AddReaction(ctx, params.ChannelID, params.TS, params.Emoji); err != nil {
		return nil, err
	}
	return map[string]any{
		"message": fmt.Sprintf("Reacted with :%s:.", params.Emoji),
	}, nil
}

type uploadFileParams struct {
	ChannelID string `json:"channel_id" desc:"channel to share the file in" required:"true"`
	Filename  string `json:"filename"   desc:"file name including extension (e.g. report.csv)" required:"true"`
	Content   string `json:"content"    desc:"file content as text" required:"true"`
	Title     string `json:"title"      desc:"display title for the file"`
	ThreadTS  string `json:"thread_ts"  desc:"timestamp of a thread to share the file in"`
}

func (c *catalog) uploadFile(ctx context.Context, params uploadFileParams) (map[string]any, error) {
	if params.ChannelID == "" || params.Filename == "" || params.Content == "" {
		return nil, fmt.Errorf("channel_id, filename, and content are required")
	}
	title := params.Title
	if title == "" {
		title = params.Filename
	}
	file, err := c.client.UploadFile(ctx, params.ChannelID, params.ThreadTS, params.Filename, title, []byte(params.Content))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message":   fmt.Sprintf("Uploaded %s to <#%s>.", params.Filename, params.ChannelID),
		"fileId":    file.ID,
		"channelId": params.ChannelID,
	}, nil
}
