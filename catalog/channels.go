// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
)

type createChannelParams struct {
	Name    string `json:"name"    desc:"channel name; spaces and capitals are normalized" required:"true"`
	Private bool   `json:"private" desc:"create as a private channel"`
}

func (c *catalog) createChannel(ctx context.Context, params createChannelParams) (map[string]any, error) {
	name := normalizeChannelName(params.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	channel, err := c.client.CreateConversation(ctx, name, params.Private)
	if err != nil {
		return nil, err
	}
	c.logger.Info("channel created", "channel_id", channel.ID, "channel_name", channel.Name)
	return map[string]any{
		"message":     fmt.Sprintf("Created channel <#%s|%s>.", channel.ID, channel.Name),
		"channelId":   channel.ID,
		"channelName": channel.Name,
	}, nil
}

type inviteToChannelParams struct {
	ChannelID string   `json:"channel_id" desc:"channel to invite into" required:"true"`
	UserIDs   []string `json:"user_ids"   desc:"Slack user IDs to invite" required:"true"`
}

func (c *catalog) inviteToChannel(ctx context.Context, params inviteToChannelParams) (map[string]any, error) {
	if params.ChannelID == "" || len(params.UserIDs) == 0 {
		return nil, fmt.Errorf("channel_id and user_ids are required")
	}
	if err := c.client.InviteToConversation(ctx, params.ChannelID, params.UserIDs); err != nil {
		return nil, err
	}
	return map[string]any{
		"message":   fmt.Sprintf("Invited %d user(s) to <#%s>.", len(params.UserIDs), params.ChannelID),
		"channelId": params.ChannelID,
		"userIds":   params.UserIDs,
	}, nil
}

type archiveChannelParams struct {
	ChannelID string `json:"channel_id" desc:"channel to archive" required:"true"`
}

func (c *catalog) archiveChannel(ctx context.Context, params archiveChannelParams) (map[string]any, error) {
	if params.ChannelID == "" {
		return nil, fmt.Errorf("channel_id is required")
	}
	if err := c.client.ArchiveConversation(ctx, params.ChannelID); err != nil {
		return nil, err
	}
	return map[string]any{
		"message":   fmt.Sprintf("Archived <#%s>.", params.ChannelID),
		"channelId": params.ChannelID,
	}, nil
}

type setChannelTopicParams struct {
	ChannelID string `json:"channel_id" desc:"channel to update" required:"true"`
	Topic     string `json:"topic"      desc:"new topic text" required:"true"`
}

func (c *catalog) setChannelTopic(ctx context.Context, params setChannelTopicParams) (map[string]any, error) {
	if params.ChannelID == "" || params.Topic == "" {
		return nil, fmt.Errorf("channel_id and topic are required")
	}
	if err := c.client.SetTopic(ctx, params.ChannelID, params.Topic); err != nil {
		return nil, err
	}
	return map[string]any{
		"message":   fmt.Sprintf("Topic set for <#%s>.", params.ChannelID),
		"channelId": params.ChannelID,
		"topic":     params.Topic,
	}, nil
}

type listChannelsParams struct{}

func (c *catalog) listChannels(ctx context.Context, _ listChannelsParams) (map[string]any, error) {
	channels, err := c.client.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	listed := make([]map[string]any, 0, min(len(channels), maxListedItems))
	for _, channel := range channels {
		if len(listed) == maxListedItems {
			break
		}
		listed = append(listed, map[string]any{
			"channelId":   channel.ID,
			"channelName": channel.Name,
			"private":     channel.IsPrivate,
			"members":     channel.NumMembers,
		})
	}
	return map[string]any{
		"message":  fmt.Sprintf("Found %d channel(s).", len(channels)),
		"count":    len(channels),
		"channels": listed,
	}, nil
}

type channelHistoryParams struct {
	ChannelID string `json:"channel_id" desc:"channel to read" required:"true"`
	Limit     int    `json:"limit"      desc:"maximum messages to fetch" default:"20"`
}

func (c *catalog) channelHistory(ctx context.Context, params channelHistoryParams) (map[string]any, error) {
	if params.ChannelID == "" {
		return nil, fmt.Errorf("channel_id is required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}
	history, err := c.client.ConversationHistory(ctx, params.ChannelID, limit)
	if err != nil {
		return nil, err
	}
	messages := make([]map[string]any, 0, len(history))
	for _, entry := range history {
		messages = append(messages, map[string]any{
			"user": entry.User,
			"text": entry.Text,
			"ts":   entry.TS,
		})
	}
	return map[string]any{
		"message":   fmt.Sprintf("Fetched %d message(s) from <#%s>.", len(messages), params.ChannelID),
		"channelId": params.ChannelID,
		"messages":  messages,
	}, nil
}
