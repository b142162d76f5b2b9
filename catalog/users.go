// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
)

type listUsersParams struct{}

func (c *catalog) listUsers(ctx context.Context, _ listUsersParams) (map[string]any, error) {
	members, err := c.client.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	listed := make([]map[string]any, 0, maxListedItems)
	active := 0
	for _, member := range members {
		if member.Deleted || member.IsBot {
			continue
		}
		active++
		if len(listed) == maxListedItems {
			continue
		}
		listed = append(listed, map[string]any{
			"userId":   member.ID,
			"userName": member.Name,
			"realName": member.RealName,
		})
	}
	return map[string]any{
		"message": fmt.Sprintf("Found %d active user(s).", active),
		"count":   active,
		"users":   listed,
	}, nil
}

type userInfoParams struct {
	UserID string `json:"user_id" desc:"Slack user ID to look up (e.g. U0123456789)" required:"true"`
}

func (c *catalog) userInfo(ctx context.Context, params userInfoParams) (map[string]any, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	user, err := c.client.UserInfo(ctx, params.UserID)
	if err != nil {
		return nil, err
	}
	displayName := user.Profile.DisplayName
	if displayName == "" {
		displayName = user.Name
	}
	return map[string]any{
		"message":  fmt.Sprintf("<@%s> is %s (@%s).", user.ID, user.RealName, displayName),
		"userId":   user.ID,
		"userName": user.Name,
		"realName": user.RealName,
		"email":    user.Profile.Email,
		"isBot":    user.IsBot,
	}, nil
}

type searchMessagesParams struct {
	Query string `json:"query" desc:"search query; Slack modifiers like in:#channel and from:@user work" required:"true"`
	Count int    `json:"count" desc:"maximum matches to return" default:"10"`
}

func (c *catalog) searchMessages(ctx context.Context, params searchMessagesParams) (map[string]any, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	count := params.Count
	if count <= 0 {
		count = 10
	}
	matches, err := c.client.SearchMessages(ctx, params.Query, count)
	if err != nil {
		return nil, err
	}
	listed := make([]map[string]any, 0, len(matches))
	for _, match := range matches {
		listed = append(listed, map[string]any{
			"channelId":   match.Channel.ID,
			"channelName": match.Channel.Name,
			"user":        match.Username,
			"text":        match.Text,
			"ts":          match.TS,
			"permalink":   match.Permalink,
		})
	}
	return map[string]any{
		"message": fmt.Sprintf("Found %d message(s) matching %q.", len(listed), params.Query),
		"count":   len(listed),
		"matches": listed,
	}, nil
}
