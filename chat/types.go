// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

// apiEnvelope is the response wrapper every Slack Web API method
// shares. Method-specific fields sit alongside it in the same JSON
// object; responses are decoded twice, once for the envelope and once
// for the method's own result type.
type apiEnvelope struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Warning string `json:"warning"`
}

// AuthIdentity is the auth.test response: who this token acts as.
type AuthIdentity struct {
	URL    string `json:"url"`
	Team   string `json:"team"`
	User   string `json:"user"`
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
	BotID  string `json:"bot_id"`
}

// MessageRef identifies a posted message. Slack messages are addressed
// by channel plus the "ts" timestamp string, which doubles as the
// message ID and the thread key for replies.
type MessageRef struct {
	ChannelID string
	TS        string
}

// Channel is a Slack conversation: public or private channel, DM, or
// group DM.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
	IsIM       bool   `json:"is_im"`
	NumMembers int    `json:"num_members"`
	Topic      struct {
		Value string `json:"value"`
	} `json:"topic"`
}

// User is a Slack workspace member.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
	Deleted  bool   `json:"deleted"`
	IsBot    bool   `json:"is_bot"`
	Profile  struct {
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
	} `json:"profile"`
}

// HistoryMessage is one message from conversations.history.
type HistoryMessage struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	BotID    string `json:"bot_id"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}

// SearchMatch is one hit from search.messages.
type SearchMatch struct {
	User      string `json:"user"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	TS        string `json:"ts"`
	Permalink string `json:"permalink"`
	Channel   struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"channel"`
}

// FileRef identifies an uploaded file.
type FileRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
}
