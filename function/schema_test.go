// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package function

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestParamsSchema(t *testing.T) {
	t.Parallel()

	type params struct {
		ChannelID string   `json:"channel_id" desc:"channel to post to" required:"true"`
		Text      string   `json:"text"       required:"true"`
		Limit     int      `json:"limit"      desc:"maximum results"    default:"20"`
		Private   bool     `json:"private"`
		UserIDs   []string `json:"user_ids"   desc:"users to invite"`
		Ratio     float64  `json:"ratio"`
		Skipped   string   `json:"-"`
		Untagged  string
	}

	document, err := ParamsSchema(&params{})
	if err != nil {
		t.Fatalf("ParamsSchema: %v", err)
	}

	var schema Schema
	if err := json.Unmarshal(document, &schema); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if schema.Type != "object" {
		t.Errorf("type = %q, want object", schema.Type)
	}
	if got := len(schema.Properties); got != 6 {
		t.Errorf("property count = %d, want 6", got)
	}

	channel := schema.Properties["channel_id"]
	if channel == nil || channel.Type != "string" {
		t.Fatalf("channel_id property = %+v, want string", channel)
	}
	if channel.Description != "channel to post to" {
		t.Errorf("channel_id description = %q", channel.Description)
	}

	limit := schema.Properties["limit"]
	if limit == nil || limit.Type != "integer" {
		t.Fatalf("limit property = %+v, want integer", limit)
	}
	if want := float64(20); limit.Default != want {
		// json.Unmarshal decodes numeric defaults as float64.
		t.Errorf("limit default = %v, want %v", limit.Default, want)
	}

	users := schema.Properties["user_ids"]
	if users == nil || users.Type != "array" || users.Items == nil || users.Items.Type != "string" {
		t.Errorf("user_ids property = %+v, want string array", users)
	}

	if !slices.Contains(schema.Required, "channel_id") || !slices.Contains(schema.Required, "text") {
		t.Errorf("required = %v, want channel_id and text", schema.Required)
	}
	if slices.Contains(schema.Required, "limit") {
		t.Error("limit marked required despite having a default")
	}
}

func TestParamsSchemaRejectsUnsupportedTypes(t *testing.T) {
	t.Parallel()

	type bad struct {
		Nested struct{ X string } `json:"nested"`
	}
	if _, err := ParamsSchema(&bad{}); err == nil {
		t.Error("nested struct accepted, want error")
	}

	if _, err := ParamsSchema("not a struct"); err == nil {
		t.Error("non-struct accepted, want error")
	}

	type badSlice struct {
		Counts []int `json:"counts"`
	}
	if _, err := ParamsSchema(&badSlice{}); err == nil {
		t.Error("non-string slice accepted, want error")
	}
}
