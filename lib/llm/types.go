// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleUser marks messages from the human (or from function
	// results fed back to the model).
	RoleUser Role = "user"
	// RoleAssistant marks messages from the model.
	RoleAssistant Role = "assistant"
)

// ContentType discriminates the variants of a ContentBlock.
type ContentType string

const (
	// ContentText is plain text.
	ContentText ContentType = "text"
	// ContentImage is an image reference.
	ContentImage ContentType = "image"
	// ContentFunctionCall is a function invocation requested by the
	// model.
	ContentFunctionCall ContentType = "function_call"
	// ContentFunctionResult is the outcome of a dispatched function,
	// sent back to the model.
	ContentFunctionResult ContentType = "function_result"
)

// ContentBlock is one element of a message's content. Exactly one of
// the variant fields is populated, selected by Type.
type ContentBlock struct {
	Type ContentType

	// Text is set for ContentText blocks.
	Text string

	// Image is set for ContentImage blocks.
	Image *ImageRef

	// FunctionCall is set for ContentFunctionCall blocks.
	FunctionCall *FunctionCall

	// FunctionResult is set for ContentFunctionResult blocks.
	FunctionResult *FunctionResult
}

// ImageRef references an image by URL. Detail hints the resolution the
// provider should process the image at ("low", "high", or "auto").
type ImageRef struct {
	URL    string
	Detail string
}

// FunctionCall is a function invocation requested by the model.
// Arguments is the raw JSON object the model produced; it is passed
// through to the dispatcher without interpretation.
type FunctionCall struct {
	// ID is the provider-assigned call identifier, echoed back in the
	// corresponding FunctionResult.
	ID string

	// Name is the function to invoke.
	Name string

	// Arguments is the JSON-encoded argument object.
	Arguments json.RawMessage
}

// FunctionResult carries a dispatched function's outcome back to the
// model.
type FunctionResult struct {
	// CallID echoes the FunctionCall.ID this result answers.
	CallID string

	// Content is the serialized result payload.
	Content string

	// IsError marks results of failed dispatches.
	IsError bool
}

// TextBlock constructs a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: ContentText, Text: text}
}

// ImageBlock constructs an image content block.
func ImageBlock(url, detail string) ContentBlock {
	return ContentBlock{Type: ContentImage, Image: &ImageRef{URL: url, Detail: detail}}
}

// FunctionCallBlock constructs a function call content block.
func FunctionCallBlock(id, name string, arguments json.RawMessage) ContentBlock {
	return ContentBlock{
		Type:         ContentFunctionCall,
		FunctionCall: &FunctionCall{ID: id, Name: name, Arguments: arguments},
	}
}

// FunctionResultBlock constructs a function result content block.
func FunctionResultBlock(callID, content string, isError bool) ContentBlock {
	return ContentBlock{
		Type:           ContentFunctionResult,
		FunctionResult: &FunctionResult{CallID: callID, Content: content, IsError: isError},
	}
}

// Message is one turn in the request transcript.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// UserMessage constructs a user message with a single text block.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// AssistantMessage constructs an assistant message with a single text
// block.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock(text)}}
}

// Tool describes a callable function offered to the model.
type Tool struct {
	// Name is the function name the model uses to invoke it.
	Name string

	// Description tells the model what the function does.
	Description string

	// InputSchema is the JSON Schema for the argument object.
	InputSchema json.RawMessage
}

// Request is a provider-neutral completion request.
type Request struct {
	// Model is the provider's model identifier.
	Model string

	// System is the system prompt, carried outside Messages because
	// providers differ on where system text goes.
	System string

	// Messages is the conversation transcript, oldest first.
	Messages []Message

	// Tools lists the functions the model may call.
	Tools []Tool

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature overrides the provider default when non-nil.
	Temperature *float64
}

// StopReason explains why the model stopped generating.
type StopReason string

const (
	// StopReasonEndTurn means the model finished its reply.
	StopReasonEndTurn StopReason = "end_turn"
	// StopReasonFunctionCall means the model stopped to request
	// function calls.
	StopReasonFunctionCall StopReason = "function_call"
	// StopReasonMaxTokens means the response hit the MaxTokens cap.
	StopReasonMaxTokens StopReason = "max_tokens"
)

// Usage reports token consumption for a single request.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is a provider-neutral completion response.
type Response struct {
	// Content holds the response blocks in the order the model
	// produced them.
	Content []ContentBlock

	// Model is the model that served the request (may differ from the
	// requested alias).
	Model string

	StopReason StopReason
	Usage      Usage
}

// Text returns the concatenated text blocks of the response.
func (response *Response) Text() string {
	var builder strings.Builder
	for _, block := range response.Content {
		if block.Type == ContentText {
			builder.WriteString(block.Text)
		}
	}
	return builder.String()
}

// FunctionCalls returns the function calls the model requested, in
// emission order. Empty when the model replied with content only.
func (response *Response) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, block := range response.Content {
		if block.Type == ContentFunctionCall && block.FunctionCall != nil {
			calls = append(calls, *block.FunctionCall)
		}
	}
	return calls
}
