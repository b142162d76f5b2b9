// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm provides clients for LLM provider APIs.
//
// The package defines a provider-neutral request/response model
// ([Request], [Response], [Message], [ContentBlock]) and a [Provider]
// interface with implementations for the Anthropic Messages API
// ([Anthropic]) and the OpenAI Chat Completions API ([OpenAI], which
// also covers OpenAI-compatible servers).
//
// Function calling is first-class: requests carry [Tool] definitions,
// and responses expose the model's requested calls via
// [Response.FunctionCalls] in the order the model emitted them.
//
// API errors surface as [*ProviderError] with the HTTP status code and
// the provider's error type and message. Use [errors.As] to match:
//
//	var providerErr *llm.ProviderError
//	if errors.As(err, &providerErr) && providerErr.IsRateLimited() {
//	    // back off
//	}
package llm
