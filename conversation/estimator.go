// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import "sync"

// defaultCharactersPerToken is the initial ratio before calibration.
// 4.0 is conservative for English chat text; BPE tokenizers typically
// average 3.5-4.5 characters per token. Conservative means the
// estimate overstates token counts, so a token-budget window shrinks
// slightly early rather than risking a context overflow from the
// provider.
const defaultCharactersPerToken = 4.0

// defaultSmoothingFactor controls how quickly the ratio adapts to new
// observations. 0.3 means 30% weight on the new observation, 70% on
// the running average.
const defaultSmoothingFactor = 0.3

// messageCharOverhead is the fixed per-message cost for role markers
// and JSON framing (~20 chars for {"role":"user","content":[...]}).
const messageCharOverhead = 20

// CharEstimator estimates token counts from character counts using an
// adaptive ratio calibrated from actual provider usage.
//
// The initial ratio of 4.0 characters per token is conservative for
// English text. After each provider call, [CharEstimator.RecordUsage]
// adjusts the ratio via exponential moving average, so the estimate
// converges toward the actual tokenizer's behavior for the content
// this bridge handles. The ratio also absorbs the fixed overhead of
// system prompts and function schemas, which keeps early estimates on
// the safe (high) side.
//
// Safe for concurrent use: runs for different conversations share one
// estimator.
type CharEstimator struct {
	mu                 sync.Mutex
	charactersPerToken float64
	smoothingFactor    float64
	observationCount   int
}

// NewCharEstimator creates a CharEstimator with the default initial
// ratio of 4.0 characters per token and a smoothing factor of 0.3.
func NewCharEstimator() *CharEstimator {
	return &CharEstimator{
		charactersPerToken: defaultCharactersPerToken,
		smoothingFactor:    defaultSmoothingFactor,
	}
}

// EstimateTokens returns the estimated token count for the given
// messages at the current ratio. Always rounds up; overestimating is
// the safe direction.
func (estimator *CharEstimator) EstimateTokens(messages []Message) int {
	estimator.mu.Lock()
	ratio := estimator.charactersPerToken
	estimator.mu.Unlock()

	tokens := float64(messagesCharCount(messages)) / ratio
	return int(tokens) + 1
}

// RecordUsage updates the calibration using the actual input token
// count a provider reported for these messages.
//
// The first observation replaces the default ratio entirely, since a
// single real data point beats any default. Subsequent
// observations blend via EMA to smooth out variation between turns
// with different content profiles.
func (estimator *CharEstimator) RecordUsage(messages []Message, actualInputTokens int64) {
	if actualInputTokens <= 0 {
		return
	}
	characters := messagesCharCount(messages)
	if characters == 0 {
		return
	}

	observedRatio := float64(characters) / float64(actualInputTokens)

	estimator.mu.Lock()
	defer estimator.mu.Unlock()

	estimator.observationCount++
	if estimator.observationCount == 1 {
		estimator.charactersPerToken = observedRatio
		return
	}

	estimator.charactersPerToken = estimator.smoothingFactor*observedRatio +
		(1.0-estimator.smoothingFactor)*estimator.charactersPerToken
}

// messageCharCount returns the character count of a message's content
// plus the fixed structural overhead.
func messageCharCount(message Message) int {
	count := messageCharOverhead
	for _, part := range message.Parts {
		switch part.Type {
		case PartText:
			count += len(part.Text)
		case PartImage:
			count += len(part.ImageURL) + len(part.Detail)
		}
	}
	return count
}

func messagesCharCount(messages []Message) int {
	total := 0
	for i := range messages {
		total += messageCharCount(messages[i])
	}
	return total
}
