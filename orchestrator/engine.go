// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parleyhq/parley/conversation"
	"github.com/parleyhq/parley/function"
	"github.com/parleyhq/parley/lib/llm"
)

const (
	// defaultMaxTokens caps response length when Config.MaxTokens is
	// zero.
	defaultMaxTokens = 1024

	// defaultHistoryWindow keeps prompts minimal: the standing
	// instructions plus the latest user message.
	defaultHistoryWindow = 1

	// maxFollowUpRounds bounds continuation depth regardless of what
	// the strategy decides.
	maxFollowUpRounds = 3
)

// compactFields is the payload whitelist carried into follow-up
// prompts. Everything else a handler returns stays out of the prompt.
var compactFields = []string{
	"message", "channelId", "channelName", "ts",
	"userId", "userIds", "permalink", "fileId", "count",
}

// placeholderReplies are bare model acknowledgements with no user
// value. They are dropped instead of appended to the reply.
var placeholderReplies = map[string]bool{
	"ok":   true,
	"done": true,
	"null": true,
	"none": true,
	"n/a":  true,
}

// continuationSystem replaces the thread's standing instructions on
// follow-up rounds. The round sees only the original request and the
// completed steps, not the whole thread.
const continuationSystem = "You are finishing a multi-step chat request. " +
	"The user's original request and the results of the steps already executed follow. " +
	"Call one of the offered functions only if it is needed to finish the request; " +
	"otherwise reply with one short confirmation sentence."

// Config assembles an Engine. Store, Registry, Provider, and Model are
// required; everything else has a usable default.
type Config struct {
	// Store holds per-thread conversation history.
	Store *conversation.Store

	// Registry is the function catalog offered to the model.
	Registry *function.Registry

	// Provider executes model completions.
	Provider llm.Provider

	// Model is the provider model identifier for every completion.
	Model string

	// MaxTokens caps each completion's length. Zero means 1024.
	MaxTokens int

	// HistoryWindow is the number of non-system thread messages kept
	// in the prompt. Zero means 1: the standing instructions plus the
	// latest user message.
	HistoryWindow int

	// MaxFollowUpRounds caps continuation rounds after the initial
	// dispatch. Zero means 3; values above 3 are clamped to 3.
	MaxFollowUpRounds int

	// Strategy decides whether a dispatched round warrants a
	// follow-up. Nil uses the keyword strategy with the embedded
	// rules.
	Strategy Strategy

	// Estimator, when set, is calibrated against the provider's
	// reported input token counts.
	Estimator *conversation.CharEstimator

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine runs one bounded orchestration per inbound message: shape the
// thread into a prompt, let the model reply or call functions,
// dispatch the calls in order, and run narrowed follow-up rounds until
// the chain stops or the depth cap trips.
type Engine struct {
	store        *conversation.Store
	registry     *function.Registry
	dispatcher   *function.Dispatcher
	provider     llm.Provider
	model        string
	profile      conversation.Profile
	maxTokens    int
	window       int
	maxFollowUps int
	strategy     Strategy
	estimator    *conversation.CharEstimator
	logger       *slog.Logger
}

// NewEngine validates config and returns a ready Engine.
func NewEngine(config Config) (*Engine, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("orchestrator: Store is required")
	}
	if config.Registry == nil {
		return nil, fmt.Errorf("orchestrator: Registry is required")
	}
	if config.Provider == nil {
		return nil, fmt.Errorf("orchestrator: Provider is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("orchestrator: Model is required")
	}
	strategy := config.Strategy
	if strategy == nil {
		rules, err := DefaultRules()
		if err != nil {
			return nil, fmt.Errorf("orchestrator: loading default rules: %w", err)
		}
		strategy = NewKeywordStrategy(rules)
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	window := config.HistoryWindow
	if window <= 0 {
		window = defaultHistoryWindow
	}
	followUps := config.MaxFollowUpRounds
	if followUps <= 0 || followUps > maxFollowUpRounds {
		followUps = maxFollowUpRounds
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:        config.Store,
		registry:     config.Registry,
		dispatcher:   function.NewDispatcher(config.Registry, logger),
		provider:     config.Provider,
		model:        config.Model,
		profile:      conversation.ProfileForModel(config.Model),
		maxTokens:    maxTokens,
		window:       window,
		maxFollowUps: followUps,
		strategy:     strategy,
		estimator:    config.Estimator,
		logger:       logger,
	}, nil
}

// FunctionOutcome pairs a dispatched function's name with its result.
type FunctionOutcome struct {
	FunctionName string          `json:"functionName"`
	Result       function.Result `json:"result"`
}

// RunResult is the outcome of one orchestration run.
type RunResult struct {
	// Reply is the text to show the user: function confirmations and
	// model content in execution order, joined with newlines.
	Reply string

	// Results lists every dispatched function in execution order,
	// across all rounds.
	Results []FunctionOutcome
}

// HandleIncoming processes one user message addressed to the bridge.
// It records the message in the thread, prompts the model with the
// full function catalog, dispatches any requested calls in order, and
// synthesizes the reply from function confirmations and model text.
// The reply is also appended to the thread so later turns can see it.
//
// On error the returned result may still carry the functions that ran
// before the failure, so callers can report partial progress.
func (engine *Engine) HandleIncoming(ctx context.Context, threadKey, channelID, userID, text string) (*RunResult, error) {
	engine.store.Create(threadKey, channelID, userID)
	if err := engine.store.AppendUserMessage(threadKey, text); err != nil {
		return nil, fmt.Errorf("orchestrator: recording user message: %w", err)
	}
	history, err := engine.store.History(threadKey)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: reading thread history: %w", err)
	}
	shaped := conversation.Shape(history, engine.profile, engine.window)
	system, messages := providerMessages(shaped)

	response, err := engine.complete(ctx, llm.Request{
		Model:     engine.model,
		System:    system,
		Messages:  messages,
		Tools:     toTools(engine.registry.Definitions()),
		MaxTokens: engine.maxTokens,
	}, shaped)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: model call: %w", err)
	}

	calls := response.FunctionCalls()
	if len(calls) == 0 {
		reply := strings.TrimSpace(response.Text())
		engine.recordReply(threadKey, reply)
		return &RunResult{Reply: reply}, nil
	}

	run := &RunResult{}
	var parts []string
	for followUps := 0; ; followUps++ {
		engine.logger.Info("dispatching function batch",
			"thread_key", threadKey,
			"count", len(calls),
			"first", calls[0].Name)
		outcomes := engine.dispatchAll(ctx, calls)
		run.Results = append(run.Results, outcomes...)
		parts = append(parts, confirmations(outcomes)...)
		if content := replyContent(response); content != "" {
			parts = append(parts, content)
		}

		decision := engine.strategy.Evaluate(calls[0].Name, calls[len(calls)-1].Name, text)
		if !decision.Continue || len(decision.Candidates) == 0 {
			break
		}
		subset := engine.registry.Subset(decision.Candidates...)
		if len(subset) == 0 {
			break
		}
		if followUps >= engine.maxFollowUps {
			engine.logger.Warn("follow-up round cap reached",
				"thread_key", threadKey,
				"rounds", followUps)
			break
		}

		engine.logger.Info("dispatch chain continuing",
			"thread_key", threadKey,
			"round", followUps+1,
			"candidates", decision.Candidates)
		response, err = engine.complete(ctx, llm.Request{
			Model:     engine.model,
			System:    continuationSystem,
			Messages:  []llm.Message{llm.UserMessage(continuationPrompt(text, run.Results))},
			Tools:     toTools(subset),
			MaxTokens: engine.maxTokens,
		}, nil)
		if err != nil {
			run.Reply = strings.Join(parts, "\n")
			engine.recordReply(threadKey, run.Reply)
			return run, fmt.Errorf("orchestrator: follow-up model call: %w", err)
		}
		calls = response.FunctionCalls()
		if len(calls) == 0 {
			if content := replyContent(response); content != "" {
				parts = append(parts, content)
			}
			break
		}
	}

	run.Reply = strings.Join(parts, "\n")
	engine.recordReply(threadKey, run.Reply)
	return run, nil
}

// complete sends one request through the provider. When shaped is
// non-nil the estimator, if configured, is calibrated against the
// provider's reported input tokens.
func (engine *Engine) complete(ctx context.Context, request llm.Request, shaped []conversation.Message) (*llm.Response, error) {
	if engine.estimator != nil && shaped != nil {
		engine.logger.Debug("estimated prompt tokens",
			"tokens", engine.estimator.EstimateTokens(shaped))
	}
	response, err := engine.provider.Complete(ctx, request)
	if err != nil {
		return nil, err
	}
	if engine.estimator != nil && shaped != nil {
		engine.estimator.RecordUsage(shaped, response.Usage.InputTokens)
	}
	engine.logger.Debug("model response",
		"model", response.Model,
		"stop_reason", string(response.StopReason),
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens)
	return response, nil
}

// dispatchAll executes calls in the order the model emitted them. A
// failed call does not stop the batch; its failure is recorded and the
// remaining calls still run.
func (engine *Engine) dispatchAll(ctx context.Context, calls []llm.FunctionCall) []FunctionOutcome {
	outcomes := make([]FunctionOutcome, 0, len(calls))
	for _, call := range calls {
		result := engine.dispatcher.Dispatch(ctx, function.Call{
			Name:      call.Name,
			Arguments: call.Arguments,
		})
		outcomes = append(outcomes, FunctionOutcome{FunctionName: call.Name, Result: result})
	}
	return outcomes
}

// recordReply appends the assistant's reply to the thread. A thread
// evicted mid-run is not an error worth failing the reply over.
func (engine *Engine) recordReply(threadKey, reply string) {
	if reply == "" {
		return
	}
	if err := engine.store.AppendAssistantMessage(threadKey, reply); err != nil {
		if !errors.Is(err, conversation.ErrNotFound) {
			engine.logger.Warn("recording assistant reply failed",
				"thread_key", threadKey,
				"error", err)
		}
	}
}

// confirmations renders one reply line per outcome: the handler's own
// message when it provided one, otherwise a generic confirmation or
// failure line.
func confirmations(outcomes []FunctionOutcome) []string {
	parts := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		switch {
		case !outcome.Result.Success:
			parts = append(parts, fmt.Sprintf("%s failed: %s", outcome.FunctionName, outcome.Result.Error))
		case outcome.Result.Message() != "":
			parts = append(parts, outcome.Result.Message())
		default:
			parts = append(parts, fmt.Sprintf("%s completed.", outcome.FunctionName))
		}
	}
	return parts
}

// replyContent returns the response's text content unless it is empty
// or a bare placeholder acknowledgement.
func replyContent(response *llm.Response) string {
	content := strings.TrimSpace(response.Text())
	if content == "" || placeholderReplies[strings.ToLower(content)] {
		return ""
	}
	return content
}

// continuationPrompt builds the single user message for a follow-up
// round: the original request plus a compact JSON digest of every step
// already completed.
func continuationPrompt(userText string, outcomes []FunctionOutcome) string {
	steps := make([]map[string]any, len(outcomes))
	for i, outcome := range outcomes {
		step := outcome.Result.Compact(compactFields...)
		step["function"] = outcome.FunctionName
		steps[i] = step
	}
	// Compact payloads originate from handler maps of JSON-safe
	// values, so marshaling cannot fail.
	encoded, _ := json.Marshal(steps)

	var builder strings.Builder
	builder.WriteString("Original request: ")
	builder.WriteString(userText)
	builder.WriteString("\n\nSteps completed:\n")
	builder.Write(encoded)
	return builder.String()
}

// providerMessages splits shaped history into the provider's system
// string and transcript. Profiles that inline system text leave the
// system string empty.
func providerMessages(shaped []conversation.Message) (string, []llm.Message) {
	var systemParts []string
	var messages []llm.Message
	for _, message := range shaped {
		if message.Role == conversation.RoleSystem {
			systemParts = append(systemParts, message.Text())
			continue
		}
		messages = append(messages, llm.Message{
			Role:    providerRole(message.Role),
			Content: providerBlocks(message.Parts),
		})
	}
	return strings.Join(systemParts, "\n\n"), messages
}

func providerRole(role conversation.Role) llm.Role {
	if role == conversation.RoleAssistant {
		return llm.RoleAssistant
	}
	return llm.RoleUser
}

func providerBlocks(parts []conversation.Part) []llm.ContentBlock {
	blocks := make([]llm.ContentBlock, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case conversation.PartImage:
			blocks = append(blocks, llm.ImageBlock(part.ImageURL, part.Detail))
		default:
			blocks = append(blocks, llm.TextBlock(part.Text))
		}
	}
	return blocks
}

// toTools converts registry definitions to the provider tool type.
func toTools(definitions []function.Definition) []llm.Tool {
	tools := make([]llm.Tool, len(definitions))
	for i, definition := range definitions {
		tools[i] = llm.Tool{
			Name:        definition.Name,
			Description: definition.Description,
			InputSchema: definition.Parameters,
		}
	}
	return tools
}
