// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// parleyd is the Parley bridge daemon. It connects a Slack workspace
// to an LLM provider: Socket Mode delivers mentions and direct
// messages, the orchestrator turns each one into model calls and Web
// API actions, and an internal HTTP endpoint accepts the same traffic
// from non-Slack clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/parleyhq/parley/catalog"
	"github.com/parleyhq/parley/chat"
	"github.com/parleyhq/parley/conversation"
	"github.com/parleyhq/parley/httpapi"
	"github.com/parleyhq/parley/lib/config"
	"github.com/parleyhq/parley/lib/llm"
	"github.com/parleyhq/parley/lib/version"
	"github.com/parleyhq/parley/orchestrator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		listen     string
		logLevel   string
	)

	flagSet := pflag.NewFlagSet("parleyd", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to parley.yaml (default: $PARLEY_CONFIG)")
	flagSet.StringVar(&listen, "listen", "", "override server.listen from the config")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	// Handle --version before flag parsing to match parley-send.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("parleyd %s\n", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

func newLogger(level string) (*slog.Logger, error) {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})), nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// serve assembles the bridge and blocks until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// One Web API client, shared by the function catalog and the
	// socket pump.
	client, err := chat.NewClient(chat.ClientConfig{
		BotToken: cfg.Slack.BotToken,
		BaseURL:  cfg.Slack.BaseURL,
		Logger:   logger.With("component", "chat"),
	})
	if err != nil {
		return err
	}

	store, err := conversation.NewStore(conversation.StoreConfig{
		MaxConversations: cfg.Agent.MaxConversations,
		Instructions:     cfg.Agent.Instructions,
		AssistantFilter:  chat.ToMrkdwn,
		Logger:           logger.With("component", "store"),
	})
	if err != nil {
		return err
	}

	registry, err := catalog.New(catalog.Config{
		Client: client,
		Logger: logger.With("component", "catalog"),
	})
	if err != nil {
		return err
	}

	strategy, err := newStrategy(cfg)
	if err != nil {
		return err
	}

	engine, err := orchestrator.NewEngine(orchestrator.Config{
		Store:             store,
		Registry:          registry,
		Provider:          newProvider(cfg),
		Model:             cfg.LLM.Model,
		MaxTokens:         cfg.LLM.MaxTokens,
		HistoryWindow:     cfg.Agent.HistoryWindow,
		MaxFollowUpRounds: cfg.Agent.MaxFollowUpRounds,
		Strategy:          strategy,
		Estimator:         conversation.NewCharEstimator(),
		Logger:            logger.With("component", "orchestrator"),
	})
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(httpapi.Config{
		ListenAddress: cfg.Server.Listen,
		Engine:        engine,
		Logger:        logger.With("component", "httpapi"),
	})
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}

	// Durations were validated with the rest of the config.
	ttl, _ := cfg.ParsedIdleTTL()
	interval, _ := cfg.ParsedSweepInterval()
	if ttl > 0 && interval > 0 {
		sweeper, err := conversation.NewSweeper(store, ttl, interval, nil, logger.With("component", "sweeper"))
		if err != nil {
			return err
		}
		go sweeper.Run(ctx)
	}

	socketDone := make(chan error, 1)
	if cfg.Slack.SocketMode {
		socket, err := chat.NewSocket(chat.SocketConfig{
			Client:   client,
			AppToken: cfg.Slack.AppToken,
			Handler:  socketHandler(engine, client, logger.With("component", "socket")),
			Logger:   logger.With("component", "socket"),
		})
		if err != nil {
			return err
		}
		go func() { socketDone <- socket.Run(ctx) }()
	} else {
		logger.Info("socket mode disabled; HTTP endpoint only")
	}

	logger.Info("parleyd running",
		"version", version.Short(),
		"environment", string(cfg.Environment),
		"listen", server.Addr(),
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"socket_mode", cfg.Slack.SocketMode)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	if cfg.Slack.SocketMode {
		if err := <-socketDone; err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("socket pump: %w", err)
		}
	}
	return nil
}

// newProvider selects the wire format. Validate already constrained
// the provider name to anthropic or openai.
func newProvider(cfg *config.Config) llm.Provider {
	if cfg.LLM.Provider == "openai" {
		return llm.NewOpenAI(nil, cfg.LLM.BaseURL, cfg.LLM.APIKey)
	}
	return llm.NewAnthropic(nil, cfg.LLM.BaseURL, cfg.LLM.APIKey)
}

// newStrategy loads the operator's continuation rules when configured.
// A nil return lets the engine fall back to the embedded rules.
func newStrategy(cfg *config.Config) (orchestrator.Strategy, error) {
	if cfg.Agent.RulesFile == "" {
		return nil, nil
	}
	rules, err := orchestrator.LoadRules(cfg.Agent.RulesFile)
	if err != nil {
		return nil, err
	}
	return orchestrator.NewKeywordStrategy(rules), nil
}

// socketHandler routes Socket Mode messages through the orchestrator
// and posts the reply back where the message came from.
func socketHandler(engine *orchestrator.Engine, client *chat.Client, logger *slog.Logger) chat.Handler {
	return func(ctx context.Context, event chat.MessageEvent) {
		run, err := engine.HandleIncoming(ctx, event.ThreadKey, event.ChannelID, event.UserID, event.Text)
		reply := ""
		if run != nil {
			reply = run.Reply
		}
		if err != nil {
			logger.Error("orchestration failed",
				"thread_key", event.ThreadKey,
				"error", err)
			if reply == "" {
				reply = "Something went wrong handling that request."
			}
		}
		if reply == "" {
			return
		}
		if _, err := client.PostMessage(ctx, event.ChannelID, replyThreadTS(event), reply); err != nil {
			logger.Error("posting reply failed",
				"channel_id", event.ChannelID,
				"error", err)
		}
	}
}

// replyThreadTS picks the reply's thread: the mention's thread in
// channels, unthreaded in direct messages (whose thread key is the
// bare channel ID).
func replyThreadTS(event chat.MessageEvent) string {
	if channel, ts, found := strings.Cut(event.ThreadKey, ":"); found && channel == event.ChannelID {
		return ts
	}
	return ""
}
