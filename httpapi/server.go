// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/parleyhq/parley/orchestrator"
)

// Config holds configuration for creating a Server.
type Config struct {
	// ListenAddress is the TCP address to serve on, for example
	// "127.0.0.1:8484". Port 0 picks an ephemeral port; Addr reports
	// the bound address after Start.
	ListenAddress string

	// Engine runs inbound messages.
	Engine *orchestrator.Engine

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the HTTP front of the bridge.
type Server struct {
	listenAddress string
	httpServer    *http.Server
	listener      net.Listener
	logger        *slog.Logger
}

// NewServer creates a Server. It does not listen until Start.
func NewServer(config Config) (*Server, error) {
	if config.ListenAddress == "" {
		return nil, fmt.Errorf("httpapi: ListenAddress is required")
	}
	if config.Engine == nil {
		return nil, fmt.Errorf("httpapi: Engine is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{engine: config.Engine, logger: logger}
	mux := http.NewServeMux()
	// Method-restricted routes, written without the Go 1.22 "METHOD /path"
	// mux patterns so they behave the same on a Go 1.21 toolchain.
	mux.HandleFunc("/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h.HandleMessage(w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h.HandleHealth(w, r)
	})

	return &Server{
		listenAddress: config.ListenAddress,
		httpServer: &http.Server{
			Handler:     mux,
			ReadTimeout: 30 * time.Second,
			// An orchestration can chain several model calls; the
			// response write waits on all of them.
			WriteTimeout: 5 * time.Minute,
		},
		logger: logger,
	}, nil
}

// Handler returns the route table, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening and serving in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		return fmt.Errorf("httpapi: listening on %s: %w", s.listenAddress, err)
	}
	s.listener = listener
	s.logger.Info("http server started", "address", listener.Addr().String())

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server, waiting for in-flight
// orchestrations up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
