// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parleyhq/parley/lib/clock"
)

// Sweeper periodically evicts conversations that have been idle longer
// than a TTL. The capacity bound in [Store] protects memory on its
// own; the sweeper additionally drops stale threads so capacity
// evictions do not land on active ones.
type Sweeper struct {
	store    *Store
	ttl      time.Duration
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper evicting conversations idle longer than
// ttl, checking every interval. Both durations must be positive.
func NewSweeper(store *Store, ttl, interval time.Duration, clk clock.Clock, logger *slog.Logger) (*Sweeper, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("conversation: sweeper ttl must be positive, got %s", ttl)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("conversation: sweeper interval must be positive, got %s", interval)
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		clock:    clk,
		logger:   logger,
	}, nil
}

// Run sweeps on the configured cadence until ctx is cancelled.
func (sweeper *Sweeper) Run(ctx context.Context) {
	ticker := sweeper.clock.NewTicker(sweeper.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sweeper.logger.Debug("sweeper stopping")
			return
		case <-ticker.C:
			cutoff := sweeper.clock.Now().Add(-sweeper.ttl)
			if evicted := sweeper.store.EvictIdle(cutoff); len(evicted) > 0 {
				sweeper.logger.Debug("sweep complete",
					"evicted", len(evicted),
					"live", sweeper.store.Len())
			}
		}
	}
}
