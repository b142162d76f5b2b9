// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/parleyhq/parley/lib/clock"
	"github.com/parleyhq/parley/lib/testutil"
)

func TestSweeperEvictsIdleConversations(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	store := newTestStore(t, StoreConfig{Clock: fake})

	store.Create("stale", "C1", "U1")
	fake.Advance(30 * time.Minute)
	store.Create("fresh", "C2", "U2")

	sweeper, err := NewSweeper(store, time.Hour, 10*time.Minute, fake, nil)
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		sweeper.Run(ctx)
	}()

	// Wait for the sweep ticker to register, then advance past the
	// stale conversation's TTL. One tick sweeps it; "fresh" survives.
	fake.WaitForTimers(1)
	fake.Advance(40 * time.Minute)

	deadline := time.After(5 * time.Second)
	for store.Len() > 1 {
		select {
		case <-deadline:
			t.Fatalf("sweep did not evict: Len() = %d", store.Len())
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := store.History("fresh"); err != nil {
		t.Errorf("History(fresh): %v, want survivor", err)
	}

	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "sweeper did not stop on cancel")
}

func TestSweeperStopsOnCancel(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	store := newTestStore(t, StoreConfig{Clock: fake})

	sweeper, err := NewSweeper(store, time.Hour, time.Minute, fake, nil)
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sweeper.Run(ctx)
	}()

	fake.WaitForTimers(1)
	cancel()
	testutil.RequireClosed(t, done, 5*time.Second, "sweeper did not stop on cancel")
}

func TestNewSweeperRejectsBadDurations(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, StoreConfig{})

	if _, err := NewSweeper(store, 0, time.Minute, nil, nil); err == nil {
		t.Error("NewSweeper accepted zero ttl")
	}
	if _, err := NewSweeper(store, time.Hour, 0, nil, nil); err == nil {
		t.Error("NewSweeper accepted zero interval")
	}
}
