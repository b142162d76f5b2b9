// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock parameter instead of calling time.Now,
// time.After, time.NewTicker, or time.Sleep directly. Real() provides
// standard library behavior; Fake() provides a deterministic clock for
// tests that advances only when Advance is called.
//
// When a goroutine calls Sleep, After, or NewTicker on a FakeClock it
// registers a pending waiter. Tests use WaitForTimers to block until a
// known number of waiters are registered before calling Advance, which
// removes the race between waiter registration and time advancement:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	sweeper, _ := conversation.NewSweeper(store, time.Hour, time.Minute, c, nil)
//	go sweeper.Run(ctx)
//	c.WaitForTimers(1)
//	c.Advance(time.Minute)
package clock
