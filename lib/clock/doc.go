// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction so that the
// delivery pipeline's schedules can be tested deterministically.
//
// Library code takes a Clock instead of calling time.Now, time.After,
// or time.NewTicker. Production wiring passes Real(); tests pass
// Fake() and drive time with Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	coordinator := coordinator.New(coordinator.Config{Clock: c, ...})
//	go coordinator.Run(ctx, events)
//	c.WaitForTimers(1)          // the sweep loop registered its initial delay
//	c.Advance(30 * time.Second) // fire it
//
// WaitForTimers removes the race between a goroutine registering a
// timer and the test advancing past it.
package clock
