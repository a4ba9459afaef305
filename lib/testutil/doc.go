// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for AWM packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the timeout
// safety valve pattern (select with a time.After fallback) so that
// individual tests never call time.After directly. They are the only
// place in the test suite where real wall-clock timeouts appear; every
// timing behavior under test runs on a [clock.FakeClock].
//
// [Collector] is an in-process stand-in for the collection endpoint. It
// records every POST it receives, decodes the awm_measure body, and
// answers with a status chosen per request by the test.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
