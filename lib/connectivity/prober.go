// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package connectivity

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/compscidr/awm-lib/lib/clock"
)

// DefaultProbeURL answers 204 to any client with working internet.
const DefaultProbeURL = "http://connectivitycheck.gstatic.com/generate_204"

// ProberConfig holds the parameters for creating a Prober.
type ProberConfig struct {
	// Links reads link state. Defaults to InterfaceLinks.
	Links LinkFunc

	// ProbeURL is fetched with GET; any 2xx answer means the internet
	// is reachable. Defaults to DefaultProbeURL.
	ProbeURL string

	// TTL is how long a probe answer is reused. Defaults to 30 seconds.
	TTL time.Duration

	// Timeout bounds one probe. Defaults to 5 seconds.
	Timeout time.Duration

	HTTPClient *http.Client

	// Clock drives TTL expiry. Defaults to clock.Real().
	Clock clock.Clock

	Logger *slog.Logger
}

// Prober is an Oracle combining a link check with a cached HTTP
// reachability probe.
//
// Status never waits on the network. It answers from the cache and,
// when the answer is missing or older than TTL, starts one background
// probe; the stale answer is served until that probe returns. Before
// the first probe completes the internet counts as unreachable, so
// early observations are stored rather than uploaded.
type Prober struct {
	links      LinkFunc
	probeURL   string
	ttl        time.Duration
	timeout    time.Duration
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger

	mu        sync.Mutex
	reachable bool
	checkedAt time.Time
	checked   bool
	inflight  *probeCall

	// generation is bumped by Invalidate; a probe started under an
	// older generation does not update the cache.
	generation uint64
}

type probeCall struct {
	done       chan struct{}
	reachable  bool
	generation uint64
}

// NewProber returns a Prober with defaults applied.
func NewProber(cfg ProberConfig) *Prober {
	prober := &Prober{
		links:      cfg.Links,
		probeURL:   cfg.ProbeURL,
		ttl:        cfg.TTL,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
	if prober.links == nil {
		prober.links = InterfaceLinks
	}
	if prober.probeURL == "" {
		prober.probeURL = DefaultProbeURL
	}
	if prober.ttl <= 0 {
		prober.ttl = 30 * time.Second
	}
	if prober.timeout <= 0 {
		prober.timeout = 5 * time.Second
	}
	if prober.httpClient == nil {
		prober.httpClient = &http.Client{
			// A captive portal redirecting the probe is not the internet.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	if prober.clock == nil {
		prober.clock = clock.Real()
	}
	if prober.logger == nil {
		prober.logger = slog.New(slog.DiscardHandler)
	}
	return prober
}

// Status reads the links and, when any link is up, the cached
// reachability. A link read failure reports fully offline.
func (p *Prober) Status(ctx context.Context) Status {
	links, err := p.links()
	if err != nil {
		p.logger.Warn("reading link state failed", "error", err)
		return Status{}
	}
	status := Status{WiFiConnected: links.WiFi, CellularConnected: links.Cellular}
	if !links.WiFi && !links.Cellular {
		return status
	}
	status.InternetReachable = p.cachedReachable()
	return status
}

// Refresh probes now and returns the answer. A caller arriving while a
// probe is in flight waits for that probe instead of starting another.
func (p *Prober) Refresh(ctx context.Context) bool {
	p.mu.Lock()
	call := p.inflight
	if call == nil {
		call = p.startLocked()
		p.mu.Unlock()
		p.run(ctx, call)
		return call.reachable
	}
	p.mu.Unlock()

	select {
	case <-call.done:
		return call.reachable
	case <-ctx.Done():
		return false
	}
}

// Invalidate forgets the cached answer. Until the next probe returns
// the internet counts as unreachable, and a probe already in flight
// no longer updates the cache. Hosts call it from link-change
// callbacks.
func (p *Prober) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checked = false
	p.reachable = false
	p.inflight = nil
	p.generation++
}

func (p *Prober) cachedReachable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	fresh := p.checked && p.clock.Now().Sub(p.checkedAt) < p.ttl
	if !fresh && p.inflight == nil {
		call := p.startLocked()
		go p.run(context.Background(), call)
	}
	return p.checked && p.reachable
}

// startLocked registers a new in-flight probe. Caller holds p.mu.
func (p *Prober) startLocked() *probeCall {
	call := &probeCall{done: make(chan struct{}), generation: p.generation}
	p.inflight = call
	return call
}

func (p *Prober) run(ctx context.Context, call *probeCall) {
	call.reachable = p.probe(ctx)

	p.mu.Lock()
	if p.inflight == call {
		p.inflight = nil
	}
	// A probe cut short by the caller's cancellation says nothing about
	// the network, so it is not cached.
	if ctx.Err() == nil && call.generation == p.generation {
		p.reachable = call.reachable
		p.checkedAt = p.clock.Now()
		p.checked = true
	}
	p.mu.Unlock()
	close(call.done)
}

func (p *Prober) probe(ctx context.Context) bool {
	probeContext, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(probeContext, http.MethodGet, p.probeURL, nil)
	if err != nil {
		p.logger.Error("building probe request", "url", p.probeURL, "error", err)
		return false
	}
	response, err := p.httpClient.Do(request)
	if err != nil {
		p.logger.Debug("connectivity probe failed", "url", p.probeURL, "error", err)
		return false
	}
	defer response.Body.Close()
	io.Copy(io.Discard, io.LimitReader(response.Body, 4096))

	reachable := response.StatusCode >= 200 && response.StatusCode < 300
	if !reachable {
		p.logger.Debug("connectivity probe answered non-2xx", "url", p.probeURL, "status", response.StatusCode)
	}
	return reachable
}
