// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/compscidr/awm-lib/lib/record"
)

// Request is one POST received by a Collector.
type Request struct {
	Header  http.Header
	Body    []byte // after Content-Encoding is undone
	Payload record.Payload
	Status  int // the status the collector answered with
}

// Respond picks the status for the n-th request (zero-based).
type Respond func(n int, payload record.Payload) int

// Collector is a fake collection endpoint backed by httptest.Server.
type Collector struct {
	URL string

	t       *testing.T
	server  *httptest.Server
	mu      sync.Mutex
	respond Respond
	seen    []Request
}

// NewCollector starts a collector that answers every request with the
// status respond returns. A nil respond answers 200. The server is
// closed when the test ends.
func NewCollector(t *testing.T, respond Respond) *Collector {
	t.Helper()
	collector := &Collector{t: t, respond: respond}
	collector.server = httptest.NewServer(http.HandlerFunc(collector.serve))
	collector.URL = collector.server.URL + "/awm-lib-server/"
	t.Cleanup(collector.server.Close)
	return collector
}

// SetRespond replaces the response policy for later requests.
func (c *Collector) SetRespond(respond Respond) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.respond = respond
}

// Requests returns a copy of every request received so far.
func (c *Collector) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Request(nil), c.seen...)
}

// Count returns the number of requests received so far.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// NetworkNames returns the first device network name of each received
// payload, in arrival order.
func (c *Collector) NetworkNames() []string {
	var names []string
	for _, request := range c.Requests() {
		if len(request.Payload.Measure.Devices) > 0 {
			names = append(names, request.Payload.Measure.Devices[0].NetworkName)
		} else {
			names = append(names, "")
		}
	}
	return names
}

func (c *Collector) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var reader io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(r.Body)
		if err != nil {
			c.t.Errorf("collector: bad gzip body: %v", err)
			http.Error(w, "bad gzip", http.StatusBadRequest)
			return
		}
		defer gzipReader.Close()
		reader = gzipReader
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		c.t.Errorf("collector: reading body: %v", err)
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	payload, parseErr := record.ParsePayload(body)

	c.mu.Lock()
	status := http.StatusOK
	if parseErr != nil {
		status = http.StatusBadRequest
	} else if c.respond != nil {
		status = c.respond(len(c.seen), payload)
	}
	c.seen = append(c.seen, Request{
		Header:  r.Header.Clone(),
		Body:    body,
		Payload: payload,
		Status:  status,
	})
	c.mu.Unlock()

	w.WriteHeader(status)
	if status == http.StatusBadRequest {
		io.WriteString(w, "malformed awm_measure\n")
	}
}
