// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"

	"github.com/compscidr/awm-lib/lib/event"
)

// maxEventLine bounds one JSON line; a discovery listing a few thousand
// MACs fits comfortably.
const maxEventLine = 1 << 20

// readEvents decodes JSON lines from r onto events and closes events at
// end of input. Undecodable lines are logged and skipped; blank lines
// and lines starting with # are ignored.
func readEvents(ctx context.Context, r io.Reader, events chan<- event.Event, logger *slog.Logger) {
	defer close(events)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		decoded, err := event.Decode(line)
		if err != nil {
			logger.Warn("skipping undecodable event", "line", lineNumber, "error", err)
			continue
		}
		select {
		case events <- decoded:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("reading events failed", "line", lineNumber, "error", err)
	}
}
