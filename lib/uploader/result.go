// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package uploader

import "fmt"

// Outcome classifies one delivery attempt.
type Outcome int

const (
	// Success: the endpoint answered 2xx.
	Success Outcome = iota

	// Rejected: the endpoint answered 400, the payload was refused as
	// malformed. The record is kept for a later sweep, never discarded.
	Rejected

	// ServerError: any other non-2xx status. Transient.
	ServerError

	// Unreachable: the request never got a response (DNS, dial, TLS,
	// connection reset). Transient.
	Unreachable

	// Timeout: the request deadline passed. Transient.
	Timeout
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Rejected:
		return "rejected"
	case ServerError:
		return "server_error"
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// stopsBatch reports whether a batch must end after this outcome. A
// rejection means later records are likely rejected too; a connection
// failure means later requests would fail the same way.
func (o Outcome) stopsBatch() bool {
	return o == Rejected || o == Unreachable || o == Timeout
}

// Result is the outcome of uploading one record.
type Result struct {
	// RecordID is the uploaded record's store id, zero for records
	// that were never stored.
	RecordID int64

	Outcome Outcome

	// StatusCode is the HTTP status, zero when no response arrived.
	StatusCode int

	// Err describes any outcome other than Success.
	Err error
}

// OK reports whether the upload succeeded.
func (r Result) OK() bool { return r.Outcome == Success }
