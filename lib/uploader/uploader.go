// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package uploader delivers records to the remote collection endpoint
// as awm_measure JSON documents, one HTTP POST per record.
//
// Every attempt produces a Result rather than an error: the coordinator
// turns outcomes into state transitions, and nothing here touches the
// local store.
//
// Each request carries an X-Awm-Digest header, the BLAKE3-256 hash of
// the uncompressed JSON body. Delivery is at-least-once, so a record
// whose acknowledgment was lost is sent again with the same digest and
// the server can drop the duplicate.
package uploader

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/blake3"

	"github.com/compscidr/awm-lib/lib/record"
	"github.com/compscidr/awm-lib/lib/version"
)

// DefaultEndpoint is the public collection server.
const DefaultEndpoint = "https://test.rightmesh.io/awm-lib-server/"

// DigestHeader names the request header carrying the body digest.
const DigestHeader = "X-Awm-Digest"

// maxResponseBytes bounds how much of a response body is read. The
// endpoint's answers are tiny; anything larger is discarded unread.
const maxResponseBytes = 1 << 20

// Compression selects the request body encoding.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
)

// Config holds the parameters for creating an Uploader.
type Config struct {
	// Endpoint is the collection URL. Defaults to DefaultEndpoint.
	Endpoint string

	// Timeout bounds each request. Defaults to 15 seconds.
	Timeout time.Duration

	// Compression of request bodies. Defaults to CompressionNone.
	Compression Compression

	// HTTPClient defaults to a client with no overall timeout; the
	// per-request Timeout applies instead.
	HTTPClient *http.Client

	// Logger receives one line per failed attempt. Nil discards.
	Logger *slog.Logger
}

// Uploader is safe for concurrent use.
type Uploader struct {
	endpoint    string
	timeout     time.Duration
	compression Compression
	httpClient  *http.Client
	userAgent   string
	logger      *slog.Logger
}

// New validates cfg and returns an Uploader.
func New(cfg Config) (*Uploader, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("uploader: endpoint %q: %w", endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("uploader: endpoint %q must be http or https", endpoint)
	}

	compression := cfg.Compression
	switch compression {
	case "":
		compression = CompressionNone
	case CompressionNone, CompressionGzip:
	default:
		return nil, fmt.Errorf("uploader: unsupported compression %q", compression)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Uploader{
		endpoint:    endpoint,
		timeout:     timeout,
		compression: compression,
		httpClient:  httpClient,
		userAgent:   version.UserAgent(),
		logger:      logger,
	}, nil
}

// UploadOne delivers a single record.
func (u *Uploader) UploadOne(ctx context.Context, rec record.Record) Result {
	result := u.upload(ctx, rec)
	if !result.OK() {
		u.logger.Warn("upload failed",
			"record_id", rec.ID,
			"outcome", result.Outcome.String(),
			"status", result.StatusCode,
			"error", result.Err,
		)
	}
	return result
}

// UploadBatch delivers records in order and returns one Result per
// attempted record. It stops after the first Rejected, Unreachable, or
// Timeout result, so the returned slice may be shorter than records;
// the remainder were not attempted. ServerError results do not stop
// the batch.
func (u *Uploader) UploadBatch(ctx context.Context, records []record.Record) []Result {
	results := make([]Result, 0, len(records))
	for _, rec := range records {
		result := u.UploadOne(ctx, rec)
		results = append(results, result)
		if result.Outcome.stopsBatch() {
			if len(records) > len(results) {
				u.logger.Info("upload batch stopped early",
					"outcome", result.Outcome.String(),
					"record_id", rec.ID,
					"not_attempted", len(records)-len(results),
				)
			}
			break
		}
	}
	return results
}

func (u *Uploader) upload(ctx context.Context, rec record.Record) Result {
	result := Result{RecordID: rec.ID}

	payload, err := record.MarshalPayload(rec)
	if err != nil {
		result.Outcome = Rejected
		result.Err = err
		return result
	}

	body, err := u.encodeBody(payload)
	if err != nil {
		result.Outcome = Rejected
		result.Err = err
		return result
	}

	requestContext, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(requestContext, http.MethodPost, u.endpoint, bytes.NewReader(body))
	if err != nil {
		result.Outcome = Unreachable
		result.Err = fmt.Errorf("uploader: building request: %w", err)
		return result
	}
	request.Header.Set("Content-Type", "application/json;charset=UTF-8")
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", u.userAgent)
	request.Header.Set(DigestHeader, Digest(payload))
	if u.compression == CompressionGzip {
		request.Header.Set("Content-Encoding", "gzip")
	}

	response, err := u.httpClient.Do(request)
	if err != nil {
		result.Outcome = classifyTransportError(err)
		result.Err = fmt.Errorf("uploader: POST %s: %w", u.endpoint, err)
		return result
	}
	defer response.Body.Close()

	result.StatusCode = response.StatusCode
	switch {
	case response.StatusCode >= 200 && response.StatusCode < 300:
		io.Copy(io.Discard, io.LimitReader(response.Body, maxResponseBytes))
		result.Outcome = Success
	case response.StatusCode == http.StatusBadRequest:
		result.Outcome = Rejected
		result.Err = fmt.Errorf("uploader: payload rejected: HTTP 400: %s", errorBody(response.Body))
	default:
		result.Outcome = ServerError
		result.Err = fmt.Errorf("uploader: HTTP %d: %s", response.StatusCode, errorBody(response.Body))
	}
	return result
}

func (u *Uploader) encodeBody(payload []byte) ([]byte, error) {
	if u.compression != CompressionGzip {
		return payload, nil
	}
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	if _, err := writer.Write(payload); err != nil {
		return nil, fmt.Errorf("uploader: gzip: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("uploader: gzip: %w", err)
	}
	return buffer.Bytes(), nil
}

// Digest returns the X-Awm-Digest value for an uncompressed payload.
func Digest(payload []byte) string {
	sum := blake3.Sum256(payload)
	return "blake3-" + hex.EncodeToString(sum[:])
}

func classifyTransportError(err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netError net.Error
	if errors.As(err, &netError) && netError.Timeout() {
		return Timeout
	}
	return Unreachable
}

// errorBody returns a short, single-line excerpt of an error response.
func errorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxResponseBytes))
	text := strings.TrimSpace(string(data))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return strings.ReplaceAll(text, "\n", " ")
}
