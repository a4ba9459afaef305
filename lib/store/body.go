// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/compscidr/awm-lib/lib/codec"
	"github.com/compscidr/awm-lib/lib/record"
)

// compressionTag is stored per row. The values are part of the on-disk
// format.
type compressionTag uint8

const (
	compressionNone compressionTag = 0
	compressionLZ4  compressionTag = 1
)

var errIncompressible = errors.New("store: body is incompressible")

// storedBody is the CBOR-encoded part of a row. The id, state, and
// timestamps live in their own columns.
type storedBody struct {
	Device      record.DeviceSnapshot `cbor:"device"`
	Observation record.Observation    `cbor:"observation"`
}

// encodeBody returns the bytes to store, the compression applied, and
// the uncompressed size.
func encodeBody(rec record.Record) ([]byte, compressionTag, int, error) {
	raw, err := codec.Marshal(storedBody{Device: rec.Device, Observation: rec.Observation})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("store: encode body: %w", err)
	}

	compressed, err := compressLZ4(raw)
	if errors.Is(err, errIncompressible) {
		return raw, compressionNone, len(raw), nil
	}
	if err != nil {
		return nil, 0, 0, err
	}
	return compressed, compressionLZ4, len(raw), nil
}

func decodeBody(data []byte, tag compressionTag, rawSize int) (storedBody, error) {
	raw := data
	switch tag {
	case compressionNone:
	case compressionLZ4:
		var err error
		raw, err = decompressLZ4(data, rawSize)
		if err != nil {
			return storedBody{}, err
		}
	default:
		return storedBody{}, fmt.Errorf("store: unsupported compression tag %d", tag)
	}

	var body storedBody
	if err := codec.Unmarshal(raw, &body); err != nil {
		return storedBody{}, fmt.Errorf("store: decode body: %w", err)
	}
	return body, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("store: lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, rawSize int) ([]byte, error) {
	destination := make([]byte, rawSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("store: lz4 decompress: %w", err)
	}
	if read != rawSize {
		return nil, fmt.Errorf("store: lz4 decompress: got %d bytes, expected %d", read, rawSize)
	}
	return destination, nil
}
