// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the CBOR encoding used for record bodies at rest.
//
// Records are written once and read back on every retry sweep, possibly
// by a newer build of the collector. The encoder uses Core Deterministic
// Encoding so the same record always produces the same bytes, and the
// decoder ignores unknown fields so older rows stay readable after a
// field is added.
package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// any-typed targets decode to map[string]any rather than CBOR's
		// default map[interface{}]interface{}.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
