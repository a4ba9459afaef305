// Copyright 2026 The AWM Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

type sampleBody struct {
	Battery  float32           `cbor:"battery"`
	Operator string            `cbor:"operator,omitempty"`
	Ping     int               `cbor:"ping"`
	Extra    map[string]string `cbor:"extra,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleBody{Battery: 87.5, Operator: "telus", Ping: 42}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleBody
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Battery != original.Battery || decoded.Operator != original.Operator || decoded.Ping != original.Ping {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	body := sampleBody{
		Battery: 50,
		Extra:   map[string]string{"zeta": "1", "alpha": "2", "mid": "3"},
	}

	first, err := Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(body)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding %d differs from the first", i)
		}
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type newerBody struct {
		Battery float32 `cbor:"battery"`
		Added   string  `cbor:"added"`
	}
	data, err := Marshal(newerBody{Battery: 12, Added: "from a newer build"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleBody
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal with unknown field: %v", err)
	}
	if decoded.Battery != 12 {
		t.Errorf("Battery = %v, want 12", decoded.Battery)
	}
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"mac": "AA:BB:CC:DD:EE:FF"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	asMap, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if asMap["mac"] != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("mac = %v", asMap["mac"])
	}
}
