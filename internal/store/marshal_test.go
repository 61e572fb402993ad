package store

import (
	"testing"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

func TestMarshalPayload_Empty(t *testing.T) {
	for _, p := range []ir.Object{nil, {}} {
		got, err := marshalPayload(p)
		if err != nil {
			t.Fatalf("marshalPayload() failed: %v", err)
		}
		if got != "{}" {
			t.Errorf("marshalPayload(%v) = %s, want {}", p, got)
		}
	}
}

func TestMarshalPayload_NFC(t *testing.T) {
	got, err := marshalPayload(ir.Object{"kernel": ir.String("cafe\u0301")})
	if err != nil {
		t.Fatalf("marshalPayload() failed: %v", err)
	}
	if want := "{\"kernel\":\"caf\u00e9\"}"; got != want {
		t.Errorf("marshalPayload() = %q, want %q", got, want)
	}
}

func TestUnmarshalPayload_LargeInt(t *testing.T) {
	obj, err := unmarshalPayload(`{"addr":9007199254740993}`)
	if err != nil {
		t.Fatalf("unmarshalPayload() failed: %v", err)
	}
	if obj["addr"] != ir.Int(9007199254740993) {
		t.Errorf("addr = %v, want exact 9007199254740993", obj["addr"])
	}
}

func TestUnmarshalPayload_Invalid(t *testing.T) {
	if _, err := unmarshalPayload(`{"x":1.5}`); err == nil {
		t.Error("expected error for float value")
	}
	if _, err := unmarshalPayload(`not json`); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
