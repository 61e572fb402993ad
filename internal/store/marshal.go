package store

import (
	"encoding/json"
	"fmt"

	"github.com/intel/compute-runtime-sub069/internal/ir"
)

// marshalPayload converts a payload to canonical JSON TEXT for storage.
func marshalPayload(payload ir.Object) (string, error) {
	if payload == nil {
		payload = ir.Object{}
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT back into a payload.
// ir.Object.UnmarshalJSON keeps integers exact via json.Number.
func unmarshalPayload(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}
