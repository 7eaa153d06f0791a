package crmapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var listKeys = []string{"data", "items", "results"}

// DecodeList normalizes list responses that arrive as a bare array or wrapped
// in {"data": [...]}, {"items": [...]} or {"results": [...]}. Any other shape
// (null, a message object, plain text) is an empty list.
func DecodeList[T any](raw []byte) ([]T, error) {
	inner := listPayload(raw)
	if inner == nil {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(inner, &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func listPayload(raw []byte) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '[':
		return raw
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		for _, key := range listKeys {
			if inner, ok := obj[key]; ok {
				inner = bytes.TrimSpace(inner)
				if len(inner) > 0 && inner[0] == '[' {
					return inner
				}
			}
		}
	}
	return nil
}

// decodeObject unwraps a single {"data": {...}} envelope if present.
func decodeObject(raw []byte, out interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil && len(obj) == 1 {
		if inner, ok := obj["data"]; ok {
			raw = inner
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
