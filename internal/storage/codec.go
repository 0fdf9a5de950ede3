package storage

import (
	"encoding/json"
	"fmt"
)

// Metadata maps and id lists are stored as JSON text columns. Decoding is
// strict: a row that does not round-trip produces an error, never a
// partially populated record.

func encodeMetadata(m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(s string) (map[string]any, error) {
	if s == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func encodeStringList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("failed to encode id list: %w", err)
	}
	return string(b), nil
}

func decodeStringList(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, fmt.Errorf("failed to decode id list: %w", err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}
