package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// GetJSON decodes the value stored under key into v. It reports false when
// the key is absent, leaving v untouched.
func GetJSON(ctx context.Context, r Repository, key string, v any) (bool, error) {
	raw, err := r.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode kv[%s]: %w", key, err)
	}
	return true, nil
}

// SetJSON stores the JSON encoding of v under key.
func SetJSON(ctx context.Context, r Repository, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode kv[%s]: %w", key, err)
	}
	return r.Set(ctx, key, raw)
}

// GetInt reads an integer counter; absent or unparsable values count as 0.
func GetInt(ctx context.Context, r Repository, key string) (int, error) {
	raw, err := r.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// SetInt stores an integer counter in decimal form.
func SetInt(ctx context.Context, r Repository, key string, n int) error {
	return r.Set(ctx, key, []byte(strconv.Itoa(n)))
}
