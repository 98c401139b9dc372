package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetJSON fetches key and unmarshals it into dest. An unmarshalable
// payload (schema drift) is treated as a miss and the key is deleted, per
// spec.md §4.9.
func GetJSON(ctx context.Context, s Store, key string, dest any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		_ = s.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// SetJSON marshals value and stores it under key with ttl.
func SetJSON(ctx context.Context, s Store, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw, ttl)
}
