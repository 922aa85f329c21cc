package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/store"
)

// MirrorToKV returns a hook that writes each published snapshot as JSON
// under key with the given TTL, for consumers outside this process.
func MirrorToKV(kv store.KV, key string, ttl time.Duration) PublishHook {
	return func(ctx context.Context, snap *Snapshot) error {
		data, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		if err := kv.Set(ctx, key, string(data), ttl); err != nil {
			return fmt.Errorf("failed to set snapshot mirror: %w", err)
		}
		return nil
	}
}

// ReadMirror decodes a mirrored snapshot. store.ErrMiss is returned as-is
// when no mirror exists.
func ReadMirror(ctx context.Context, kv store.KV, key string) (*Snapshot, error) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot mirror: %w", err)
	}
	return &snap, nil
}
