package events

import (
	"context"
	"encoding/json"

	rediscommon "github.com/SirazSium84/Doctor-s-Helper-sub000/common/redis"

	"github.com/go-redis/redis/v8"
)

// RedisStream appends events to a capped Redis stream.
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStream(client *redis.Client, stream string, maxLen int64) *RedisStream {
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

var _ Publisher = (*RedisStream)(nil)

func (r *RedisStream) Name() string { return "redis-stream" }

func (r *RedisStream) Publish(ctx context.Context, ev SnapshotEvent) error {
	_, err := rediscommon.PublishJSONToStream(ctx, r.client, r.stream, ev, r.maxLen)
	return err
}

// History returns up to count of the oldest retained events. Entries that do
// not decode are skipped.
func (r *RedisStream) History(ctx context.Context, count int64) ([]SnapshotEvent, error) {
	msgs, err := rediscommon.ReadStreamRange(ctx, r.client, r.stream, count)
	if err != nil {
		return nil, err
	}
	out := make([]SnapshotEvent, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["data"].(string)
		if !ok {
			continue
		}
		var ev SnapshotEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
