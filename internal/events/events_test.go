package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSnapshot() *cache.Snapshot {
	return &cache.Snapshot{
		Patients: []domain.Patient{{ID: "P1"}, {ID: "P2"}},
		Stats: domain.DashboardStats{
			TotalPatients:            2,
			HighRiskCount:            1,
			AvgAssessmentsPerPatient: 1.5,
		},
		LoadedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Source:   "demo",
	}
}

func TestRedisStream_PublishAndHistory(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	pub := NewRedisStream(client, "dashboard:events", 100)
	hook := Hook(pub, zap.NewNop())

	require.NoError(t, hook(context.Background(), testSnapshot()))
	require.NoError(t, hook(context.Background(), testSnapshot()))

	events, err := pub.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeSnapshotPublished, events[0].Type)
	assert.Equal(t, 2, events[0].TotalPatients)
	assert.Equal(t, 2, events[0].Counts["patients"])
	assert.Equal(t, "demo", events[0].Source)
}

type fakeMQTT struct {
	connected bool
	topic     string
	retained  bool
	payload   []byte
}

func (f *fakeMQTT) Publish(topic string, retained bool, payload []byte) error {
	f.topic, f.retained, f.payload = topic, retained, payload
	return nil
}

func (f *fakeMQTT) IsConnected() bool { return f.connected }

func TestMQTT_PublishRetained(t *testing.T) {
	client := &fakeMQTT{connected: true}
	pub := NewMQTT(client, "doctors-helper/dashboard/snapshot")

	require.NoError(t, pub.Publish(context.Background(), NewSnapshotEvent(testSnapshot())))
	assert.Equal(t, "doctors-helper/dashboard/snapshot", client.topic)
	assert.True(t, client.retained)
	assert.Contains(t, string(client.payload), `"high_risk_count":1`)
}

func TestMQTT_Disconnected(t *testing.T) {
	pub := NewMQTT(&fakeMQTT{}, "t")
	assert.ErrorIs(t, pub.Publish(context.Background(), SnapshotEvent{}), errMQTTDisconnected)
}

type failingPublisher struct{}

func (failingPublisher) Name() string { return "broken" }
func (failingPublisher) Publish(context.Context, SnapshotEvent) error {
	return errors.New("down")
}

func TestMulti_JoinsErrorsAndKeepsGoing(t *testing.T) {
	client := &fakeMQTT{connected: true}
	m := Multi{failingPublisher{}, NewMQTT(client, "t")}

	err := m.Publish(context.Background(), NewSnapshotEvent(testSnapshot()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: down")
	assert.NotEmpty(t, client.payload, "later publishers still run")
}
