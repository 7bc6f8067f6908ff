package stream

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisMirror publishes hub values on a Redis pub/sub channel so other
// processes (notification workers, dashboards) can follow the tracker.
type RedisMirror struct {
	client  *redis.Client
	channel string
}

// NewRedisMirror creates a mirror publishing on channel
func NewRedisMirror(client *redis.Client, channel string) *RedisMirror {
	return &RedisMirror{client: client, channel: channel}
}

// Forward publishes payload
func (m *RedisMirror) Forward(ctx context.Context, payload []byte) error {
	return m.client.Publish(ctx, m.channel, payload).Err()
}

// ChannelName builds "drk:<topic>:broadcast"
func ChannelName(topic string) string {
	return "drk:" + topic + ":broadcast"
}
