// Copyright 2026 ZapDrive Authors
// SPDX-License-Identifier: Apache-2.0

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/zapdrive/pkg/events"
)

func TestRedisPublisherPublishesToOwnerChannel(t *testing.T) {
	srv := miniredis.RunT(t)

	pub, err := events.NewRedisPublisher(events.RedisConfig{
		Enabled: true,
		Addr:    srv.Addr(),
		Channel: "drive:events",
	})
	require.NoError(t, err)
	defer pub.Close()

	sub := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ps := sub.Subscribe(ctx, "drive:events:gina")
	defer ps.Close()
	_, err = ps.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	ev := events.Event{Type: events.EventFileUploaded, OwnerID: "gina", Name: "song.mp3"}
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, pub.Publish(ctx, "gina", raw))

	msg, err := ps.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "drive:events:gina", msg.Channel)

	var got events.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, events.EventFileUploaded, got.Type)
	assert.Equal(t, "song.mp3", got.Name)
}

func TestNewRedisPublisherRejectsUnreachableServer(t *testing.T) {
	t.Parallel()

	_, err := events.NewRedisPublisher(events.RedisConfig{
		Enabled:     true,
		Addr:        "127.0.0.1:1", // nothing listens here
		DialTimeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
}

func TestNewRedisPublisherRequiresAddr(t *testing.T) {
	t.Parallel()

	_, err := events.NewRedisPublisher(events.RedisConfig{Enabled: true})
	require.Error(t, err)
}
