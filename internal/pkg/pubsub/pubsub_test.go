package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestPublishSubscribe(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	publisher := NewPublisher(client)
	subscriber := NewSubscriber(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *ProgressMessage, 1)
	go func() {
		subscriber.Subscribe(ctx, func(msg *ProgressMessage) {
			received <- msg
		})
	}()

	// 等待订阅建立
	time.Sleep(100 * time.Millisecond)

	err := publisher.PublishProgress(ctx, &ProgressMessage{
		TaskID:   "abc-123",
		Kind:     "video_analysis",
		Status:   "processing",
		Progress: 42,
		Phase:    "Extracting audio",
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "job_progress", msg.Type)
		assert.Equal(t, "abc-123", msg.TaskID)
		assert.Equal(t, "processing", msg.Status)
		assert.Equal(t, float64(42), msg.Progress)
		assert.Equal(t, "Extracting audio", msg.Phase)
	case <-time.After(3 * time.Second):
		t.Fatal("Did not receive published message")
	}
}

func TestPublishProgress_KeepsExplicitType(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	publisher := NewPublisher(client)
	subscriber := NewSubscriber(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *ProgressMessage, 1)
	go func() {
		subscriber.Subscribe(ctx, func(msg *ProgressMessage) {
			received <- msg
		})
	}()

	time.Sleep(100 * time.Millisecond)

	err := publisher.PublishProgress(ctx, &ProgressMessage{
		Type:   "products_updated",
		TaskID: "upload-1",
		Kind:   "dataset_upload",
		Status: "completed",
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, "products_updated", msg.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("Did not receive published message")
	}
}

func TestSubscribe_ContextCancel(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	subscriber := NewSubscriber(client)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- subscriber.Subscribe(ctx, func(msg *ProgressMessage) {})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Subscribe did not return after context cancel")
	}
}
