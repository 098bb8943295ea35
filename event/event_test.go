package event

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/chatflow-dev/chatflow/config"
	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/model"
	"github.com/chatflow-dev/chatflow/store"
	"github.com/chatflow-dev/chatflow/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInProcEventBus(t *testing.T) {
	bus := NewInProcEventBus()
	require.NotNil(t, bus)
	assert.NoError(t, bus.Publish("topic", "message"))
	assert.NoError(t, bus.Close())
}

func TestEventBus_RoundTrip(t *testing.T) {
	bus := NewInProcEventBus()
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := make(chan any, 1)
	require.NoError(t, bus.Subscribe(ctx, "test-topic", func(payload any) {
		received <- payload
	}))

	require.NoError(t, bus.Publish("test-topic", "hello world"))

	select {
	case got := <-received:
		assert.Equal(t, "hello world", got)
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestEventBus_JSONPayload(t *testing.T) {
	bus := NewInProcEventBus()
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := make(chan any, 1)
	require.NoError(t, bus.Subscribe(ctx, "json", func(payload any) { received <- payload }))
	require.NoError(t, bus.Publish("json", map[string]any{"key": "value"}))

	select {
	case got := <-received:
		assert.Equal(t, map[string]any{"key": "value"}, got)
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestEventBus_StoreChanges(t *testing.T) {
	bus := NewInProcEventBus()
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []map[string]any
	done := make(chan struct{})
	require.NoError(t, bus.Subscribe(ctx, constants.EventTopicStorePrefix+constants.ContainerBlockChats, func(payload any) {
		mu.Lock()
		defer mu.Unlock()
		m, _ := payload.(map[string]any)
		got = append(got, m)
		close(done)
	}))

	s := store.New(store.Options{})
	stop := store.PublishChanges(s, bus)
	defer stop()
	require.NoError(t, s.AppendMessage("b1", model.ChatMessage{ID: 1, Text: "hi", IsUser: true}))

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for store change")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, constants.ContainerBlockChats, got[0]["container"])
	chats, ok := got[0]["value"].([]any)
	require.True(t, ok)
	assert.Len(t, chats, 1)
}

func TestNewEventBusFromConfig(t *testing.T) {
	for _, cfg := range []*config.EventConfig{nil, {}, {Driver: "memory"}} {
		bus, err := NewEventBusFromConfig(cfg)
		require.NoError(t, err)
		require.NotNil(t, bus)
		_ = bus.Close()
	}

	_, err := NewEventBusFromConfig(&config.EventConfig{Driver: "nats"})
	assert.Error(t, err, "nats without url")

	bus, err := NewEventBusFromConfig(&config.EventConfig{Driver: "unknown"})
	assert.Error(t, err)
	assert.Nil(t, bus)
}

func TestNewEventBusFromConfig_NATS(t *testing.T) {
	url := os.Getenv(constants.EnvNATSTestURL)
	if url == "" {
		t.Skip(constants.EnvNATSTestURL + " not set")
	}
	bus, err := NewEventBusFromConfig(&config.EventConfig{Driver: "nats", URL: url})
	require.NoError(t, err)
	defer bus.Close()
	assert.NoError(t, bus.Publish("test-topic", "hello"))
}

func TestDecodePayload(t *testing.T) {
	assert.Equal(t, "42", decodePayload([]byte("42")))
	assert.Equal(t, "plain", decodePayload([]byte("plain")))
	assert.Equal(t, map[string]any{"a": 1.0}, decodePayload([]byte(`{"a":1}`)))
	assert.Equal(t, "null", decodePayload([]byte("null")))
}

func TestFollow_DecodesStoreChanges(t *testing.T) {
	bus := NewInProcEventBus()
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	changes := make(chan Change, 4)
	require.NoError(t, Follow(ctx, bus, []string{constants.ContainerProjects}, func(c Change) {
		changes <- c
	}))

	s := store.New(store.Options{WorkspaceID: "ws-7"})
	stop := store.PublishChanges(s, bus)
	defer stop()
	require.NoError(t, s.AddProject(model.Project{ID: "project-1", Name: "First"}))

	select {
	case c := <-changes:
		assert.Equal(t, constants.ContainerProjects, c.Container)
		assert.Equal(t, "ws-7", c.WorkspaceID)
		var projects []model.Project
		require.NoError(t, json.Unmarshal(c.Value, &projects))
		require.Len(t, projects, 1)
		assert.Equal(t, "project-1", projects[0].ID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for change")
	}
}

func TestFollow_SkipsForeignPayloads(t *testing.T) {
	bus := NewInProcEventBus()
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	changes := make(chan Change, 2)
	require.NoError(t, Follow(ctx, bus, []string{constants.ContainerBlockChats}, func(c Change) { changes <- c }))
	require.NoError(t, bus.Publish(Topic(constants.ContainerBlockChats), "not a change"))
	require.NoError(t, bus.Publish(Topic(constants.ContainerBlockChats), Change{Container: constants.ContainerBlockChats, Value: json.RawMessage(`[]`)}))

	select {
	case c := <-changes:
		assert.Equal(t, constants.ContainerBlockChats, c.Container)
		assert.JSONEq(t, `[]`, string(c.Value))
	case <-ctx.Done():
		t.Fatal("timed out waiting for change")
	}
	assert.Empty(t, changes)
}

func TestDecodeChange(t *testing.T) {
	c, err := DecodeChange(map[string]any{"container": "workspace_id", "workspaceId": "1", "value": "1"})
	require.NoError(t, err)
	assert.Equal(t, "workspace_id", c.Container)
	assert.Equal(t, "1", c.WorkspaceID)
	assert.JSONEq(t, `"1"`, string(c.Value))

	c, err = DecodeChange(`{"container":"documents","value":[]}`)
	require.NoError(t, err)
	assert.Equal(t, "documents", c.Container)

	_, err = DecodeChange("plain text")
	assert.Error(t, err)
	_, err = DecodeChange(map[string]any{"value": 1})
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "store.block_chats", Topic(constants.ContainerBlockChats))
}

func TestBusLogger(t *testing.T) {
	buf := utils.CaptureLogs(t)

	l := busLogger{}.With(watermill.LogFields{"topic": "store.projects"})
	l.Error("publish failed", errors.New("closed"), watermill.LogFields{"attempt": 2})
	out := buf.String()
	assert.Contains(t, out, "publish failed: closed")
	assert.Contains(t, out, "attempt=2 topic=store.projects")
}

type closeCounter struct {
	closed int
	err    error
}

func (c *closeCounter) Publish(string, ...*message.Message) error { return nil }

func (c *closeCounter) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return nil, nil
}

func (c *closeCounter) Close() error {
	c.closed++
	return c.err
}

func TestWatermillEventBus_Close(t *testing.T) {
	shared := &closeCounter{}
	bus := &WatermillEventBus{publisher: shared, subscriber: shared, shared: true}
	require.NoError(t, bus.Close())
	assert.Equal(t, 1, shared.closed)

	pub := &closeCounter{err: errors.New("pub gone")}
	sub := &closeCounter{}
	bus = &WatermillEventBus{publisher: pub, subscriber: sub}
	err := bus.Close()
	assert.ErrorContains(t, err, "pub gone")
	assert.Equal(t, 1, pub.closed)
	assert.Equal(t, 1, sub.closed, "subscriber is closed even when the publisher fails")

	assert.NoError(t, NewInProcEventBus().Close())
}

func TestPublish_ContainerMetadata(t *testing.T) {
	bus := NewInProcEventBus()
	defer bus.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	topic := Topic(constants.ContainerProjects)
	msgs, err := bus.subscriber.Subscribe(ctx, topic)
	require.NoError(t, err)

	s := store.New(store.Options{})
	stop := store.PublishChanges(s, bus)
	defer stop()
	require.NoError(t, s.AddProject(model.Project{ID: "project-1"}))
	require.NoError(t, bus.Publish(topic, Change{Container: constants.ContainerProjects, Value: json.RawMessage(`[]`)}))

	for i := 0; i < 2; i++ {
		select {
		case msg := <-msgs:
			assert.Equal(t, constants.ContainerProjects, msg.Metadata.Get(metadataContainer))
			msg.Ack()
		case <-ctx.Done():
			t.Fatal("timed out waiting for message")
		}
	}
}
