package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// fakeClient is a scripted connection for consumer tests.
type fakeClient struct {
	connectErr error
	messages   chan RawMessage
	errors     chan error

	mu     sync.Mutex
	closed bool
}

func newFakeClient(connectErr error) *fakeClient {
	return &fakeClient{
		connectErr: connectErr,
		messages:   make(chan RawMessage, 16),
		errors:     make(chan error, 1),
	}
}

func (f *fakeClient) Connect(context.Context) error { return f.connectErr }
func (f *fakeClient) Messages() <-chan RawMessage   { return f.messages }
func (f *fakeClient) Errors() <-chan error          { return f.errors }

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func testConsumer(clients ...*fakeClient) *Consumer {
	cfg := DefaultConsumerConfig()
	cfg.ReconnectBaseWait = time.Millisecond
	cfg.ReconnectMaxWait = 5 * time.Millisecond

	c := NewConsumer(cfg, nil)

	var mu sync.Mutex
	i := 0
	c.newClient = func(ClientConfig, *slog.Logger) Client {
		mu.Lock()
		defer mu.Unlock()
		client := clients[i]
		if i < len(clients)-1 {
			i++
		}
		return client
	}
	return c
}

func waitEvent(t *testing.T, c *Consumer, want ConnEventType) {
	t.Helper()
	select {
	case ev := <-c.Events():
		if ev.Type != want {
			t.Fatalf("event = %q, want %q", ev.Type, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %q event", want)
	}
}

func TestConsumer_ForwardsMessages(t *testing.T) {
	client := newFakeClient(nil)
	c := testConsumer(client)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop(context.Background())

	waitEvent(t, c, ConnUp)

	client.messages <- RawMessage{Data: []byte("frame"), ReceivedAt: time.Now()}

	select {
	case msg := <-c.Messages():
		if string(msg.Data) != "frame" {
			t.Errorf("Data = %s", msg.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for forwarded frame")
	}
}

func TestConsumer_StartFailsWhenConnectFails(t *testing.T) {
	c := testConsumer(newFakeClient(errors.New("refused")))

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded, want connect error")
	}
}

func TestConsumer_ReconnectsAfterDrop(t *testing.T) {
	first := newFakeClient(nil)
	second := newFakeClient(nil)
	c := testConsumer(first, second)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop(context.Background())

	waitEvent(t, c, ConnUp)

	first.errors <- errors.New("broken pipe")

	waitEvent(t, c, ConnDown)
	waitEvent(t, c, ConnUp)

	// Frames from the replacement connection flow through.
	second.messages <- RawMessage{Data: []byte("after"), ReceivedAt: time.Now()}
	select {
	case msg := <-c.Messages():
		if string(msg.Data) != "after" {
			t.Errorf("Data = %s", msg.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame after reconnect")
	}

	if first.IsConnected() {
		t.Error("dropped client not closed")
	}
}
