package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"envgate-server/internal/config"
)

func newTestSubscriber() *Subscriber {
	cfg := config.Config{
		MQTTBroker:   "127.0.0.1",
		MQTTPort:     1,
		MQTTClientID: "envgate-test",
		MQTTTopic:    "sensors/+/data",
	}
	return NewSubscriber(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleMessage_PassesPayload(t *testing.T) {
	s := newTestSubscriber()

	var gotTopic string
	var gotPayload []byte
	var hadDeadline bool
	s.SetMessageHandler(func(ctx context.Context, topic string, payload []byte) error {
		gotTopic = topic
		gotPayload = payload
		_, hadDeadline = ctx.Deadline()
		return nil
	})

	s.handleMessage("sensors/kitchen/data", []byte(`{"data":{}}`))

	if gotTopic != "sensors/kitchen/data" {
		t.Errorf("topic = %q", gotTopic)
	}
	if string(gotPayload) != `{"data":{}}` {
		t.Errorf("payload = %q", gotPayload)
	}
	if !hadDeadline {
		t.Errorf("handler context has no deadline")
	}
}

func TestHandleMessage_HandlerErrorIsSwallowed(t *testing.T) {
	s := newTestSubscriber()
	calls := 0
	s.SetMessageHandler(func(context.Context, string, []byte) error {
		calls++
		return errors.New("bad payload")
	})

	s.handleMessage("t", nil)
	s.handleMessage("t", nil)

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestHandleMessage_NoHandler(t *testing.T) {
	s := newTestSubscriber()
	s.handleMessage("t", []byte("x"))
}

func TestConnect_AfterDisconnect(t *testing.T) {
	s := newTestSubscriber()
	s.Disconnect()
	s.Disconnect()

	if err := s.Connect(context.Background()); !errors.Is(err, errStopped) {
		t.Fatalf("Connect() error = %v, want %v", err, errStopped)
	}
}

func TestConnect_ContextTimeout(t *testing.T) {
	s := newTestSubscriber()
	t.Cleanup(s.Disconnect)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := s.Connect(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Connect() error = %v, want %v", err, context.DeadlineExceeded)
	}
	if s.IsConnected() {
		t.Errorf("IsConnected() = true without a broker")
	}
	// With ConnectRetry the client reports connected while it is still
	// retrying; a disconnected client would report false.
	if !s.client.IsConnected() {
		t.Errorf("client stopped retrying after the connect timeout")
	}

	s.Disconnect()
	if s.client.IsConnected() {
		t.Errorf("client still retrying after Disconnect")
	}
}

func TestHandlerContextCancelledOnDisconnect(t *testing.T) {
	s := newTestSubscriber()
	s.Disconnect()

	var ctxErr error
	s.SetMessageHandler(func(ctx context.Context, _ string, _ []byte) error {
		ctxErr = ctx.Err()
		return nil
	})
	s.handleMessage("t", nil)

	if !errors.Is(ctxErr, context.Canceled) {
		t.Errorf("ctx.Err() = %v, want context.Canceled", ctxErr)
	}
}
