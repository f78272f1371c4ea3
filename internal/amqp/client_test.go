package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"tracker/internal/core"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{63, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"closed", errors.New("connection closed"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"amqp closed", fmt.Errorf("open channel: %w", amqp091.ErrClosed), true},
		{"other", errors.New("access refused: bad credentials"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "tracker", queueName: "table_appended"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit should start closed")
		}
	})

	t.Run("success resets state", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 3)
		atomic.StoreInt32(&client.state, StateOpen)

		client.recordSuccess()

		if atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("failure count should be reset")
		}
		if atomic.LoadInt32(&client.state) != StateClosed {
			t.Error("state should be closed")
		}
	})

	t.Run("max failures open circuit", func(t *testing.T) {
		client.recordSuccess()
		for i := 0; i < maxFailures-1; i++ {
			client.recordFailure()
		}
		if client.isCircuitOpen() {
			t.Fatal("circuit opened before max failures")
		}
		client.recordFailure()
		if !client.isCircuitOpen() {
			t.Error("circuit should be open after max failures")
		}
	})

	t.Run("half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if client.isCircuitOpen() {
			t.Error("circuit should let a trial request through after the timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open")
		}
	})

	t.Run("failed trial request reopens", func(t *testing.T) {
		client.recordSuccess()
		atomic.StoreInt32(&client.state, StateHalfOpen)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failure while half-open should reopen the circuit")
		}
	})
}

func TestClient_PublishTableAppended(t *testing.T) {
	client := &Client{exchangeName: "tracker", queueName: "table_appended"}
	rows := []core.Row{core.NewRow(core.Cell("Fecha", core.NewDate(2024, 3, 1)))}

	t.Run("fails when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishTableAppended(context.Background(), "habitos", rows)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("err = %v, want ErrCircuitOpen", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		client.recordSuccess()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := client.PublishTableAppended(ctx, "habitos", rows)
		if err != context.Canceled {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestClient_InstallReturnsReplacedHandles(t *testing.T) {
	client := &Client{}
	firstConn, firstCh := &amqp091.Connection{}, &amqp091.Channel{}

	staleConn, staleCh := client.install(firstConn, firstCh)
	if staleConn != nil || staleCh != nil {
		t.Fatalf("first install returned stale handles %p %p", staleConn, staleCh)
	}

	nextConn, nextCh := &amqp091.Connection{}, &amqp091.Channel{}
	staleConn, staleCh = client.install(nextConn, nextCh)
	if staleConn != firstConn || staleCh != firstCh {
		t.Error("reconnect must hand back the previous connection and channel for closing")
	}
	if client.conn != nextConn || client.channel != nextCh {
		t.Error("new handles not installed")
	}

	closeStale(nil, nil)
}

func TestTableAppendedMessage_JSON(t *testing.T) {
	rows := []core.Row{
		core.NewRow(
			core.Cell("Fecha", core.NewDate(2024, 3, 1)),
			core.Cell("Ejercicio", core.String("Sentadilla")),
			core.Cell("Peso", core.Number(80)),
		),
	}
	msg := NewTableAppendedMessage("gym", rows)
	if msg.ID == uuid.Nil {
		t.Fatal("NewTableAppendedMessage() should assign an id")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("timestamp should be recent")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := TableAppendedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("TableAppendedMessageFromJSON() error = %v", err)
	}
	if parsed.ID != msg.ID || parsed.Table != "gym" {
		t.Errorf("parsed = %+v, want id %v table gym", parsed, msg.ID)
	}
	if len(parsed.Rows) != 1 || !parsed.Rows[0].Equal(rows[0]) {
		t.Errorf("rows = %v, want %v", parsed.Rows, rows)
	}
}

func TestTableAppendedMessageFromJSON_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":   `{"id":`,
		"no id":      `{"table":"gym","rows":[{"a":1}]}`,
		"bad table":  `{"id":"` + uuid.NewString() + `","table":"../x","rows":[{"a":1}]}`,
		"empty rows": `{"id":"` + uuid.NewString() + `","table":"gym","rows":[]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := TableAppendedMessageFromJSON([]byte(body)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

type fakeAcknowledger struct {
	acked, nacked, requeued bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error { f.acked = true; return nil }

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestHandleDelivery(t *testing.T) {
	body, err := NewTableAppendedMessage("gastos", []core.Row{
		core.NewRow(core.Cell("Importe", core.Number(12.5))),
	}).ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		wantAck    bool
		wantNack   bool
		wantQueue  bool
	}{
		{name: "applied", body: body, wantAck: true},
		{name: "handler fails", body: body, handlerErr: errors.New("backend down"), wantNack: true, wantQueue: true},
		{name: "undecodable", body: []byte("nope"), wantNack: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			called := false
			handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: tt.body},
				func(_ context.Context, m *TableAppendedMessage) error {
					called = true
					if m.Table != "gastos" {
						t.Errorf("table = %q", m.Table)
					}
					return tt.handlerErr
				})
			if ack.acked != tt.wantAck || ack.nacked != tt.wantNack || ack.requeued != tt.wantQueue {
				t.Errorf("ack=%v nack=%v requeue=%v", ack.acked, ack.nacked, ack.requeued)
			}
			if called != (tt.name != "undecodable") {
				t.Errorf("handler called = %v", called)
			}
		})
	}
}
