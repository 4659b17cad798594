package gateway

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func newTestConnection(buffer int) *Connection {
	return &Connection{
		ID:     uuid.New().String(),
		GameID: uuid.New(),
		Send:   make(chan []byte, buffer),
	}
}

func TestQueueAfterCloseIsRefused(t *testing.T) {
	conn := newTestConnection(4)
	conn.closeSend()

	if conn.queue([]byte("late")) {
		t.Fatal("expected queue on a closed connection to be refused")
	}
}

func TestQueueFullBufferIsRefused(t *testing.T) {
	conn := newTestConnection(1)

	if !conn.queue([]byte("first")) {
		t.Fatal("expected queue into empty buffer to succeed")
	}
	if conn.queue([]byte("second")) {
		t.Fatal("expected queue into full buffer to be refused")
	}
}

func TestCloseSendIsIdempotent(t *testing.T) {
	conn := newTestConnection(1)
	conn.closeSend()
	conn.closeSend()
}

func TestConcurrentQueueAndClose(t *testing.T) {
	// A connection torn down mid-broadcast must never panic the sender.
	for round := 0; round < 200; round++ {
		conn := newTestConnection(2)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				conn.queue([]byte("payload"))
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn.closeSend()
		}()
		wg.Wait()
	}
}

func TestUnregisterConnectionClosesSendOnce(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	conn := newTestConnection(1)
	cm.registerConnection(conn)

	// readPump and writePump both unregister on teardown.
	cm.unregisterConnection(conn)
	cm.unregisterConnection(conn)

	if conn.queue([]byte("late")) {
		t.Fatal("expected queue after unregister to be refused")
	}
	if stats := cm.GetConnectionStats(); stats.TotalConnections != 0 {
		t.Fatalf("expected empty pool, got %d connections", stats.TotalConnections)
	}
}
