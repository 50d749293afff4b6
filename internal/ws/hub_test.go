package ws

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func newTestClient(userID string) *Client {
	return &Client{
		conn:   nil, // Not needed for hub tests
		userID: userID,
		send:   make(chan Message, 4),
		logger: testLogger(),
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(testLogger())
	if hub.clients == nil {
		t.Error("hub.clients map is nil")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestRegisterAndCounts(t *testing.T) {
	hub := NewHub(testLogger())

	hub.Register(newTestClient("user-1"))
	hub.Register(newTestClient("user-1"))
	hub.Register(newTestClient("user-2"))

	if got := hub.ClientCount(); got != 3 {
		t.Errorf("ClientCount() = %d, want 3", got)
	}
	if got := hub.UserCount(); got != 2 {
		t.Errorf("UserCount() = %d, want 2", got)
	}
}

func TestUnregister(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("user-1")

	hub.Register(client)
	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
	if hub.UserCount() != 0 {
		t.Errorf("UserCount() = %d, want 0 after last client leaves", hub.UserCount())
	}
	if _, ok := <-client.send; ok {
		t.Error("client.send channel is not closed")
	}
}

func TestUnregisterTwice(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("user-1")
	hub.Register(client)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("second Unregister() panicked: %v", r)
		}
	}()
	hub.Unregister(client)
	hub.Unregister(client)
}

func TestUnregisterNotRegistered(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("user-1")

	hub.Unregister(client)

	select {
	case _, ok := <-client.send:
		if !ok {
			t.Error("channel closed for unregistered client")
		}
	default:
	}
}

func TestSendToUser_OnlyOwner(t *testing.T) {
	hub := NewHub(testLogger())
	a1 := newTestClient("user-a")
	a2 := newTestClient("user-a")
	b := newTestClient("user-b")
	for _, c := range []*Client{a1, a2, b} {
		hub.Register(c)
	}

	msg := Message{Type: MessageAnalysisCompleted, UserID: "user-a", Timestamp: time.Now()}
	if got := hub.SendToUser("user-a", msg); got != 2 {
		t.Errorf("SendToUser() = %d, want 2", got)
	}

	for _, c := range []*Client{a1, a2} {
		select {
		case got := <-c.send:
			if got.Type != MessageAnalysisCompleted {
				t.Errorf("Type = %q, want %q", got.Type, MessageAnalysisCompleted)
			}
		default:
			t.Error("owner client did not receive message")
		}
	}
	select {
	case got := <-b.send:
		t.Errorf("other user received %+v", got)
	default:
	}
}

func TestSendToUser_UnknownUser(t *testing.T) {
	hub := NewHub(testLogger())
	hub.Register(newTestClient("user-a"))
	if got := hub.SendToUser("user-z", Message{}); got != 0 {
		t.Errorf("SendToUser(unknown) = %d, want 0", got)
	}
}

func TestSendToUser_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub(testLogger())
	client := newTestClient("user-a")
	hub.Register(client)

	capacity := cap(client.send)
	for range capacity {
		hub.SendToUser("user-a", Message{Type: MessageAnalysisCompleted})
	}
	if got := hub.SendToUser("user-a", Message{Type: MessageDeviationPersistent}); got != 0 {
		t.Errorf("SendToUser() on full buffer = %d, want 0", got)
	}
	if len(client.send) != capacity {
		t.Errorf("buffered = %d, want %d", len(client.send), capacity)
	}
}

func TestConcurrentRegisterUnregisterSend(t *testing.T) {
	hub := NewHub(testLogger())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestClient("user-a")
			hub.Register(c)
			hub.SendToUser("user-a", Message{Type: MessageAnalysisCompleted})
			if i%2 == 0 {
				hub.Unregister(c)
			}
		}()
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 10 {
		t.Errorf("ClientCount() = %d, want 10", got)
	}
}
