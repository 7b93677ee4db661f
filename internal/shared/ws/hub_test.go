package ws

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Franelll/MaaS-sub000/internal/shared/logger"
	"github.com/google/uuid"
)

func newTestHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	log := logger.NewLoggerWithWriter("ws-test", io.Discard)
	h := NewHub(func(string) (string, string, error) { return "", "", nil }, 4, log)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	return h, cancel
}

func newTestClient(h *Hub, subscriberID string) *Client {
	return &Client{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		send:         make(chan []byte, h.sendBuffer),
		hub:          h,
		log:          h.log,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

// Отправка, пересекающаяся с unregister, не должна паниковать: unregister
// закрывает send-канал, и доставка в этот канал обязана быть исключена
// локом, а не гонкой.
func TestSendToSubscriberDuringUnregister(t *testing.T) {
	h, cancel := newTestHub(t)
	defer cancel()

	for i := 0; i < 50; i++ {
		client := newTestClient(h, "s1")
		h.register <- client
		waitFor(t, func() bool { return h.IsConnected("s1") })

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				h.SendToSubscriber("s1", []byte("update"))
			}
		}()

		h.unregister <- client
		wg.Wait()
		waitFor(t, func() bool { return !h.IsConnected("s1") })
	}

	if h.SendToSubscriber("s1", []byte("late")) {
		t.Error("send to unregistered subscriber must return false")
	}
}

func TestSendDropsNewestOnFullBuffer(t *testing.T) {
	h, cancel := newTestHub(t)
	defer cancel()

	client := newTestClient(h, "s1")
	h.register <- client
	waitFor(t, func() bool { return h.IsConnected("s1") })

	// без writePump буфер (4) заполняется и остальное отбрасывается
	delivered := 0
	for i := 0; i < 10; i++ {
		if h.SendToSubscriber("s1", []byte("m")) {
			delivered++
		}
	}

	if delivered != h.sendBuffer {
		t.Errorf("delivered = %d, want %d (buffer capacity)", delivered, h.sendBuffer)
	}
	if got := client.dropped.Load(); got != int64(10-h.sendBuffer) {
		t.Errorf("dropped = %d, want %d", got, 10-h.sendBuffer)
	}
}

func TestSendJSONToSubscriber(t *testing.T) {
	h, cancel := newTestHub(t)
	defer cancel()

	client := newTestClient(h, "s1")
	h.register <- client
	waitFor(t, func() bool { return h.IsConnected("s1") })

	if !h.SendJSONToSubscriber("s1", map[string]string{"type": "area_subscribed"}) {
		t.Error("SendJSONToSubscriber to connected subscriber must succeed")
	}
	if h.SendJSONToSubscriber("ghost", map[string]string{"type": "area_subscribed"}) {
		t.Error("SendJSONToSubscriber to unknown subscriber must fail")
	}

	select {
	case msg := <-client.send:
		if string(msg) != `{"type":"area_subscribed"}` {
			t.Errorf("message = %s", msg)
		}
	default:
		t.Error("message not queued")
	}
}

func TestConnectedCount(t *testing.T) {
	h, cancel := newTestHub(t)
	defer cancel()

	a := newTestClient(h, "s1")
	b := newTestClient(h, "s2")
	h.register <- a
	h.register <- b
	waitFor(t, func() bool { return h.ConnectedCount() == 2 })

	h.unregister <- a
	waitFor(t, func() bool { return h.ConnectedCount() == 1 })
	if h.IsConnected("s1") {
		t.Error("s1 still connected after unregister")
	}
	if !h.IsConnected("s2") {
		t.Error("s2 must stay connected")
	}
}
