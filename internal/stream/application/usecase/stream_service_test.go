package usecase

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Franelll/MaaS-sub000/internal/geo"
	"github.com/Franelll/MaaS-sub000/internal/shared/logger"
	"github.com/Franelll/MaaS-sub000/internal/stream/adapters/out/memory"
	"github.com/Franelll/MaaS-sub000/internal/stream/domain"
	"github.com/Franelll/MaaS-sub000/internal/stream/registry"
)

// fakeNotifier собирает все исходящие сообщения по подписчикам
type fakeNotifier struct {
	mu       sync.Mutex
	messages map[string][]map[string]any
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{messages: make(map[string][]map[string]any)}
}

func (f *fakeNotifier) SendJSON(subscriberID string, data any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	var msg map[string]any
	if err := json.Unmarshal(raw, &msg); err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[subscriberID] = append(f.messages[subscriberID], msg)
	return true
}

func (f *fakeNotifier) ofType(subscriberID, msgType string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, m := range f.messages[subscriberID] {
		if m["type"] == msgType {
			out = append(out, m)
		}
	}
	return out
}

func newService(t *testing.T, notifier *fakeNotifier) *StreamService {
	t.Helper()
	log := logger.NewLoggerWithWriter("stream-test", io.Discard)
	svc := NewStreamService(registry.New(4), memory.NewStore(), notifier, 10*time.Millisecond, log)
	t.Cleanup(svc.Close)
	return svc
}

func subscribe(t *testing.T, svc *StreamService, subscriberID string, payload string) {
	t.Helper()
	if err := svc.HandleMessage(context.Background(), subscriberID, "subscribe_area", json.RawMessage(payload)); err != nil {
		t.Fatalf("subscribe_area: %v", err)
	}
}

func TestSubscribeThenBatchDeliversCategorized(t *testing.T) {
	notifier := newFakeNotifier()
	svc := newService(t, notifier)

	subscribe(t, svc, "s1", `{"bbox":{"north":52.25,"south":52.20,"east":21.05,"west":21.00}}`)

	if acks := notifier.ofType("s1", "area_subscribed"); len(acks) != 1 {
		t.Fatalf("area_subscribed count = %d, want 1", len(acks))
	}

	svc.HandleBatch(context.Background(), domain.Batch{
		ProviderID: "tier",
		Entities: []domain.Entity{
			{ID: "v1", Type: domain.EntityScooter, Location: pt(52.22, 21.02)},
			{ID: "st1", Type: domain.EntityStation, Location: pt(52.22, 21.03)},
			{ID: "b1", Type: domain.EntityBusRealtime, Location: pt(52.21, 21.01)},
			{ID: "outside", Type: domain.EntityScooter, Location: pt(52.40, 21.02)},
		},
	})

	vehicles := notifier.ofType("s1", "vehicles_update")
	if len(vehicles) != 1 {
		t.Fatalf("vehicles_update count = %d, want 1", len(vehicles))
	}
	if got := vehicles[0]["count"].(float64); got != 1 {
		t.Errorf("vehicles count = %v, want 1 (outside entity must be excluded)", got)
	}
	if vehicles[0]["providerId"] != "tier" {
		t.Errorf("providerId = %v, want tier", vehicles[0]["providerId"])
	}
	if len(notifier.ofType("s1", "stations_update")) != 1 {
		t.Error("stations_update missing")
	}
	if len(notifier.ofType("s1", "transit_update")) != 1 {
		t.Error("transit_update missing")
	}
}

func TestBatchFillsEmptyProvider(t *testing.T) {
	notifier := newFakeNotifier()
	svc := newService(t, notifier)

	subscribe(t, svc, "s1", `{"bbox":{"north":52.25,"south":52.20,"east":21.05,"west":21.00},"providers":["bolt"]}`)

	// провайдер не проставлен в сущности — наследуется из батча,
	// фильтр по провайдеру должен сработать уже по унаследованному
	svc.HandleBatch(context.Background(), domain.Batch{
		ProviderID: "bolt",
		Entities:   []domain.Entity{{ID: "v1", Type: domain.EntityScooter, Location: pt(52.22, 21.02)}},
	})

	if len(notifier.ofType("s1", "vehicles_update")) != 1 {
		t.Error("entity with inherited provider not delivered")
	}
}

func TestMalformedSubscribeSendsError(t *testing.T) {
	notifier := newFakeNotifier()
	svc := newService(t, notifier)

	if err := svc.HandleMessage(context.Background(), "s1", "subscribe_area", json.RawMessage(`{not json`)); err == nil {
		t.Error("malformed payload must return an error")
	}
	if len(notifier.ofType("s1", "error")) != 1 {
		t.Error("error message not sent to subscriber")
	}
}

func TestInvalidAreaSendsErrorWithoutState(t *testing.T) {
	notifier := newFakeNotifier()
	svc := newService(t, notifier)

	// и bbox, и center — взаимоисключающие формы
	if err := svc.HandleMessage(context.Background(), "s1", "subscribe_area", json.RawMessage(
		`{"bbox":{"north":52.25,"south":52.20,"east":21.05,"west":21.00},"center":{"lat":52.22,"lng":21.02},"radiusMeters":500}`,
	)); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(notifier.ofType("s1", "error")) != 1 {
		t.Fatal("error message not sent")
	}

	// стейта нет — батч не доставляется
	svc.HandleBatch(context.Background(), domain.Batch{
		ProviderID: "tier",
		Entities:   []domain.Entity{{ID: "v1", Type: domain.EntityScooter, Location: pt(52.22, 21.02)}},
	})
	if len(notifier.ofType("s1", "vehicles_update")) != 0 {
		t.Error("batch delivered to subscriber with rejected subscription")
	}
}

func TestUnknownMessageTypeSendsError(t *testing.T) {
	notifier := newFakeNotifier()
	svc := newService(t, notifier)

	if err := svc.HandleMessage(context.Background(), "s1", "teleport", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(notifier.ofType("s1", "error")) != 1 {
		t.Error("unknown message type must produce an error message")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	notifier := newFakeNotifier()
	svc := newService(t, notifier)

	subscribe(t, svc, "s1", `{"bbox":{"north":52.25,"south":52.20,"east":21.05,"west":21.00}}`)
	if err := svc.HandleMessage(context.Background(), "s1", "unsubscribe_area", nil); err != nil {
		t.Fatalf("unsubscribe_area: %v", err)
	}
	if len(notifier.ofType("s1", "area_unsubscribed")) != 1 {
		t.Error("area_unsubscribed ack missing")
	}

	svc.HandleBatch(context.Background(), domain.Batch{
		ProviderID: "tier",
		Entities:   []domain.Entity{{ID: "v1", Type: domain.EntityScooter, Location: pt(52.22, 21.02)}},
	})
	if len(notifier.ofType("s1", "vehicles_update")) != 0 {
		t.Error("batch delivered after unsubscribe")
	}
}

func TestUpdateLocationDebounced(t *testing.T) {
	notifier := newFakeNotifier()
	svc := newService(t, notifier)

	subscribe(t, svc, "s1", `{"center":{"lat":52.2297,"lng":21.0122},"radiusMeters":500}`)

	// всплеск панорамирования: радиус не прислан, наследуется от подписки
	for _, lat := range []float64{52.24, 52.25, 52.26} {
		payload, _ := json.Marshal(map[string]any{"center": map[string]float64{"lat": lat, "lng": 21.0122}})
		if err := svc.HandleMessage(context.Background(), "s1", "update_location", payload); err != nil {
			t.Fatalf("update_location: %v", err)
		}
	}

	time.Sleep(50 * time.Millisecond) // окно 10мс истекло

	// применилось последнее значение: сущность у нового центра доставляется,
	// у старого — нет
	svc.HandleBatch(context.Background(), domain.Batch{
		ProviderID: "tier",
		Entities: []domain.Entity{
			{ID: "at-new", Type: domain.EntityScooter, Location: pt(52.2601, 21.0122)},
			{ID: "at-old", Type: domain.EntityScooter, Location: pt(52.2297, 21.0122)},
		},
	})

	vehicles := notifier.ofType("s1", "vehicles_update")
	if len(vehicles) != 1 {
		t.Fatalf("vehicles_update count = %d, want 1", len(vehicles))
	}
	if got := vehicles[0]["count"].(float64); got != 1 {
		t.Errorf("count = %v, want only the entity near the latest center", got)
	}
}

func TestSubscribeSendsSnapshotFromStore(t *testing.T) {
	notifier := newFakeNotifier()
	svc := newService(t, notifier)

	// сущность уже в store до подписки
	svc.HandleBatch(context.Background(), domain.Batch{
		ProviderID: "tier",
		Entities:   []domain.Entity{{ID: "v1", Type: domain.EntityScooter, Location: pt(52.22, 21.02)}},
	})

	subscribe(t, svc, "s1", `{"bbox":{"north":52.25,"south":52.20,"east":21.05,"west":21.00}}`)

	vehicles := notifier.ofType("s1", "vehicles_update")
	if len(vehicles) != 1 {
		t.Fatalf("snapshot vehicles_update count = %d, want 1", len(vehicles))
	}
	if vehicles[0]["providerId"] != "tier" {
		t.Errorf("snapshot providerId = %v, want tier", vehicles[0]["providerId"])
	}
}

func pt(lat, lon float64) geo.Point { return geo.Point{Lat: lat, Lon: lon} }
