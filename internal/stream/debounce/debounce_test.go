package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/Franelll/MaaS-sub000/internal/geo"
	"github.com/Franelll/MaaS-sub000/internal/stream/domain"
)

type recorder struct {
	mu    sync.Mutex
	calls []struct {
		id   string
		area domain.Area
	}
}

func (r *recorder) fire(id string, area domain.Area) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, struct {
		id   string
		area domain.Area
	}{id, area})
}

func (r *recorder) snapshot() []struct {
	id   string
	area domain.Area
} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]struct {
		id   string
		area domain.Area
	}, len(r.calls))
	copy(out, r.calls)
	return out
}

func centerArea(lat, lon float64) domain.Area {
	return domain.Area{Center: &geo.Point{Lat: lat, Lon: lon}, RadiusMeters: 500}
}

func TestBurstCollapsesToLatest(t *testing.T) {
	rec := &recorder{}
	d := New(40*time.Millisecond, rec.fire)
	defer d.Close()

	// всплеск из 10 обновлений внутри окна
	for i := 0; i < 10; i++ {
		d.Update("s1", centerArea(52.0+float64(i)*0.001, 21.0))
	}
	last := centerArea(52.009, 21.0)

	time.Sleep(120 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("fired %d times, want 1", len(calls))
	}
	if calls[0].id != "s1" || calls[0].area.Center.Lat != last.Center.Lat {
		t.Errorf("fired with %+v, want latest area lat %v", calls[0], last.Center.Lat)
	}
}

func TestSeparateWindowsFireSeparately(t *testing.T) {
	rec := &recorder{}
	d := New(30*time.Millisecond, rec.fire)
	defer d.Close()

	d.Update("s1", centerArea(52.0, 21.0))
	time.Sleep(90 * time.Millisecond)
	d.Update("s1", centerArea(53.0, 21.0))
	time.Sleep(90 * time.Millisecond)

	if calls := rec.snapshot(); len(calls) != 2 {
		t.Errorf("fired %d times, want 2", len(calls))
	}
}

func TestSubscribersDebounceIndependently(t *testing.T) {
	rec := &recorder{}
	d := New(30*time.Millisecond, rec.fire)
	defer d.Close()

	d.Update("s1", centerArea(52.0, 21.0))
	d.Update("s2", centerArea(50.0, 19.9))
	time.Sleep(90 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 2 {
		t.Fatalf("fired %d times, want 2", len(calls))
	}
	seen := map[string]bool{}
	for _, c := range calls {
		seen[c.id] = true
	}
	if !seen["s1"] || !seen["s2"] {
		t.Errorf("fired for %v, want both s1 and s2", seen)
	}
}

func TestCancelSuppressesPending(t *testing.T) {
	rec := &recorder{}
	d := New(30*time.Millisecond, rec.fire)
	defer d.Close()

	d.Update("s1", centerArea(52.0, 21.0))
	d.Cancel("s1")
	time.Sleep(90 * time.Millisecond)

	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("fired %d times after Cancel, want 0", len(calls))
	}
}

func TestCloseStopsEverything(t *testing.T) {
	rec := &recorder{}
	d := New(30*time.Millisecond, rec.fire)

	d.Update("s1", centerArea(52.0, 21.0))
	d.Close()
	d.Update("s2", centerArea(50.0, 19.9)) // после Close — игнор
	time.Sleep(90 * time.Millisecond)

	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("fired %d times after Close, want 0", len(calls))
	}
}
