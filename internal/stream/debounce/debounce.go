// Package debounce коалесцирует всплески обновлений области интереса
// (непрерывное панорамирование карты) в один эффективный вызов.
package debounce

import (
	"sync"
	"time"

	"github.com/Franelll/MaaS-sub000/internal/stream/domain"
)

// DefaultWindow — референсное окно коалесцирования
const DefaultWindow = 300 * time.Millisecond

// FireFunc вызывается по истечении окна с последней полученной областью
type FireFunc func(subscriberID string, area domain.Area)

type pending struct {
	timer *time.Timer
	area  domain.Area
}

// Debouncer — latest-value-wins на подписчика: промежуточные значения
// внутри окна отбрасываются, это отмена устаревшей работы, а не очередь.
type Debouncer struct {
	window time.Duration
	fire   FireFunc

	mu      sync.Mutex
	entries map[string]*pending
	closed  bool
}

func New(window time.Duration, fire FireFunc) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{
		window:  window,
		fire:    fire,
		entries: make(map[string]*pending),
	}
}

// Update запоминает последнюю область подписчика. Первый вызов открывает
// окно; последующие внутри окна только перезаписывают значение. По
// истечении окна срабатывает fire с последним значением.
func (d *Debouncer) Update(subscriberID string, area domain.Area) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if p, ok := d.entries[subscriberID]; ok {
		p.area = area
		return
	}

	p := &pending{area: area}
	p.timer = time.AfterFunc(d.window, func() { d.expire(subscriberID) })
	d.entries[subscriberID] = p
}

func (d *Debouncer) expire(subscriberID string) {
	d.mu.Lock()
	p, ok := d.entries[subscriberID]
	if ok {
		delete(d.entries, subscriberID)
	}
	closed := d.closed
	d.mu.Unlock()

	if ok && !closed {
		d.fire(subscriberID, p.area)
	}
}

// Cancel сбрасывает отложенное обновление подписчика (disconnect)
func (d *Debouncer) Cancel(subscriberID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.entries[subscriberID]; ok {
		p.timer.Stop()
		delete(d.entries, subscriberID)
	}
}

// Close останавливает все таймеры; дальнейшие Update игнорируются
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	for id, p := range d.entries {
		p.timer.Stop()
		delete(d.entries, id)
	}
}
