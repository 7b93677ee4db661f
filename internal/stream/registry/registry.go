// Package registry отслеживает области интереса подключенных клиентов
// и держит membership grid-ячеек в актуальном состоянии.
package registry

import (
	"hash/fnv"
	"sync"

	"github.com/Franelll/MaaS-sub000/internal/geo"
	"github.com/Franelll/MaaS-sub000/internal/stream/domain"
)

// shard владеет своим срезом cell-индекса. Мутации membership одной
// ячейки сериализуются его мьютексом, несвязанные ячейки не конкурируют.
type shard struct {
	mu    sync.Mutex
	cells map[geo.CellKey]map[string]struct{} // cell -> set of subscriber ids
}

// Registry — SubscriptionRegistry: подписки по id + cell-индекс,
// шардированный по хэшу ключа ячейки (вариант без глобального лока
// на пути broadcast)
type Registry struct {
	mu   sync.RWMutex
	subs map[string]*domain.Subscription

	shards []*shard
}

// New создает реестр с numShards шардами cell-индекса
func New(numShards int) *Registry {
	if numShards <= 0 {
		numShards = 32
	}
	shards := make([]*shard, numShards)
	for i := range shards {
		shards[i] = &shard{cells: make(map[geo.CellKey]map[string]struct{})}
	}
	return &Registry{
		subs:   make(map[string]*domain.Subscription),
		shards: shards,
	}
}

func (r *Registry) shardFor(cell geo.CellKey) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(cell))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// Subscribe сохраняет подписку и индексирует подписчика под каждой
// покрытой ячейкой. Повторный subscribe того же id перезаписывает
// предыдущую подписку (идемпотентный resubscribe). Невалидная область
// отклоняется без какого-либо частичного состояния.
func (r *Registry) Subscribe(id string, area domain.Area, types []domain.EntityType, providers []string) error {
	sub, err := domain.NewSubscription(id, area, types, providers)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.subs[id]
	r.applyCellDiff(id, old, sub)
	r.subs[id] = sub
	return nil
}

// UpdateArea пересчитывает покрытые ячейки: убирает подписчика из ячеек,
// которые больше не покрыты, и добавляет в новые, не трогая membership
// других подписчиков. Неизвестный id молча игнорируется (гонки с
// disconnect ожидаемы).
func (r *Registry) UpdateArea(id string, area domain.Area) error {
	if err := area.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.subs[id]
	if !ok {
		return nil
	}

	sub := &domain.Subscription{
		ID:        id,
		Area:      area,
		Types:     old.Types,
		Providers: old.Providers,
		Cells:     make(map[geo.CellKey]struct{}),
	}
	for _, c := range area.CoveredCells() {
		sub.Cells[c] = struct{}{}
	}

	r.applyCellDiff(id, old, sub)
	r.subs[id] = sub
	return nil
}

// Unsubscribe атомарно убирает подписчика из всех ячеек и удаляет
// подписку. No-op для неизвестного id.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.subs[id]
	if !ok {
		return
	}
	r.applyCellDiff(id, old, nil)
	delete(r.subs, id)
}

// applyCellDiff переводит membership от old к next, мутируя только
// изменившиеся ячейки. Вызывается под r.mu.
func (r *Registry) applyCellDiff(id string, old, next *domain.Subscription) {
	for cell := range cellsOf(old) {
		if next != nil {
			if _, keep := next.Cells[cell]; keep {
				continue
			}
		}
		s := r.shardFor(cell)
		s.mu.Lock()
		if members, ok := s.cells[cell]; ok {
			delete(members, id)
			if len(members) == 0 {
				delete(s.cells, cell)
			}
		}
		s.mu.Unlock()
	}

	if next == nil {
		return
	}
	for cell := range next.Cells {
		if old != nil {
			if _, had := old.Cells[cell]; had {
				continue
			}
		}
		s := r.shardFor(cell)
		s.mu.Lock()
		members, ok := s.cells[cell]
		if !ok {
			members = make(map[string]struct{})
			s.cells[cell] = members
		}
		members[id] = struct{}{}
		s.mu.Unlock()
	}
}

func cellsOf(sub *domain.Subscription) map[geo.CellKey]struct{} {
	if sub == nil {
		return nil
	}
	return sub.Cells
}

// SubscribersForCell — O(1) amortized по cell-индексу; возвращает копию,
// чтобы broadcast работал со снапшотом на момент вызова
func (r *Registry) SubscribersForCell(cell geo.CellKey) []string {
	s := r.shardFor(cell)
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.cells[cell]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// Matches — точный предикат подписки для сущности; false если подписчик
// уже отписался
func (r *Registry) Matches(id string, e domain.Entity) bool {
	r.mu.RLock()
	sub, ok := r.subs[id]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	return sub.Matches(e)
}

// Subscription возвращает текущую подписку (nil если нет)
func (r *Registry) Subscription(id string) *domain.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subs[id]
}

// CellsOf — копия множества ячеек подписчика (для статуса и тестов)
func (r *Registry) CellsOf(id string) []geo.CellKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subs[id]
	if !ok {
		return nil
	}
	cells := make([]geo.CellKey, 0, len(sub.Cells))
	for c := range sub.Cells {
		cells = append(cells, c)
	}
	return cells
}

// Len — число активных подписок
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
