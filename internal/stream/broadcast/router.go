// Package broadcast вычисляет минимальное множество получателей для
// батча сущностей через cell-индекс реестра.
package broadcast

import (
	"github.com/Franelll/MaaS-sub000/internal/geo"
	"github.com/Franelll/MaaS-sub000/internal/stream/domain"
	"github.com/Franelll/MaaS-sub000/internal/stream/registry"
)

// Router — BroadcastRouter. Чистое синхронное вычисление: отправка
// результата в исходящие каналы — отдельный шаг с изоляцией ошибок
// на стороне вызывающего.
type Router struct {
	reg *registry.Registry
}

func NewRouter(reg *registry.Registry) *Router {
	return &Router{reg: reg}
}

// Route группирует сущности по ячейке, берет кандидатов через
// SubscribersForCell и прогоняет точный Matches по каждой сущности,
// отсекая ложные срабатывания краев bbox/радиуса. Сущности без единого
// подписчика молча отбрасываются.
//
// Стоимость: O(entities × средн. подписчиков на ячейку) вместо наивного
// O(subscribers × entities) — ради этого и существует grid.
func (r *Router) Route(entities []domain.Entity) map[string][]domain.Entity {
	byCell := make(map[geo.CellKey][]domain.Entity)
	for _, e := range entities {
		cell := geo.CellOf(e.Location)
		byCell[cell] = append(byCell[cell], e)
	}

	out := make(map[string][]domain.Entity)
	for cell, cellEntities := range byCell {
		candidates := r.reg.SubscribersForCell(cell)
		if len(candidates) == 0 {
			continue
		}
		for _, id := range candidates {
			for _, e := range cellEntities {
				if r.reg.Matches(id, e) {
					out[id] = append(out[id], e)
				}
			}
		}
	}
	return out
}
